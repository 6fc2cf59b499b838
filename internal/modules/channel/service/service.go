package service

import (
	"context"
	stderrors "errors"
	"log/slog"

	"github.com/reshetovitsme/streamer-census/internal/modules/channel/domain"
	channelRepo "github.com/reshetovitsme/streamer-census/internal/modules/channel/repository"
	"github.com/reshetovitsme/streamer-census/internal/shared/errors"
	"github.com/samber/oops"
)

// Service handles accepted-channel persistence and reporting
type Service struct {
	repo   channelRepo.Repository
	logger *slog.Logger
}

// New creates a new channel service
func New(repo channelRepo.Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Record persists an accepted channel. ErrAlreadyRecorded is returned as is;
// any other failure is an ErrStorage.
func (s *Service) Record(ctx context.Context, record domain.Record) error {
	err := s.repo.Save(ctx, record)
	switch {
	case err == nil:
		s.logger.Info("accepted channel recorded",
			"channel_id", record.ChannelID,
			"title", record.Title,
			"region", record.Region,
			"category", record.Category,
			"confidence", record.Confidence,
			"method", record.Method)
		return nil
	case stderrors.Is(err, errors.ErrAlreadyRecorded):
		return err
	default:
		return oops.With("channel_id", record.ChannelID).Wrapf(errors.ErrStorage, "%v", err)
	}
}

// List returns accepted channels, newest first
func (s *Service) List(ctx context.Context, filter domain.Filter) ([]domain.Record, error) {
	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, oops.With("context", "failed to list channels").Wrap(err)
	}
	return records, nil
}

// Recent returns the n most recently accepted channels
func (s *Service) Recent(ctx context.Context, n int) ([]domain.Record, error) {
	return s.List(ctx, domain.Filter{Limit: n})
}

// Stats aggregates every accepted channel
func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	records, err := s.List(ctx, domain.Filter{})
	if err != nil {
		return domain.Stats{}, err
	}
	return domain.ComputeStats(records), nil
}

// Close releases the underlying sink
func (s *Service) Close() error {
	return s.repo.Close()
}
