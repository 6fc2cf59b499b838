package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/reshetovitsme/streamer-census/internal/modules/seen/domain"
	"github.com/reshetovitsme/streamer-census/internal/modules/seen/repository"
	"github.com/samber/oops"
)

// Store is the in-memory view of every processed channel, loaded once at
// startup. Marks are buffered and written to the repository on Flush.
type Store struct {
	repo   repository.Repository
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	records map[string]domain.Record
	pending []domain.Record
}

// New loads all records from repo.
func New(ctx context.Context, repo repository.Repository, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	loaded, err := repo.LoadAll(ctx)
	if err != nil {
		return nil, oops.With("context", "failed to load seen records").Wrap(err)
	}

	records := make(map[string]domain.Record, len(loaded))
	for _, r := range loaded {
		if _, ok := records[r.ChannelID]; !ok {
			records[r.ChannelID] = r
		}
	}
	logger.Info("seen store loaded", "records", len(records))

	return &Store{repo: repo, logger: logger, now: time.Now, records: records}, nil
}

// IsSeen reports whether channelID was already processed.
func (s *Store) IsSeen(channelID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[channelID]
	return ok
}

// MarkAccepted records channelID as accepted. It returns false if the id was already seen.
func (s *Store) MarkAccepted(channelID string) bool {
	return s.mark(domain.Accepted(channelID, s.now()))
}

// MarkRejected records channelID as rejected with reason. It returns false if the id was already seen.
func (s *Store) MarkRejected(channelID, reason string) bool {
	return s.mark(domain.Rejected(channelID, reason, s.now()))
}

func (s *Store) mark(r domain.Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[r.ChannelID]; ok {
		return false
	}
	s.records[r.ChannelID] = r
	s.pending = append(s.pending, r)
	return true
}

// Get returns the record for channelID.
func (s *Store) Get(channelID string) (domain.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[channelID]
	return r, ok
}

// Len is the number of seen channels.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Pending is the number of marks not yet flushed.
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// CountByReason groups rejected records by reason.
func (s *Store) CountByReason() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[string]int{}
	for _, r := range s.records {
		if r.Outcome == domain.OutcomeRejected {
			counts[r.Reason]++
		}
	}
	return counts
}

// Flush writes pending marks. On failure they stay pending for the next attempt.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return nil
	}
	if err := s.repo.Append(ctx, s.pending); err != nil {
		return oops.With("pending", len(s.pending), "context", "failed to flush seen records").Wrap(err)
	}
	s.logger.Debug("seen records flushed", "count", len(s.pending))
	s.pending = nil
	return nil
}
