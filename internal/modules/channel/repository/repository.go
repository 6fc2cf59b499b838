package repository

import (
	"context"

	"github.com/reshetovitsme/streamer-census/internal/modules/channel/domain"
)

// Repository is the append-only sink for accepted channels. Save fails with
// ErrAlreadyRecorded when the channel id was written before; List returns
// newest first.
type Repository interface {
	Save(ctx context.Context, record domain.Record) error
	List(ctx context.Context, filter domain.Filter) ([]domain.Record, error)
	Close() error
}
