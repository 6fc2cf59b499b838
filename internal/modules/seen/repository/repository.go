package repository

import (
	"context"

	"github.com/reshetovitsme/streamer-census/internal/modules/seen/domain"
)

// Repository is an append-only store of seen records.
type Repository interface {
	LoadAll(ctx context.Context) ([]domain.Record, error)
	// Append stores records, ignoring ids that are already present.
	Append(ctx context.Context, records []domain.Record) error
	Close() error
}
