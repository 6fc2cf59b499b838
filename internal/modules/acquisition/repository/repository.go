package repository

import (
	"context"

	"github.com/reshetovitsme/streamer-census/internal/modules/acquisition/domain"
)

// Repository is the searches log.
type Repository interface {
	Append(ctx context.Context, record domain.SearchRecord) error
	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]domain.SearchRecord, error)
	Close() error
}
