package repository

import (
	"context"
	"time"

	"github.com/reshetovitsme/streamer-census/internal/modules/cache/domain"
)

// Repository is the durable tier behind the in-memory response cache.
// Implementations never decide freshness; the service checks StoredAt.
type Repository interface {
	Get(ctx context.Context, key string) (domain.Entry, bool, error)
	Put(ctx context.Context, entry domain.Entry, ttl time.Duration) error
	// Compact drops entries under prefix stored before cutoff and returns how many went.
	Compact(ctx context.Context, prefix string, cutoff time.Time) (int, error)
	Flush(ctx context.Context) error
	Close() error
}
