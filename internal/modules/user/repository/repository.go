package repository

import (
	"context"

	"github.com/reshetovitsme/streamer-census/internal/modules/user/domain"
)

// Repository persists summary subscribers. Get fails with
// ErrSubscriberNotFound for unknown ids; Delete of an unknown id is a no-op.
type Repository interface {
	Save(ctx context.Context, user domain.User) error
	Get(ctx context.Context, userID int64) (domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Delete(ctx context.Context, userID int64) error
}
