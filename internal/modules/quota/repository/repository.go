package repository

import "github.com/reshetovitsme/streamer-census/internal/modules/quota/domain"

// Repository persists the quota ledger between runs.
type Repository interface {
	// Load returns the last saved state, or a zero State when nothing was saved yet.
	Load() (domain.State, error)
	Save(state domain.State) error
}
