package repository

import (
	"cmp"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/reshetovitsme/streamer-census/internal/modules/user/domain"
	"github.com/reshetovitsme/streamer-census/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

const subscribersFile = "subscribers.json"

// FileStorage keeps every subscriber in one JSON document, rewritten
// through a temp file on each change.
type FileStorage struct {
	path string
	mu   sync.RWMutex
	byID map[int64]domain.User
}

// NewFileStorage loads basePath/subscribers.json, creating basePath if needed.
func NewFileStorage(basePath string) (*FileStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, oops.With("base_path", basePath, "context", "failed to create storage directory").Wrap(err)
	}

	s := &FileStorage{path: filepath.Join(basePath, subscribersFile), byID: map[int64]domain.User{}}
	data, err := os.ReadFile(s.path)
	switch {
	case os.IsNotExist(err):
		return s, nil
	case err != nil:
		return nil, oops.With("path", s.path, "context", "failed to read subscribers").Wrap(err)
	}

	var users []domain.User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, oops.With("path", s.path, "context", "failed to unmarshal subscribers").Wrap(err)
	}
	s.byID = lo.KeyBy(users, func(u domain.User) int64 { return u.ID })
	return s, nil
}

func (s *FileStorage) Save(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.byID[user.ID]
	s.byID[user.ID] = user
	if err := s.persist(); err != nil {
		if existed {
			s.byID[user.ID] = prev
		} else {
			delete(s.byID, user.ID)
		}
		return oops.With("user_id", user.ID).Wrap(err)
	}
	return nil
}

func (s *FileStorage) Get(_ context.Context, userID int64) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byID[userID]
	if !ok {
		return domain.User{}, oops.With("user_id", userID).Wrap(errors.ErrSubscriberNotFound)
	}
	return user, nil
}

func (s *FileStorage) List(_ context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(), nil
}

func (s *FileStorage) Delete(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.byID[userID]
	if !ok {
		return nil
	}
	delete(s.byID, userID)
	if err := s.persist(); err != nil {
		s.byID[userID] = prev
		return oops.With("user_id", userID).Wrap(err)
	}
	return nil
}

func (s *FileStorage) sorted() []domain.User {
	users := lo.Values(s.byID)
	slices.SortFunc(users, func(a, b domain.User) int { return cmp.Compare(a.ID, b.ID) })
	return users
}

// persist must hold mu.
func (s *FileStorage) persist() error {
	data, err := json.MarshalIndent(s.sorted(), "", "  ")
	if err != nil {
		return oops.With("context", "failed to marshal subscribers").Wrap(err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return oops.With("path", tmp, "context", "failed to write subscribers").Wrap(err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return oops.With("path", s.path, "context", "failed to replace subscribers").Wrap(err)
	}
	return nil
}
