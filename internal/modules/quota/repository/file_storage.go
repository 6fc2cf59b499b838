package repository

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/reshetovitsme/streamer-census/internal/modules/quota/domain"
	"github.com/samber/oops"
)

// FileStorage keeps the ledger in a single JSON document.
type FileStorage struct {
	path string
	mu   sync.RWMutex
}

// NewFileStorage creates a file-based quota repository under basePath.
func NewFileStorage(basePath string) (*FileStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, oops.With("base_path", basePath, "context", "failed to create storage directory").Wrap(err)
	}
	return &FileStorage{path: filepath.Join(basePath, "quota.json")}, nil
}

func (s *FileStorage) Load() (domain.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.State{}, nil
		}
		return domain.State{}, oops.With("path", s.path, "context", "failed to read quota state").Wrap(err)
	}

	var state domain.State
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.State{}, oops.With("path", s.path, "context", "failed to unmarshal quota state").Wrap(err)
	}
	if state.Used == nil {
		state.Used = map[string]int{}
	}
	return state, nil
}

func (s *FileStorage) Save(state domain.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return oops.With("context", "failed to marshal quota state").Wrap(err)
	}

	// Write to a sibling file first so a crash never leaves a truncated ledger.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return oops.With("path", tmp, "context", "failed to write quota state").Wrap(err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return oops.With("path", s.path, "context", "failed to replace quota state").Wrap(err)
	}
	return nil
}
