package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/reshetovitsme/streamer-census/internal/modules/cache/domain"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// FileStorage holds every entry in memory and writes them to one JSON
// document every flushEvery puts and on Flush.
type FileStorage struct {
	path       string
	flushEvery int
	mu         sync.RWMutex
	entries    map[string]domain.Entry
	pending    int
}

// NewFileStorage loads basePath/cache.json if present.
func NewFileStorage(basePath string, flushEvery int) (*FileStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, oops.With("base_path", basePath, "context", "failed to create storage directory").Wrap(err)
	}

	s := &FileStorage{
		path:       filepath.Join(basePath, "cache.json"),
		flushEvery: flushEvery,
		entries:    map[string]domain.Entry{},
	}

	data, err := os.ReadFile(s.path)
	switch {
	case os.IsNotExist(err):
		return s, nil
	case err != nil:
		return nil, oops.With("path", s.path, "context", "failed to read cache file").Wrap(err)
	}

	var stored []domain.Entry
	if err := json.Unmarshal(data, &stored); err != nil {
		// A damaged cache only costs quota; start empty instead of failing the run.
		return s, nil
	}
	s.entries = lo.SliceToMap(stored, func(e domain.Entry) (string, domain.Entry) {
		return e.Key, e
	})
	return s, nil
}

func (s *FileStorage) Get(_ context.Context, key string) (domain.Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok, nil
}

func (s *FileStorage) Put(ctx context.Context, entry domain.Entry, _ time.Duration) error {
	s.mu.Lock()
	s.entries[entry.Key] = entry
	s.pending++
	due := s.flushEvery > 0 && s.pending >= s.flushEvery
	s.mu.Unlock()

	if due {
		return s.Flush(ctx)
	}
	return nil
}

func (s *FileStorage) Compact(_ context.Context, prefix string, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, e := range s.entries {
		if strings.HasPrefix(key, prefix) && e.StoredAt.Before(cutoff) {
			delete(s.entries, key)
			removed++
		}
	}
	if removed > 0 {
		s.pending++
	}
	return removed, nil
}

func (s *FileStorage) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == 0 {
		return nil
	}

	data, err := json.Marshal(lo.Values(s.entries))
	if err != nil {
		return oops.With("context", "failed to marshal cache").Wrap(err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return oops.With("path", tmp, "context", "failed to write cache").Wrap(err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return oops.With("path", s.path, "context", "failed to replace cache").Wrap(err)
	}
	s.pending = 0
	return nil
}

func (s *FileStorage) Close() error {
	return s.Flush(context.Background())
}

// Len is the number of stored entries, fresh or not.
func (s *FileStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
