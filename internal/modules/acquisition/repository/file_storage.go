package repository

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/reshetovitsme/streamer-census/internal/modules/acquisition/domain"
	"github.com/samber/oops"
)

// FileStorage appends the searches log as JSON lines to basePath/searches.jsonl.
type FileStorage struct {
	path string
	mu   sync.Mutex
}

// NewFileStorage creates a file-based searches log.
func NewFileStorage(basePath string) (*FileStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, oops.With("base_path", basePath, "context", "failed to create storage directory").Wrap(err)
	}
	return &FileStorage{path: filepath.Join(basePath, "searches.jsonl")}, nil
}

func (s *FileStorage) Append(_ context.Context, r domain.SearchRecord) error {
	line, err := json.Marshal(r)
	if err != nil {
		return oops.With("query", r.Query, "context", "failed to marshal search").Wrap(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return oops.With("path", s.path, "context", "failed to open searches file").Wrap(err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return oops.With("path", s.path, "context", "failed to log search").Wrap(err)
	}
	return nil
}

func (s *FileStorage) Recent(_ context.Context, limit int) ([]domain.SearchRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.SearchRecord{}, nil
		}
		return nil, oops.With("path", s.path, "context", "failed to open searches file").Wrap(err)
	}
	defer f.Close()

	records := []domain.SearchRecord{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var r domain.SearchRecord
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			continue
		}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, oops.With("path", s.path, "context", "failed to read searches file").Wrap(err)
	}

	slices.Reverse(records)
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (s *FileStorage) Close() error {
	return nil
}
