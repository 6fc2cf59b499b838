package repository

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/reshetovitsme/streamer-census/internal/modules/seen/domain"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// FileStorage appends records as JSON lines to basePath/seen.jsonl.
type FileStorage struct {
	path string
	mu   sync.Mutex
	ids  map[string]struct{}
}

// NewFileStorage creates a file-based seen repository.
func NewFileStorage(basePath string) (*FileStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, oops.With("base_path", basePath, "context", "failed to create storage directory").Wrap(err)
	}
	return &FileStorage{path: filepath.Join(basePath, "seen.jsonl"), ids: map[string]struct{}{}}, nil
}

func (s *FileStorage) LoadAll(_ context.Context) ([]domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.Record{}, nil
		}
		return nil, oops.With("path", s.path, "context", "failed to open seen file").Wrap(err)
	}
	defer f.Close()

	var records []domain.Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var r domain.Record
		// A torn last line from a crash is skipped; the channel is simply re-processed.
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil || r.ChannelID == "" {
			continue
		}
		if _, dup := s.ids[r.ChannelID]; dup {
			continue
		}
		s.ids[r.ChannelID] = struct{}{}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, oops.With("path", s.path, "context", "failed to read seen file").Wrap(err)
	}
	return records, nil
}

func (s *FileStorage) Append(_ context.Context, records []domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := lo.Filter(records, func(r domain.Record, _ int) bool {
		_, dup := s.ids[r.ChannelID]
		return !dup
	})
	if len(fresh) == 0 {
		return nil
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return oops.With("path", s.path, "context", "failed to open seen file").Wrap(err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, r := range fresh {
		line, err := json.Marshal(r)
		if err != nil {
			return oops.With("channel_id", r.ChannelID, "context", "failed to marshal seen record").Wrap(err)
		}
		w.Write(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		return oops.With("path", s.path, "context", "failed to append seen records").Wrap(err)
	}
	if err := f.Sync(); err != nil {
		return oops.With("path", s.path, "context", "failed to sync seen file").Wrap(err)
	}

	for _, r := range fresh {
		s.ids[r.ChannelID] = struct{}{}
	}
	return nil
}

func (s *FileStorage) Close() error {
	return nil
}
