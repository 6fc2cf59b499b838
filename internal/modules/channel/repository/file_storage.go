package repository

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/reshetovitsme/streamer-census/internal/modules/channel/domain"
	"github.com/reshetovitsme/streamer-census/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// FileStorage appends accepted channels to basePath/channels.csv and keeps
// a one-id-per-line sidecar (channels.csv.ids) to enforce exactly-once writes.
type FileStorage struct {
	path    string
	idsPath string
	mu      sync.RWMutex
	ids     map[string]struct{}
}

// NewFileStorage opens the CSV sink, rebuilding the id index from the CSV
// when the sidecar is missing.
func NewFileStorage(basePath string) (*FileStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, oops.With("base_path", basePath, "context", "failed to create storage directory").Wrap(err)
	}

	s := &FileStorage{
		path:    filepath.Join(basePath, "channels.csv"),
		idsPath: filepath.Join(basePath, "channels.csv.ids"),
	}

	ids, err := readIDs(s.idsPath)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		records, err := s.readAll()
		if err != nil {
			return nil, err
		}
		ids = lo.SliceToMap(records, func(r domain.Record) (string, struct{}) {
			return r.ChannelID, struct{}{}
		})
	}
	s.ids = ids
	return s, nil
}

func (s *FileStorage) Save(_ context.Context, record domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[record.ChannelID]; exists {
		return oops.With("channel_id", record.ChannelID).Wrap(errors.ErrAlreadyRecorded)
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return oops.With("path", s.path, "context", "failed to open channels csv").Wrap(err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return oops.With("path", s.path).Wrap(err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		// BOM keeps spreadsheet tools from mangling accents.
		if _, err := f.Write(utf8BOM); err != nil {
			return oops.With("path", s.path, "context", "failed to write csv header").Wrap(err)
		}
		if err := w.Write(domain.Columns); err != nil {
			return oops.With("path", s.path, "context", "failed to write csv header").Wrap(err)
		}
	}
	if err := w.Write(record.Row()); err != nil {
		return oops.With("channel_id", record.ChannelID, "context", "failed to write csv row").Wrap(err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return oops.With("channel_id", record.ChannelID, "context", "failed to flush csv").Wrap(err)
	}
	if err := f.Sync(); err != nil {
		return oops.With("path", s.path).Wrap(err)
	}

	if err := appendID(s.idsPath, record.ChannelID); err != nil {
		return err
	}
	s.ids[record.ChannelID] = struct{}{}
	return nil
}

func (s *FileStorage) List(_ context.Context, filter domain.Filter) ([]domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, err := s.readAll()
	if err != nil {
		return nil, err
	}

	records = lo.Filter(records, func(r domain.Record, _ int) bool { return filter.Match(r) })
	// Appends arrive in detection order; newest first is the reverse.
	slices.Reverse(records)
	if filter.Limit > 0 && len(records) > filter.Limit {
		records = records[:filter.Limit]
	}
	return records, nil
}

func (s *FileStorage) Close() error {
	return nil
}

func (s *FileStorage) readAll() ([]domain.Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.Record{}, nil
		}
		return nil, oops.With("path", s.path, "context", "failed to open channels csv").Wrap(err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	if head, _ := br.Peek(len(utf8BOM)); string(head) == string(utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	r := csv.NewReader(br)
	r.FieldsPerRecord = -1
	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return []domain.Record{}, nil
		}
		return nil, oops.With("path", s.path, "context", "failed to read csv header").Wrap(err)
	}

	records := []domain.Record{}
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, oops.With("path", s.path, "context", "failed to read csv row").Wrap(err)
		}
		record, err := domain.ParseRow(row)
		if err != nil {
			// A torn trailing row from a crash is skipped, never fatal.
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func readIDs(path string) (map[string]struct{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]struct{}{}, nil
		}
		return nil, oops.With("path", path, "context", "failed to read id index").Wrap(err)
	}
	ids := lo.FilterMap(strings.Split(string(data), "\n"), func(line string, _ int) (string, bool) {
		line = strings.TrimSpace(line)
		return line, line != ""
	})
	return lo.SliceToMap(ids, func(id string) (string, struct{}) { return id, struct{}{} }), nil
}

func appendID(path, id string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return oops.With("path", path, "context", "failed to open id index").Wrap(err)
	}
	defer f.Close()
	if _, err := f.WriteString(id + "\n"); err != nil {
		return oops.With("path", path, "channel_id", id, "context", "failed to append id").Wrap(err)
	}
	return nil
}
