package repository

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/reshetovitsme/streamer-census/internal/modules/channel/domain"
	"github.com/reshetovitsme/streamer-census/internal/shared/errors"
	"github.com/reshetovitsme/streamer-census/internal/shared/sqlitedb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(id, region, category string, at time.Time) domain.Record {
	return domain.Record{
		ChannelID:   id,
		Title:       "Canal " + id,
		Category:    category,
		Region:      region,
		Province:    "Córdoba",
		Subscribers: 1500,
		Confidence:  88,
		Method:      "province-mention",
		Indicators:  []string{"province:Córdoba", "live:keywords(2)"},
		DetectedAt:  at.UTC().Truncate(time.Second),
		URL:         "https://youtube.com/channel/" + id,
		Description: "Streams, \"charlas\" y mate\nnueva línea",
		LiveScore:   45,
	}
}

type storageFactory func(t *testing.T, dir string) Repository

func storages() map[string]storageFactory {
	return map[string]storageFactory{
		"csv": func(t *testing.T, dir string) Repository {
			s, err := NewFileStorage(dir)
			require.NoError(t, err)
			return s
		},
		"sqlite": func(t *testing.T, dir string) Repository {
			db, err := sqlitedb.Open(context.Background(), dir)
			require.NoError(t, err)
			t.Cleanup(func() { db.Close() })
			s, err := NewSQLiteStorage(context.Background(), db)
			require.NoError(t, err)
			return s
		},
	}
}

func TestStorage_SaveAndList(t *testing.T) {
	base := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	for name, open := range storages() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := open(t, t.TempDir())

			require.NoError(t, repo.Save(ctx, record("UC1", "centro", "Charlas", base)))
			require.NoError(t, repo.Save(ctx, record("UC2", "cuyo", "Gaming", base.Add(time.Hour))))
			require.NoError(t, repo.Save(ctx, record("UC3", "centro", "Gaming", base.Add(2*time.Hour))))

			all, err := repo.List(ctx, domain.Filter{})
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, "UC3", all[0].ChannelID)
			assert.Equal(t, "UC1", all[2].ChannelID)
			assert.Equal(t, record("UC1", "centro", "Charlas", base), all[2])

			centro, err := repo.List(ctx, domain.Filter{Region: "CENTRO"})
			require.NoError(t, err)
			assert.Len(t, centro, 2)

			gaming, err := repo.List(ctx, domain.Filter{Category: "gaming", Limit: 1})
			require.NoError(t, err)
			require.Len(t, gaming, 1)
			assert.Equal(t, "UC3", gaming[0].ChannelID)
		})
	}
}

func TestStorage_ExactlyOncePerID(t *testing.T) {
	at := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	for name, open := range storages() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			dir := t.TempDir()
			repo := open(t, dir)

			require.NoError(t, repo.Save(ctx, record("UC1", "centro", "Charlas", at)))
			err := repo.Save(ctx, record("UC1", "cuyo", "Gaming", at))
			assert.ErrorIs(t, err, errors.ErrAlreadyRecorded)

			// A fresh handle over the same files still refuses the duplicate.
			reopened := open(t, dir)
			err = reopened.Save(ctx, record("UC1", "cuyo", "Gaming", at))
			assert.ErrorIs(t, err, errors.ErrAlreadyRecorded)

			all, err := reopened.List(ctx, domain.Filter{})
			require.NoError(t, err)
			require.Len(t, all, 1)
			assert.Equal(t, "centro", all[0].Region)
		})
	}
}

func TestFileStorage_RebuildsIndexFromCSV(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	at := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

	s, err := NewFileStorage(dir)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, record("UC1", "centro", "Charlas", at)))
	require.NoError(t, os.Remove(filepath.Join(dir, "channels.csv.ids")))

	s, err = NewFileStorage(dir)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Save(ctx, record("UC1", "centro", "Charlas", at)), errors.ErrAlreadyRecorded)
}

func TestFileStorage_HeaderWrittenOnce(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	at := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

	s, err := NewFileStorage(dir)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, record("UC1", "centro", "Charlas", at)))
	require.NoError(t, s.Save(ctx, record("UC2", "centro", "Charlas", at)))

	data, err := os.ReadFile(filepath.Join(dir, "channels.csv"))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "channel_id,title,category"))
}

func TestFileStorage_SkipsTornRow(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	at := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

	s, err := NewFileStorage(dir)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, record("UC1", "centro", "Charlas", at)))

	f, err := os.OpenFile(filepath.Join(dir, "channels.csv"), os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("UC2,partial\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	all, err := s.List(ctx, domain.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestPostgresStorage(t *testing.T) {
	dsn := os.Getenv("CENSUS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CENSUS_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	s, err := NewPostgresStorage(ctx, dsn)
	require.NoError(t, err)
	defer s.Close()
	_, err = s.pool.Exec(ctx, "TRUNCATE channels")
	require.NoError(t, err)

	at := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	require.NoError(t, s.Save(ctx, record("UC1", "centro", "Charlas", at)))
	assert.ErrorIs(t, s.Save(ctx, record("UC1", "centro", "Charlas", at)), errors.ErrAlreadyRecorded)

	all, err := s.List(ctx, domain.Filter{Region: "centro"})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, at.Equal(all[0].DetectedAt))
}
