package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/reshetovitsme/streamer-census/internal/modules/cache/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type payload struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func newCache(t *testing.T, dir string, c *clock, compactEvery int) (*Cache, *repository.FileStorage) {
	t.Helper()
	repo, err := repository.NewFileStorage(dir, 1)
	require.NoError(t, err)
	return New(repo, Options{Namespace: "detail", TTL: time.Hour, CompactEvery: compactEvery, Now: c.Now}, nil, nil), repo
}

func TestCache_PutGet(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)}
	cache, _ := newCache(t, t.TempDir(), c, 0)

	PutJSON(ctx, cache, "UC1", payload{ID: "UC1", Title: "Mate y Stream"})

	got, ok := GetJSON[payload](ctx, cache, "UC1")
	require.True(t, ok)
	assert.Equal(t, "Mate y Stream", got.Title)

	_, ok = GetJSON[payload](ctx, cache, "UC2")
	assert.False(t, ok)
}

func TestCache_ExpiredEntryIsAbsent(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)}
	cache, _ := newCache(t, t.TempDir(), c, 0)

	cache.Put(ctx, "k", []byte(`1`))
	c.Advance(59 * time.Minute)
	_, ok := cache.Get(ctx, "k")
	assert.True(t, ok)

	c.Advance(time.Minute)
	_, ok = cache.Get(ctx, "k")
	assert.False(t, ok)
}

func TestCache_SurvivesRestart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c := &clock{now: time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)}

	first, _ := newCache(t, dir, c, 0)
	PutJSON(ctx, first, "UC1", payload{ID: "UC1"})
	require.NoError(t, first.Flush(ctx))

	second, _ := newCache(t, dir, c, 0)
	got, ok := GetJSON[payload](ctx, second, "UC1")
	require.True(t, ok)
	assert.Equal(t, "UC1", got.ID)

	c.Advance(2 * time.Hour)
	third, _ := newCache(t, dir, c, 0)
	_, ok = GetJSON[payload](ctx, third, "UC1")
	assert.False(t, ok)
}

func TestCache_NamespacesDoNotCollide(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)}
	repo, err := repository.NewFileStorage(t.TempDir(), 0)
	require.NoError(t, err)

	search := New(repo, Options{Namespace: "search", TTL: time.Hour, Now: c.Now}, nil, nil)
	detail := New(repo, Options{Namespace: "detail", TTL: time.Hour, Now: c.Now}, nil, nil)

	search.Put(ctx, "same", []byte(`"search"`))
	detail.Put(ctx, "same", []byte(`"detail"`))

	got, ok := search.Get(ctx, "same")
	require.True(t, ok)
	assert.Equal(t, `"search"`, string(got))
}

func TestCache_CompactionOnWrite(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)}
	cache, repo := newCache(t, t.TempDir(), c, 2)

	cache.Put(ctx, "old", []byte(`1`))
	c.Advance(2 * time.Hour)
	cache.Put(ctx, "new", []byte(`2`))

	assert.Equal(t, 1, repo.Len())
}

func TestCache_UndecodablePayloadIsMiss(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)}
	cache, _ := newCache(t, t.TempDir(), c, 0)

	cache.Put(ctx, "k", []byte(`"not an object"`))
	_, ok := GetJSON[payload](ctx, cache, "k")
	assert.False(t, ok)
}

func TestKey_IsStable(t *testing.T) {
	assert.Equal(t, Key("search", "en vivo", ""), Key("search", "en vivo", ""))
	assert.NotEqual(t, Key("a", "bc"), Key("ab", "c"))
}
