package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/reshetovitsme/streamer-census/internal/modules/cache/domain"
	"github.com/reshetovitsme/streamer-census/internal/modules/cache/repository"
	"github.com/reshetovitsme/streamer-census/internal/shared/metrics"
)

// Options configures one cache namespace.
type Options struct {
	Namespace string
	TTL       time.Duration
	// CompactEvery puts triggers a sweep of expired entries; 0 disables it.
	CompactEvery int
	Now          func() time.Time
}

// Cache is a namespaced TTL cache: an in-memory tier in front of a durable
// repository. Expired entries read as absent. Storage failures only cost
// quota, so they are logged and never returned.
type Cache struct {
	opts    Options
	repo    repository.Repository
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu   sync.RWMutex
	l1   map[string]domain.Entry
	puts int
}

// New creates a cache namespace over repo.
func New(repo repository.Repository, opts Options, logger *slog.Logger, m *metrics.Metrics) *Cache {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		opts:    opts,
		repo:    repo,
		logger:  logger.With("cache", opts.Namespace),
		metrics: m,
		l1:      map[string]domain.Entry{},
	}
}

// Key derives a stable cache key from call parameters.
func Key(parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(h[:16])
}

// Get returns the payload stored under key if it is still fresh.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	full := c.fullKey(key)
	now := c.opts.Now()

	c.mu.RLock()
	e, ok := c.l1[full]
	c.mu.RUnlock()
	if ok {
		if e.Fresh(now, c.opts.TTL) {
			c.metrics.IncCache(c.opts.Namespace, true)
			return e.Payload, true
		}
		c.mu.Lock()
		delete(c.l1, full)
		c.mu.Unlock()
	}

	e, ok, err := c.repo.Get(ctx, full)
	if err != nil {
		c.logger.Warn("cache read failed", "error", err)
	}
	if !ok || err != nil || !e.Fresh(now, c.opts.TTL) {
		c.metrics.IncCache(c.opts.Namespace, false)
		return nil, false
	}

	c.mu.Lock()
	c.l1[full] = e
	c.mu.Unlock()
	c.metrics.IncCache(c.opts.Namespace, true)
	return e.Payload, true
}

// Put stores payload under key.
func (c *Cache) Put(ctx context.Context, key string, payload []byte) {
	e := domain.Entry{Key: c.fullKey(key), Payload: payload, StoredAt: c.opts.Now()}

	c.mu.Lock()
	c.l1[e.Key] = e
	c.puts++
	compact := c.opts.CompactEvery > 0 && c.puts%c.opts.CompactEvery == 0
	c.mu.Unlock()

	if err := c.repo.Put(ctx, e, c.opts.TTL); err != nil {
		c.logger.Warn("cache write failed", "error", err)
	}
	if compact {
		c.compact(ctx)
	}
}

// Flush persists pending writes of the durable tier.
func (c *Cache) Flush(ctx context.Context) error {
	return c.repo.Flush(ctx)
}

func (c *Cache) compact(ctx context.Context) {
	cutoff := c.opts.Now().Add(-c.opts.TTL)

	c.mu.Lock()
	for key, e := range c.l1 {
		if e.StoredAt.Before(cutoff) {
			delete(c.l1, key)
		}
	}
	c.mu.Unlock()

	removed, err := c.repo.Compact(ctx, c.opts.Namespace+":", cutoff)
	if err != nil {
		c.logger.Warn("cache compaction failed", "error", err)
		return
	}
	if removed > 0 {
		c.logger.Debug("cache compacted", "removed", removed)
	}
}

func (c *Cache) fullKey(key string) string {
	return c.opts.Namespace + ":" + key
}

// GetJSON decodes a cached payload into T. Undecodable payloads read as a miss.
func GetJSON[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var zero T
	if c == nil {
		return zero, false
	}
	data, ok := c.Get(ctx, key)
	if !ok {
		return zero, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		c.logger.Debug("dropping undecodable cache entry", "error", err)
		return zero, false
	}
	return v, true
}

// PutJSON encodes v and stores it under key.
func PutJSON[T any](ctx context.Context, c *Cache, key string, v T) {
	if c == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("cache encode failed", "error", err)
		return
	}
	c.Put(ctx, key, data)
}
