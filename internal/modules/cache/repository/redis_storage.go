package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/reshetovitsme/streamer-census/internal/modules/cache/domain"
	"github.com/samber/oops"
)

const redisKeyPrefix = "census:cache:"

// RedisStorage keeps entries in Redis and lets Redis expire them.
type RedisStorage struct {
	rdb *redis.Client
}

// NewRedisStorage connects to redisURL and pings it.
func NewRedisStorage(ctx context.Context, redisURL string) (*RedisStorage, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, oops.With("context", "invalid redis url").Wrap(err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, oops.With("context", "redis unreachable").Wrap(err)
	}
	return &RedisStorage{rdb: rdb}, nil
}

func (s *RedisStorage) Get(ctx context.Context, key string) (domain.Entry, bool, error) {
	data, err := s.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Entry{}, false, nil
	}
	if err != nil {
		return domain.Entry{}, false, oops.With("key", key).Wrap(err)
	}

	var e domain.Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return domain.Entry{}, false, nil
	}
	return e, true, nil
}

func (s *RedisStorage) Put(ctx context.Context, entry domain.Entry, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return oops.With("key", entry.Key).Wrap(err)
	}
	if err := s.rdb.Set(ctx, redisKeyPrefix+entry.Key, data, ttl).Err(); err != nil {
		return oops.With("key", entry.Key).Wrap(err)
	}
	return nil
}

// Compact is a no-op: Redis expires keys on its own.
func (s *RedisStorage) Compact(context.Context, string, time.Time) (int, error) {
	return 0, nil
}

func (s *RedisStorage) Flush(context.Context) error {
	return nil
}

func (s *RedisStorage) Close() error {
	return s.rdb.Close()
}
