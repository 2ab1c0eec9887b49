package cache

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	client       *redis.Client
	queryTimeout time.Duration
}

var _ KeyValueStore = (*redisStore)(nil)

// NewRedisStore returns a KeyValueStore backed by Redis, suitable for
// sharing a KeyValueCache across processes.
// The caller owns the redis.Client lifecycle.
func NewRedisStore(client *redis.Client, opts ...Option) KeyValueStore {
	cfg := applyOptions(opts)
	return &redisStore{client: client, queryTimeout: cfg.queryTimeout}
}

func (s *redisStore) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, s.queryTimeout)
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	data, err := s.client.Get(qctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *redisStore) Set(ctx context.Context, key string, val []byte) error {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	// entries never carry a Redis TTL, staleness is decided at read time
	return s.client.Set(qctx, key, val, 0).Err()
}

func (s *redisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	return s.client.Del(qctx, keys...).Err()
}

func (s *redisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	var keys []string
	iter := s.client.Scan(qctx, 0, escapeGlob(prefix)+"*", 100).Iterator()
	for iter.Next(qctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

func escapeGlob(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
