package datasource

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/campusapp/go-campusdata/cache"
	"github.com/campusapp/go-campusdata/logger"
)

// DefaultCacheExpiration is the age after which a cached payload is refetched.
const DefaultCacheExpiration = time.Hour

// CachedSource wraps a source with cache-aside reads: a fresh cache entry
// is returned without touching the wrapped source, otherwise the wrapped
// source is fetched and a successful result is stored.
type CachedSource struct {
	inner      ContentSource
	cache      cache.ByteCache
	key        string
	expiration time.Duration
	logger     logger.Logger
	group      *singleflight.Group
}

var _ ContentSource = (*CachedSource)(nil)

// CachedOption configures a CachedSource.
type CachedOption func(*CachedSource)

// WithCoalescing makes concurrent misses for the same source share one
// fetch of the wrapped source. Without it every concurrent miss fetches
// independently.
func WithCoalescing() CachedOption {
	return func(s *CachedSource) { s.group = &singleflight.Group{} }
}

// NewCached wraps inner with c under key. A non-positive expiration uses
// DefaultCacheExpiration.
func NewCached(log logger.Logger, inner ContentSource, c cache.ByteCache, key string, expiration time.Duration, opts ...CachedOption) *CachedSource {
	if expiration <= 0 {
		expiration = DefaultCacheExpiration
	}
	s := &CachedSource{
		inner:      inner,
		cache:      c,
		key:        key,
		expiration: expiration,
		logger:     log.WithPrefix("[cache]"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the cache key.
func (s *CachedSource) Key() string {
	return s.key
}

// Expiration returns the maximum age of a cached payload served by Fetch.
func (s *CachedSource) Expiration() time.Duration {
	return s.expiration
}

// Fetch returns the cached payload if it is younger than the expiration and
// otherwise fetches the wrapped source. A failure of the wrapped source is
// returned unchanged.
func (s *CachedSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := canceled(ctx); err != nil {
		return nil, err
	}
	data, found, err := s.cache.Retrieve(ctx, s.key, s.expiration)
	if err != nil {
		s.logger.Warn("cache read failed for '%s', treating as miss: %s", s.key, err)
	} else if found {
		s.logger.Debug("using cached data for '%s' (%d bytes)", s.key, len(data))
		return data, nil
	}
	s.logger.Debug("cache miss or expired for '%s', fetching fresh data", s.key)
	if s.group == nil {
		return s.refresh(ctx)
	}
	ch := s.group.DoChan(s.key, func() (interface{}, error) {
		return s.refresh(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, Unknown(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		shared := res.Val.([]byte)
		if !res.Shared {
			return shared, nil
		}
		out := make([]byte, len(shared))
		copy(out, shared)
		return out, nil
	}
}

func (s *CachedSource) refresh(ctx context.Context) ([]byte, error) {
	data, err := s.inner.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Store(ctx, s.key, data); err != nil {
		s.logger.Warn("could not cache fresh data for '%s': %s", s.key, err)
	} else {
		s.logger.Debug("cached fresh data for '%s'", s.key)
	}
	return data, nil
}

// FetchWithStaleFallback behaves like Fetch, but when Fetch fails it serves
// the cached payload regardless of age before giving up with Fetch's error.
func (s *CachedSource) FetchWithStaleFallback(ctx context.Context) ([]byte, error) {
	data, err := s.Fetch(ctx)
	if err == nil {
		return data, nil
	}
	stale, found, cerr := s.cache.Retrieve(context.WithoutCancel(ctx), s.key, cache.NoMaxAge)
	if cerr == nil && found {
		s.logger.Warn("primary failed, using stale cache for '%s': %s", s.key, err)
		return stale, nil
	}
	return nil, err
}

// StaleFallback exposes FetchWithStaleFallback as a ContentSource so it can
// be composed like any other source.
func (s *CachedSource) StaleFallback() ContentSource {
	return Func(s.FetchWithStaleFallback)
}
