package cache

import (
	"context"
	"time"

	"github.com/campusapp/go-campusdata/logger"
)

// NoMaxAge disables the age filter on Retrieve.
const NoMaxAge time.Duration = 0

// ByteCache stores opaque payloads keyed by string, each stamped with the
// time it was stored.
type ByteCache interface {
	// Store writes payload under key. The payload and its timestamp are
	// replaced as a unit.
	Store(ctx context.Context, key string, payload []byte) error
	// Retrieve returns the payload stored under key. With maxAge > 0 an
	// entry older than maxAge, or one without a readable timestamp, is
	// reported as absent. Stale entries are never deleted by Retrieve.
	Retrieve(ctx context.Context, key string, maxAge time.Duration) ([]byte, bool, error)
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	// ClearAll removes every entry in this cache's namespace and nothing else.
	ClearAll(ctx context.Context) error
}

// Inspector is implemented by caches that can return an entry together
// with its timestamp regardless of age.
type Inspector interface {
	Entry(ctx context.Context, key string) (Entry, bool, error)
}

// Entry is one cached payload together with the time it was written.
type Entry struct {
	Key      string    `msgpack:"k"`
	Payload  []byte    `msgpack:"p"`
	StoredAt time.Time `msgpack:"t"`
}

// Age returns how long ago the entry was stored relative to now.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.StoredAt)
}

// Fresh reports whether the entry may be served for a read bounded by maxAge.
// A zero StoredAt carries no reliable age and is never fresh for a bounded read.
func (e Entry) Fresh(now time.Time, maxAge time.Duration) bool {
	if maxAge <= NoMaxAge {
		return true
	}
	if e.StoredAt.IsZero() {
		return false
	}
	return e.Age(now) <= maxAge
}

// DefaultQueryTimeout is the per-operation timeout for cache backends that
// perform I/O (SQLite, Redis).
const DefaultQueryTimeout = 5 * time.Second

// DefaultPrefix namespaces key-value backed entries.
const DefaultPrefix = "cache_"

// config holds the resolved configuration for a cache implementation.
type config struct {
	queryTimeout time.Duration
	prefix       string
	now          func() time.Time
	logger       logger.Logger
}

// Option configures a ByteCache implementation.
type Option func(*config)

func defaultConfig() config {
	return config{
		queryTimeout: DefaultQueryTimeout,
		prefix:       DefaultPrefix,
		now:          time.Now,
	}
}

func applyOptions(opts []Option) config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithQueryTimeout sets the per-operation timeout for I/O-backed caches
// (SQLite, Redis). Defaults to DefaultQueryTimeout (5 seconds).
func WithQueryTimeout(d time.Duration) Option {
	return func(c *config) { c.queryTimeout = d }
}

// WithPrefix sets the namespace for the cache. For key-value stores it is
// prepended to every key; for SQLite it is the namespace column.
// Defaults to DefaultPrefix. Namespaces may nest: ClearAll on "cache_" leaves
// the entries of a cache using "cache_guides_".
func WithPrefix(p string) Option {
	return func(c *config) { c.prefix = p }
}

// WithClock replaces time.Now for stamping and age checks.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// WithLogger sets the logger used for diagnostics such as unreadable entries.
func WithLogger(l logger.Logger) Option {
	return func(c *config) { c.logger = l }
}

func (c config) warn(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}

func (c config) withTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if c.queryTimeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, c.queryTimeout)
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
