package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"

	"github.com/campusapp/go-campusdata/cache"
	"github.com/campusapp/go-campusdata/datasource"
	"github.com/campusapp/go-campusdata/logger"
	"github.com/campusapp/go-campusdata/resilience"
)

// Cache backends accepted by CAMPUS_CACHE_BACKEND.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendTiered = "tiered"
)

var ErrUnknownBackend = errors.New("unknown cache backend")

// Settings is the process configuration read from the environment.
type Settings struct {
	Environment   string        `env:"SERVICE_ENV"`
	CacheBackend  string        `env:"CAMPUS_CACHE_BACKEND"  envDefault:"file"`
	CacheDir      string        `env:"CAMPUS_CACHE_DIR"`
	RedisURL      string        `env:"CAMPUS_REDIS_URL"      envDefault:"redis://localhost:6379/0"`
	RemoteTimeout time.Duration `env:"CAMPUS_REMOTE_TIMEOUT" envDefault:"30s"`
	RemoteRetries int           `env:"CAMPUS_REMOTE_RETRIES" envDefault:"0"`
	Breaker       bool          `env:"CAMPUS_BREAKER"        envDefault:"false"`
	ConfigPath    string        `env:"CAMPUS_CONFIG"`
}

// LoadSettings reads Settings from the process environment.
func LoadSettings() (Settings, error) {
	return parseSettings(env.Options{})
}

// LoadSettingsFrom reads Settings from vars instead of the process
// environment.
func LoadSettingsFrom(vars map[string]string) (Settings, error) {
	return parseSettings(env.Options{Environment: vars})
}

func parseSettings(opts env.Options) (Settings, error) {
	var s Settings
	if err := env.ParseWithOptions(&s, opts); err != nil {
		return Settings{}, errors.Wrap(err, "parse settings")
	}
	s.CacheBackend = strings.ToLower(strings.TrimSpace(s.CacheBackend))
	if s.CacheDir == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			dir = os.TempDir()
		}
		s.CacheDir = filepath.Join(dir, "campusdata")
	}
	return s, nil
}

// Env resolves the configured environment. An empty or unrecognized value
// yields DefaultEnvironment.
func (s Settings) Env() Environment {
	return ResolveEnvironment(s.Environment)
}

// RemoteOptions returns the remote source options implied by s.
func (s Settings) RemoteOptions() []datasource.RemoteOption {
	opts := []datasource.RemoteOption{datasource.WithTimeout(s.RemoteTimeout)}
	if s.RemoteRetries > 0 {
		opts = append(opts, datasource.WithRetries(s.RemoteRetries))
	}
	return opts
}

// FactoryOptions returns the factory options implied by s.
func (s Settings) FactoryOptions() []FactoryOption {
	opts := []FactoryOption{WithRemoteOptions(s.RemoteOptions()...)}
	if s.Breaker {
		opts = append(opts, WithBreaker(resilience.DefaultConfig()))
	}
	return opts
}

// OpenCache opens the configured cache backend. The returned close function
// releases the backend and is never nil.
func OpenCache(ctx context.Context, log logger.Logger, s Settings) (cache.ByteCache, func() error, error) {
	noop := func() error { return nil }
	opts := []cache.Option{cache.WithLogger(log)}
	switch s.CacheBackend {
	case "", BackendFile:
		c, err := cache.NewFile(s.CacheDir, opts...)
		if err != nil {
			return nil, noop, err
		}
		return c, noop, nil
	case BackendMemory:
		return cache.NewKeyValue(cache.NewMemoryStore(), opts...), noop, nil
	case BackendRedis:
		ro, err := redis.ParseURL(s.RedisURL)
		if err != nil {
			return nil, noop, errors.Wrap(err, "parse redis url")
		}
		client := redis.NewClient(ro)
		return cache.NewKeyValue(cache.NewRedisStore(client, opts...), opts...), client.Close, nil
	case BackendSQLite:
		if err := os.MkdirAll(s.CacheDir, 0o755); err != nil {
			return nil, noop, errors.Wrap(err, "create cache dir")
		}
		c, err := cache.NewSQLite(ctx, filepath.Join(s.CacheDir, "cache.db"), opts...)
		if err != nil {
			return nil, noop, err
		}
		return c, c.Close, nil
	case BackendTiered:
		file, err := cache.NewFile(s.CacheDir, opts...)
		if err != nil {
			return nil, noop, err
		}
		return cache.NewTiered(cache.NewKeyValue(cache.NewMemoryStore(), opts...), file), noop, nil
	}
	return nil, noop, errors.Wrapf(ErrUnknownBackend, "%q", s.CacheBackend)
}
