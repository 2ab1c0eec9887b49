package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusapp/go-campusdata/cache"
	"github.com/campusapp/go-campusdata/logger"
)

func TestLoadSettingsDefaults(t *testing.T) {
	s, err := LoadSettingsFrom(map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, BackendFile, s.CacheBackend)
	assert.Equal(t, 30*time.Second, s.RemoteTimeout)
	assert.Zero(t, s.RemoteRetries)
	assert.False(t, s.Breaker)
	assert.Equal(t, "campusdata", filepath.Base(s.CacheDir))
	assert.Equal(t, DefaultEnvironment, s.Env())
}

func TestLoadSettingsOverrides(t *testing.T) {
	s, err := LoadSettingsFrom(map[string]string{
		"SERVICE_ENV":           "cloudOnly",
		"CAMPUS_CACHE_BACKEND":  " SQLite ",
		"CAMPUS_CACHE_DIR":      "/tmp/campus",
		"CAMPUS_REMOTE_TIMEOUT": "5s",
		"CAMPUS_REMOTE_RETRIES": "2",
		"CAMPUS_BREAKER":        "true",
		"CAMPUS_CONFIG":         "campus.yaml",
	})
	require.NoError(t, err)
	assert.Equal(t, CloudOnly, s.Env())
	assert.Equal(t, BackendSQLite, s.CacheBackend)
	assert.Equal(t, "/tmp/campus", s.CacheDir)
	assert.Equal(t, 5*time.Second, s.RemoteTimeout)
	assert.Equal(t, 2, s.RemoteRetries)
	assert.True(t, s.Breaker)
	assert.Equal(t, "campus.yaml", s.ConfigPath)
	assert.Len(t, s.RemoteOptions(), 2)
	assert.Len(t, s.FactoryOptions(), 2)
}

func TestLoadSettingsRejectsBadDuration(t *testing.T) {
	_, err := LoadSettingsFrom(map[string]string{"CAMPUS_REMOTE_TIMEOUT": "soon"})
	assert.Error(t, err)
}

func TestOpenCacheBackends(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	for _, backend := range []string{BackendFile, BackendMemory, BackendRedis, BackendSQLite, BackendTiered} {
		t.Run(backend, func(t *testing.T) {
			s := Settings{
				CacheBackend: backend,
				CacheDir:     t.TempDir(),
				RedisURL:     "redis://" + mr.Addr() + "/0",
			}
			c, closer, err := OpenCache(ctx, logger.NewTestLogger(), s)
			require.NoError(t, err)
			defer closer()

			require.NoError(t, c.Store(ctx, "guides", []byte("payload")))
			data, found, err := c.Retrieve(ctx, "guides", time.Hour)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, []byte("payload"), data)

			_, ok := c.(cache.Inspector)
			assert.True(t, ok)
		})
	}
}

func TestOpenCacheUnknownBackend(t *testing.T) {
	_, closer, err := OpenCache(context.Background(), logger.NewTestLogger(), Settings{CacheBackend: "etcd"})
	assert.ErrorIs(t, err, ErrUnknownBackend)
	assert.NotNil(t, closer)
	assert.NoError(t, closer())
}
