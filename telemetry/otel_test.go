package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/campusapp/go-campusdata/logger"
)

type collector struct {
	*httptest.Server
	mu   sync.Mutex
	auth map[string]string
}

func newCollector(t *testing.T) *collector {
	c := &collector{auth: make(map[string]string)}
	c.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.mu.Lock()
		c.auth[r.URL.Path] = r.Header.Get("Authorization")
		c.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(c.Close)
	return c
}

func (c *collector) received(path string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	auth, ok := c.auth[path]
	return auth, ok
}

func TestNewExportsSpans(t *testing.T) {
	c := newCollector(t)
	log, shutdown, err := New(context.Background(), logger.NewTestLogger(), c.URL, "secret", "campusdata-test")
	require.NoError(t, err)
	require.NotNil(t, log)

	_, span := otel.GetTracerProvider().Tracer("test").Start(context.Background(), "datasource.remote.fetch")
	span.End()
	shutdown()

	auth, ok := c.received("/v1/traces")
	require.True(t, ok)
	assert.Equal(t, "Bearer secret", auth)
}

func TestNewShipsLogs(t *testing.T) {
	c := newCollector(t)
	local := logger.NewTestLogger()
	log, shutdown, err := New(context.Background(), local, c.URL, "secret", "campusdata-test")
	require.NoError(t, err)

	log.With(map[string]interface{}{"resource": "guides"}).Warn("primary source failed: %s", "503")
	shutdown()

	assert.True(t, local.Contains("WARN", "primary source failed: 503"))
	auth, ok := c.received("/v1/logs")
	require.True(t, ok)
	assert.Equal(t, "Bearer secret", auth)
}

func TestNewRejectsBadURL(t *testing.T) {
	_, _, err := New(context.Background(), logger.NewTestLogger(), "not a url", "", "campusdata-test")
	assert.Error(t, err)
}
