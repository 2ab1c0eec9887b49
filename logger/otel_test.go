package logger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/noop"
)

type recordingLogger struct {
	noop.Logger
	mu      sync.Mutex
	records []log.Record
}

func (r *recordingLogger) Emit(_ context.Context, record log.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
}

func attributes(record log.Record) map[string]string {
	out := make(map[string]string)
	record.WalkAttributes(func(kv log.KeyValue) bool {
		out[kv.Key] = kv.Value.String()
		return true
	})
	return out
}

func TestOtelLoggerEmitsRecords(t *testing.T) {
	rec := &recordingLogger{}
	l := NewOtelLogger(rec, LevelInfo).
		WithPrefix("[campus]").
		With(map[string]interface{}{"resource": "guides", "attempt": 2})

	l.Debug("dropped")
	l.Warn("primary source failed: %s", "503")

	require.Len(t, rec.records, 1)
	r := rec.records[0]
	assert.Equal(t, "[campus] primary source failed: 503", r.Body().AsString())
	assert.Equal(t, log.SeverityWarn, r.Severity())
	assert.Equal(t, "WARN", r.SeverityText())
	assert.Equal(t, map[string]string{"resource": "guides", "attempt": "2"}, attributes(r))
}

func TestOtelLoggerWithMergesMetadata(t *testing.T) {
	base := NewOtelLogger(&recordingLogger{}, LevelTrace).With(map[string]interface{}{
		"base_key": "base_value",
		"shared":   "from_base",
	}).(*otelLogger)
	extended := base.With(map[string]interface{}{
		"extra_key": "extra_value",
		"shared":    "from_extended",
	}).(*otelLogger)

	assert.Len(t, extended.metadata, 3)
	assert.Equal(t, "from_extended", extended.metadata["shared"].AsString())
	assert.Equal(t, "from_base", base.metadata["shared"].AsString())
}

func TestMultiLoggerFansOut(t *testing.T) {
	rec := &recordingLogger{}
	local := NewTestLogger()
	l := NewMultiLogger(local, NewOtelLogger(rec, LevelWarn))

	l.Info("cache miss")
	l.With(map[string]interface{}{"resource": "account"}).Error("decoding failed")

	assert.True(t, local.Contains("INFO", "cache miss"))
	assert.True(t, local.Contains("ERROR", "decoding failed"))
	require.Len(t, rec.records, 1)
	assert.Equal(t, "decoding failed", rec.records[0].Body().AsString())
	assert.True(t, l.IsLevelEnabled(LevelDebug))
	assert.Equal(t, LevelWarn, LevelOf(NewOtelLogger(rec, LevelWarn)))
	assert.Same(t, local, NewMultiLogger(local))
}
