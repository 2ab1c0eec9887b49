package logger

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/log"
)

// otelLogger emits each entry as an OpenTelemetry log record
type otelLogger struct {
	prefixes   []string
	metadata   map[string]log.Value
	logLevel   LogLevel
	otelLogger log.Logger
	ctx        context.Context
	now        func() time.Time
}

var _ Logger = (*otelLogger)(nil)

func (o *otelLogger) clone() *otelLogger {
	metadata := make(map[string]log.Value, len(o.metadata))
	for k, v := range o.metadata {
		metadata[k] = v
	}
	return &otelLogger{
		prefixes:   o.prefixes,
		metadata:   metadata,
		logLevel:   o.logLevel,
		otelLogger: o.otelLogger,
		ctx:        o.ctx,
		now:        o.now,
	}
}

func toLogValue(unknown interface{}) log.Value {
	switch v := unknown.(type) {
	case string:
		return log.StringValue(v)
	case int:
		return log.IntValue(v)
	case int64:
		return log.Int64Value(v)
	case bool:
		return log.BoolValue(v)
	case float64:
		return log.Float64Value(v)
	case []byte:
		return log.BytesValue(v)
	case time.Duration:
		return log.StringValue(v.String())
	case error:
		return log.StringValue(v.Error())
	case []interface{}:
		values := make([]log.Value, 0, len(v))
		for _, item := range v {
			values = append(values, toLogValue(item))
		}
		return log.SliceValue(values...)
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		values := make([]log.KeyValue, 0, len(v))
		for _, k := range keys {
			values = append(values, log.KeyValue{Key: k, Value: toLogValue(v[k])})
		}
		return log.MapValue(values...)
	default:
		return log.StringValue(fmt.Sprintf("%v", v))
	}
}

func (o *otelLogger) With(metadata map[string]interface{}) Logger {
	clone := o.clone()
	for k, v := range metadata {
		clone.metadata[k] = toLogValue(v)
	}
	return clone
}

// WithPrefix will return a new logger with a prefix prepended to the message
func (o *otelLogger) WithPrefix(prefix string) Logger {
	clone := o.clone()
	clone.prefixes = appendPrefix(o.prefixes, prefix)
	return clone
}

// WithContext binds ctx to emitted records so they carry its span.
func (o *otelLogger) WithContext(ctx context.Context) Logger {
	clone := o.clone()
	clone.ctx = ctx
	return clone
}

func (o *otelLogger) IsLevelEnabled(level LogLevel) bool {
	return level >= o.logLevel && level < LevelNone
}

func severityOf(level LogLevel) log.Severity {
	switch level {
	case LevelTrace:
		return log.SeverityTrace
	case LevelDebug:
		return log.SeverityDebug
	case LevelInfo:
		return log.SeverityInfo
	case LevelWarn:
		return log.SeverityWarn
	default:
		return log.SeverityError
	}
}

func (o *otelLogger) log(level LogLevel, msg string, args ...interface{}) {
	if !o.IsLevelEnabled(level) {
		return
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	if len(o.prefixes) > 0 {
		msg = strings.Join(o.prefixes, " ") + " " + msg
	}
	severity := severityOf(level)
	now := o.now()

	var record log.Record
	record.SetBody(log.StringValue(ansiColorStripper.ReplaceAllString(msg, "")))
	record.SetSeverity(severity)
	record.SetSeverityText(level.String())
	record.SetTimestamp(now)
	record.SetObservedTimestamp(now)
	for k, v := range o.metadata {
		record.AddAttributes(log.KeyValue{Key: k, Value: v})
	}
	o.otelLogger.Emit(o.ctx, record)
}

func (o *otelLogger) Trace(msg string, args ...interface{}) {
	o.log(LevelTrace, msg, args...)
}

func (o *otelLogger) Debug(msg string, args ...interface{}) {
	o.log(LevelDebug, msg, args...)
}

func (o *otelLogger) Info(msg string, args ...interface{}) {
	o.log(LevelInfo, msg, args...)
}

func (o *otelLogger) Warn(msg string, args ...interface{}) {
	o.log(LevelWarn, msg, args...)
}

func (o *otelLogger) Error(msg string, args ...interface{}) {
	o.log(LevelError, msg, args...)
}

func (o *otelLogger) Fatal(msg string, args ...interface{}) {
	o.log(LevelError, msg, args...)
	os.Exit(1)
}

// NewOtelLogger returns a Logger that emits records at or above level to l.
func NewOtelLogger(l log.Logger, level LogLevel) Logger {
	return &otelLogger{
		metadata:   make(map[string]log.Value),
		logLevel:   level,
		otelLogger: l,
		ctx:        context.Background(),
		now:        time.Now,
	}
}

// LevelOf returns the lowest level l has enabled, or LevelNone.
func LevelOf(l Logger) LogLevel {
	for level := LevelTrace; level < LevelNone; level++ {
		if l.IsLevelEnabled(level) {
			return level
		}
	}
	return LevelNone
}
