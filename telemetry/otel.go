// Package telemetry ships logs and the spans recorded by remote fetches and
// typed fetch services to an OTLP collector.
package telemetry

import (
	"context"
	"net/url"
	"time"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"

	"github.com/campusapp/go-campusdata/logger"
)

// ShutdownFunc flushes pending records and stops the exporters.
type ShutdownFunc func()

func endpoint(base *url.URL, path string) string {
	u := *base
	u.Path = path
	return u.String()
}

// New installs a global tracer provider that batches spans to the OTLP/HTTP
// collector at serverURL, and returns a logger that writes to log and ships
// the same entries to the collector. A non-empty authToken is sent as a
// bearer token.
func New(ctx context.Context, log logger.Logger, serverURL string, authToken string, serviceName string) (logger.Logger, ShutdownFunc, error) {
	u, err := url.Parse(serverURL)
	if err != nil || u.Host == "" {
		return nil, nil, errors.Newf("invalid OTLP url %q", serverURL)
	}

	res, err := resource.New(
		ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithProcess(),
		resource.WithHost(),
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if errors.Is(err, resource.ErrPartialResource) || errors.Is(err, resource.ErrSchemaURLConflict) {
		log.Warn("telemetry resource incomplete: %s", err)
	} else if err != nil {
		return nil, nil, errors.Wrap(err, "create telemetry resource")
	}

	headers := make(map[string]string)
	if authToken != "" {
		headers["Authorization"] = "Bearer " + authToken
	}
	traceOpts := []otlptracehttp.Option{
		otlptracehttp.WithEndpointURL(endpoint(u, "/v1/traces")),
		otlptracehttp.WithHeaders(headers),
		otlptracehttp.WithTimeout(10 * time.Second),
		otlptracehttp.WithCompression(otlptracehttp.GzipCompression),
	}
	logOpts := []otlploghttp.Option{
		otlploghttp.WithEndpointURL(endpoint(u, "/v1/logs")),
		otlploghttp.WithHeaders(headers),
		otlploghttp.WithTimeout(10 * time.Second),
		otlploghttp.WithCompression(otlploghttp.GzipCompression),
	}
	if u.Scheme == "http" {
		traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
		logOpts = append(logOpts, otlploghttp.WithInsecure())
	}
	traceExporter, err := otlptracehttp.New(ctx, traceOpts...)
	if err != nil {
		return nil, nil, errors.Wrap(err, "create trace exporter")
	}
	logExporter, err := otlploghttp.New(ctx, logOpts...)
	if err != nil {
		return nil, nil, errors.Wrap(err, "create log exporter")
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(traceExporter),
	)
	otel.SetTracerProvider(tracerProvider)
	logProvider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
	)

	shipped := logger.NewOtelLogger(logProvider.Logger(serviceName), logger.LevelOf(log))
	return logger.NewMultiLogger(log, shipped), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := logProvider.Shutdown(ctx); err != nil {
			log.Warn("telemetry log shutdown: %s", err)
		}
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.Warn("telemetry trace shutdown: %s", err)
		}
	}, nil
}
