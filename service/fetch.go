package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/campusapp/go-campusdata/datasource"
	"github.com/campusapp/go-campusdata/logger"
)

var (
	errInvalidUTF8  = errors.New("payload is not valid UTF-8")
	errTrailingData = errors.New("unexpected data after JSON value")
	errNullDocument = errors.New("payload is JSON null")
)

// Validator is implemented by payload types that check their own content
// after decoding.
type Validator interface {
	Validate() error
}

// FetchService fetches a source and decodes its JSON payload into T.
// It adds no retries; failures come back classified.
type FetchService[T any] struct {
	source datasource.ContentSource
	name   string
	logger logger.Logger
	tracer trace.Tracer
}

// FetchOption configures a FetchService.
type FetchOption func(*fetchConfig)

type fetchConfig struct {
	name string
}

// WithName labels logs and spans of the service.
func WithName(name string) FetchOption {
	return func(c *fetchConfig) { c.name = name }
}

// NewFetchService returns a service decoding whatever source produces.
func NewFetchService[T any](log logger.Logger, source datasource.ContentSource, opts ...FetchOption) *FetchService[T] {
	var c fetchConfig
	for _, opt := range opts {
		opt(&c)
	}
	if c.name != "" {
		log = log.With(map[string]interface{}{"resource": c.name})
	}
	return &FetchService[T]{
		source: source,
		name:   c.name,
		logger: log,
		tracer: otel.Tracer("github.com/campusapp/go-campusdata/service"),
	}
}

// New builds the source for cfg with b and wraps it in a FetchService.
// The graph is built once here and reused by every Fetch.
func New[T any](log logger.Logger, b SourceBuilder, cfg Configuration) (*FetchService[T], error) {
	source, err := b.Source(cfg)
	if err != nil {
		return nil, err
	}
	return NewFetchService[T](log, source, WithName(cfg.CacheKey())), nil
}

// Source returns the underlying source graph.
func (s *FetchService[T]) Source() datasource.ContentSource {
	return s.source
}

// Fetch returns the decoded payload. A source failure is returned as is,
// or as an unknown error if it carries no classification. A payload that
// does not decode or validate fails with a decoding error.
func (s *FetchService[T]) Fetch(ctx context.Context) (T, error) {
	ctx, span := s.tracer.Start(ctx, "service.fetch", trace.WithAttributes(attribute.String("campus.resource", s.name)))
	defer span.End()

	var zero T
	data, err := s.source.Fetch(ctx)
	if err != nil {
		err = datasource.Classify(err)
		s.logger.Debug("fetch failed: %s", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, datasource.KindOf(err).String())
		return zero, err
	}
	v, err := Decode[T](data)
	if err != nil {
		s.logger.Error("decoding failed: %s", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, datasource.KindDecodingFailed.String())
		return zero, err
	}
	span.SetAttributes(attribute.Int("campus.payload.size", len(data)))
	return v, nil
}

// Decode parses data as exactly one JSON value of type T and runs its
// Validate method if it has one. Failures return the zero T and a decoding
// error wrapping the cause.
func Decode[T any](data []byte) (T, error) {
	var zero, v T
	if !utf8.Valid(data) {
		return zero, datasource.DecodingFailed(errInvalidUTF8)
	}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return zero, datasource.DecodingFailed(errNullDocument)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&v); err != nil {
		return zero, datasource.DecodingFailed(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return zero, datasource.DecodingFailed(errTrailingData)
	}
	if err := validate(&v); err != nil {
		return zero, datasource.DecodingFailed(err)
	}
	return v, nil
}

func validate[T any](v *T) error {
	if val, ok := any(*v).(Validator); ok {
		return val.Validate()
	}
	if val, ok := any(v).(Validator); ok {
		return val.Validate()
	}
	return nil
}
