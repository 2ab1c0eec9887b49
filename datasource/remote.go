package datasource

import (
	"context"
	"io"
	"math"
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/campusapp/go-campusdata/logger"
	"github.com/campusapp/go-campusdata/resilience"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

const (
	// DefaultTimeout bounds a single remote request.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxBytes bounds the accepted response body.
	DefaultMaxBytes int64 = 32 << 20
)

var errBodyTooLarge = errors.New("response body exceeds limit")

// UserAgent identifies the client on remote requests.
func UserAgent() string {
	gitSHA := Commit
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				gitSHA = setting.Value
			}
		}
	}
	return "campusdata/" + Version + " (" + gitSHA + ")"
}

// RemoteSource fetches a resource with an HTTP GET. Only 2xx responses
// succeed; anything else is a network error.
type RemoteSource struct {
	url      *url.URL
	client   *http.Client
	timeout  time.Duration
	retries  int
	backoff  time.Duration
	maxBytes int64
	breaker  *resilience.Breaker
	logger   logger.Logger
	tracer   trace.Tracer
}

var _ ContentSource = (*RemoteSource)(nil)

// RemoteOption configures a RemoteSource.
type RemoteOption func(*RemoteSource)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(s *RemoteSource) { s.client = c }
}

// WithTimeout bounds each request. Defaults to DefaultTimeout.
func WithTimeout(d time.Duration) RemoteOption {
	return func(s *RemoteSource) { s.timeout = d }
}

// WithRetries retries connection resets and 408/429/502/503/504 responses
// up to n more times with exponential backoff starting at 150ms.
func WithRetries(n int) RemoteOption {
	return func(s *RemoteSource) { s.retries = n }
}

// WithBackoff changes the first retry delay. Later delays double.
func WithBackoff(d time.Duration) RemoteOption {
	return func(s *RemoteSource) { s.backoff = d }
}

// WithMaxBytes bounds the response body. Defaults to DefaultMaxBytes.
func WithMaxBytes(n int64) RemoteOption {
	return func(s *RemoteSource) { s.maxBytes = n }
}

// WithBreaker guards the source with a circuit breaker. While the breaker
// is open Fetch fails immediately with a network error.
func WithBreaker(b *resilience.Breaker) RemoteOption {
	return func(s *RemoteSource) { s.breaker = b }
}

// ParseURL validates raw as an absolute http or https URL.
func ParseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, InvalidURL(raw)
	}
	return u, nil
}

// NewRemote returns a source fetching u. It fails with an invalid URL
// error unless u is an absolute http or https URL.
func NewRemote(log logger.Logger, u *url.URL, opts ...RemoteOption) (*RemoteSource, error) {
	if u == nil {
		return nil, InvalidURL("")
	}
	parsed, err := ParseURL(u.String())
	if err != nil {
		return nil, err
	}
	s := &RemoteSource{
		url:      parsed,
		client:   http.DefaultClient,
		timeout:  DefaultTimeout,
		backoff:  150 * time.Millisecond,
		maxBytes: DefaultMaxBytes,
		logger:   log.WithPrefix("[remote]"),
		tracer:   otel.Tracer("github.com/campusapp/go-campusdata/datasource"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// URL returns the fetched URL.
func (s *RemoteSource) URL() string {
	return s.url.String()
}

func (s *RemoteSource) Fetch(ctx context.Context) ([]byte, error) {
	ctx, span := s.tracer.Start(ctx, "datasource.remote.fetch", trace.WithAttributes(attribute.String("url.full", s.url.String())))
	defer span.End()

	var data []byte
	fetch := func(ctx context.Context) error {
		var err error
		data, err = s.fetchWithRetry(ctx)
		return err
	}
	var err error
	if s.breaker != nil {
		err = s.breaker.Execute(ctx, fetch)
		if errors.Is(err, resilience.ErrOpen) {
			s.logger.Warn("circuit open, skipping %s", s.url)
			err = NetworkError(err)
		}
	} else {
		err = fetch(ctx)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.response.body.size", len(data)))
	return data, nil
}

func (s *RemoteSource) fetchWithRetry(ctx context.Context) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		data, retryable, err := s.fetchOnce(ctx)
		if err == nil {
			return data, nil
		}
		if !retryable || attempt >= s.retries {
			return nil, err
		}
		delay := time.Duration(float64(s.backoff) * math.Pow(2, float64(attempt)))
		s.logger.Debug("retryable failure for %s, retrying in %s: %s", s.url, delay, err)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, NetworkError(ctx.Err())
		case <-timer.C:
		}
	}
}

func (s *RemoteSource) fetchOnce(ctx context.Context) ([]byte, bool, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	requestID := uuid.NewString()
	log := s.logger.With(map[string]interface{}{"request_id": requestID})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url.String(), nil)
	if err != nil {
		return nil, false, NetworkError(errors.Wrap(err, "create request"))
	}
	req.Header.Set("User-Agent", UserAgent())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("X-Request-ID", requestID)

	log.Debug("fetching from cloud: %s", s.url)
	resp, err := s.client.Do(req)
	if err != nil {
		log.Error("cloud fetch failed: %s", err)
		return nil, shouldRetry(nil, err), NetworkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		log.Error("cloud fetch failed: HTTP %d", resp.StatusCode)
		return nil, shouldRetry(resp, nil), NetworkError(&StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			URL:        s.url.String(),
		})
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		log.Error("cloud fetch failed reading body: %s", err)
		return nil, shouldRetry(nil, err), NetworkError(errors.Wrap(err, "read response body"))
	}
	if int64(len(data)) > s.maxBytes {
		log.Error("cloud fetch failed: body larger than %d bytes", s.maxBytes)
		return nil, false, NetworkError(errBodyTooLarge)
	}
	log.Debug("cloud fetch success: %d bytes", len(data))
	return data, false, nil
}

func shouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false
		}
		if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
			return true
		}
		if strings.Contains(err.Error(), "EOF") {
			return true
		}
	}
	if resp != nil {
		switch resp.StatusCode {
		case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
	}
	return false
}
