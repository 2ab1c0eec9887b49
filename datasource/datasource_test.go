package datasource

import (
	"context"
	"sync/atomic"
	"testing"
	"testing/fstest"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusapp/go-campusdata/logger"
)

type countingSource struct {
	calls atomic.Int32
	data  []byte
	err   error
}

func (s *countingSource) Fetch(ctx context.Context) ([]byte, error) {
	s.calls.Add(1)
	return s.data, s.err
}

func okSource(data string) *countingSource {
	return &countingSource{data: []byte(data)}
}

func failingSource(err error) *countingSource {
	return &countingSource{err: err}
}

func TestErrorKinds(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		err     error
		kind    Kind
		target  error
		message string
	}{
		{FileNotFound("guides.json"), KindFileNotFound, ErrFileNotFound, "file 'guides.json' not found"},
		{DecodingFailed(cause), KindDecodingFailed, ErrDecodingFailed, "failed to decode data: boom"},
		{NetworkError(cause), KindNetworkError, ErrNetwork, "network error: boom"},
		{InvalidURL("::"), KindInvalidURL, ErrInvalidURL, "invalid URL: ::"},
		{CacheExpired(), KindCacheExpired, ErrCacheExpired, "cached data has expired"},
		{NoDataAvailable(), KindNoDataAvailable, ErrNoDataAvailable, "no data available"},
		{Unknown(cause), KindUnknown, ErrUnknown, "unknown error: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
			assert.ErrorIs(t, tt.err, tt.target)
			assert.Equal(t, tt.message, tt.err.Error())
		})
	}
	assert.NotErrorIs(t, NetworkError(cause), ErrFileNotFound)
	assert.ErrorIs(t, NetworkError(cause), cause, "cause is retained")
	assert.ErrorIs(t, DecodingFailed(cause), cause, "cause is retained")
}

func TestKindOfWrapped(t *testing.T) {
	err := errors.Wrap(NetworkError(errors.New("reset")), "guides")
	assert.Equal(t, KindNetworkError, KindOf(err))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestClassify(t *testing.T) {
	assert.NoError(t, Classify(nil))
	classified := FileNotFound("x")
	assert.Same(t, classified, Classify(classified))
	plain := errors.New("plain")
	got := Classify(plain)
	assert.Equal(t, KindUnknown, KindOf(got))
	assert.ErrorIs(t, got, plain)
}

func TestLocalSource(t *testing.T) {
	assets := fstest.MapFS{
		"guides.json":      {Data: []byte(`{"guides":[]}`)},
		"nested/data.json": {Data: []byte(`[]`)},
	}
	log := logger.NewTestLogger()
	ctx := context.Background()

	for _, name := range []string{"guides.json", "guides", "/guides.json"} {
		data, err := NewLocal(log, assets, name).Fetch(ctx)
		require.NoError(t, err, name)
		assert.Equal(t, `{"guides":[]}`, string(data))
	}

	data, err := NewLocal(log, assets, "nested/data").Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))

	_, err = NewLocal(log, assets, "account.json").Fetch(ctx)
	assert.ErrorIs(t, err, ErrFileNotFound)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "account.json", e.Name)
	assert.True(t, log.Contains("ERROR", "local file not found: account.json"))

	_, err = NewLocal(log, assets, "../etc/passwd").Fetch(ctx)
	assert.ErrorIs(t, err, ErrFileNotFound)

	_, err = NewLocal(log, nil, "guides.json").Fetch(ctx)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestLocalSourceHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLocal(logger.NewTestLogger(), fstest.MapFS{"a.json": {Data: []byte("{}")}}, "a").Fetch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFallbackPrecedence(t *testing.T) {
	log := logger.NewTestLogger()
	ctx := context.Background()

	t.Run("primary succeeds", func(t *testing.T) {
		primary, secondary := okSource("primary"), okSource("OK")
		data, err := NewFallback(log, primary, secondary).Fetch(ctx)
		require.NoError(t, err)
		assert.Equal(t, "primary", string(data))
		assert.EqualValues(t, 0, secondary.calls.Load())
	})

	t.Run("primary fails", func(t *testing.T) {
		primary, secondary := failingSource(NetworkError(errors.New("503"))), okSource("OK")
		data, err := NewFallback(log, primary, secondary).Fetch(ctx)
		require.NoError(t, err)
		assert.Equal(t, "OK", string(data))
		assert.EqualValues(t, 1, primary.calls.Load(), "primary is not retried")
		assert.EqualValues(t, 1, secondary.calls.Load())
		assert.True(t, log.Contains("WARNING", "primary source failed"))
	})

	t.Run("both fail", func(t *testing.T) {
		secondaryErr := FileNotFound("guides.json")
		primary, secondary := failingSource(NetworkError(errors.New("503"))), failingSource(secondaryErr)
		_, err := NewFallback(log, primary, secondary).Fetch(ctx)
		assert.Same(t, secondaryErr, err)
		assert.NotErrorIs(t, err, ErrNetwork)
	})
}

func TestFuncAdapter(t *testing.T) {
	var src ContentSource = Func(func(ctx context.Context) ([]byte, error) {
		return []byte("x"), nil
	})
	data, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}
