package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusapp/go-campusdata/cache"
	"github.com/campusapp/go-campusdata/datasource"
	"github.com/campusapp/go-campusdata/logger"
	"github.com/campusapp/go-campusdata/resilience"
)

const bundledGuides = `{"guides":[{"id":"welcome","title":"Welcome Week"}],"lastUpdated":"2025-08-01"}`

type testGuides struct {
	Guides []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"guides"`
	LastUpdated string `json:"lastUpdated"`
}

func testAssets() fstest.MapFS {
	return fstest.MapFS{
		"guides.json": &fstest.MapFile{Data: []byte(bundledGuides)},
	}
}

type origin struct {
	*httptest.Server
	calls  atomic.Int32
	status atomic.Int32
	body   string
}

func newOrigin(t *testing.T, status int, body string) *origin {
	o := &origin{body: body}
	o.status.Store(int32(status))
	o.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		o.calls.Add(1)
		code := int(o.status.Load())
		w.WriteHeader(code)
		if code == http.StatusOK {
			w.Write([]byte(o.body))
		}
	}))
	t.Cleanup(o.Close)
	return o
}

func guidesConfig(t *testing.T, remote string) Configuration {
	t.Helper()
	c, err := NewConfiguration("guides.json",
		WithRemoteURLString(remote),
		WithCacheKey("guides"),
		WithCacheExpiration(3600*time.Second),
	)
	require.NoError(t, err)
	return c
}

func newTestFactory(t *testing.T, env Environment, c cache.ByteCache, opts ...FactoryOption) *Factory {
	t.Helper()
	f, err := NewFactory(logger.NewTestLogger(), env, testAssets(), c, opts...)
	require.NoError(t, err)
	return f
}

func TestCloudFallsBackToBundledAssetOn503(t *testing.T) {
	o := newOrigin(t, http.StatusServiceUnavailable, "")
	log := logger.NewTestLogger()
	kv := cache.NewKeyValue(cache.NewMemoryStore())
	f, err := NewFactory(log, Cloud, testAssets(), kv)
	require.NoError(t, err)

	svc, err := New[testGuides](log, f, guidesConfig(t, o.URL+"/guides.json"))
	require.NoError(t, err)

	got, err := svc.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got.Guides, 1)
	assert.Equal(t, "welcome", got.Guides[0].ID)
	assert.Equal(t, "Welcome Week", got.Guides[0].Title)
	assert.EqualValues(t, 1, o.calls.Load())
	assert.True(t, log.Contains("WARNING", "primary source failed"))

	_, found, err := kv.Retrieve(context.Background(), "guides", cache.NoMaxAge)
	require.NoError(t, err)
	assert.False(t, found, "a failed remote fetch must not populate the cache")
}

func TestCloudUsesRemoteThenCache(t *testing.T) {
	o := newOrigin(t, http.StatusOK, `{"guides":[{"id":"remote","title":"From Cloud"}]}`)
	kv := cache.NewKeyValue(cache.NewMemoryStore())
	f := newTestFactory(t, Cloud, kv)

	src, err := f.Source(guidesConfig(t, o.URL+"/guides.json"))
	require.NoError(t, err)
	assert.IsType(t, &datasource.FallbackSource{}, src)

	svc := NewFetchService[testGuides](logger.NewTestLogger(), src)
	got, err := svc.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "remote", got.Guides[0].ID)

	o.status.Store(http.StatusInternalServerError)
	got, err = svc.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "remote", got.Guides[0].ID, "fresh cache entry served without touching the origin")
	assert.EqualValues(t, 1, o.calls.Load())
}

func TestCloudWithoutCacheSkipsCacheLayer(t *testing.T) {
	o := newOrigin(t, http.StatusOK, `{"guides":[]}`)
	f := newTestFactory(t, Cloud, nil)

	src, err := f.Source(guidesConfig(t, o.URL))
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		data, err := src.Fetch(context.Background())
		require.NoError(t, err)
		assert.Equal(t, `{"guides":[]}`, string(data))
	}
	assert.EqualValues(t, 3, o.calls.Load())
}

func TestCloudWithoutRemoteDegradesToLocal(t *testing.T) {
	cfg := guidesConfig(t, "")
	missing := MustConfiguration("events.json")

	local, err := newTestFactory(t, Local, nil).Source(cfg)
	require.NoError(t, err)
	cloud, err := newTestFactory(t, Cloud, cache.NewKeyValue(cache.NewMemoryStore())).Source(cfg)
	require.NoError(t, err)
	assert.IsType(t, &datasource.LocalSource{}, cloud)

	want, wantErr := local.Fetch(context.Background())
	got, gotErr := cloud.Fetch(context.Background())
	assert.Equal(t, want, got)
	assert.Equal(t, wantErr, gotErr)

	local, err = newTestFactory(t, Local, nil).Source(missing)
	require.NoError(t, err)
	cloud, err = newTestFactory(t, Cloud, nil).Source(missing)
	require.NoError(t, err)
	_, wantErr = local.Fetch(context.Background())
	_, gotErr = cloud.Fetch(context.Background())
	assert.ErrorIs(t, wantErr, datasource.ErrFileNotFound)
	assert.Equal(t, wantErr.Error(), gotErr.Error())
}

func TestLocalIgnoresRemote(t *testing.T) {
	o := newOrigin(t, http.StatusOK, `{"guides":[]}`)
	src, err := newTestFactory(t, Local, nil).Source(guidesConfig(t, o.URL))
	require.NoError(t, err)

	data, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, bundledGuides, string(data))
	assert.EqualValues(t, 0, o.calls.Load())
}

func TestCloudOnlyRequiresRemote(t *testing.T) {
	f := newTestFactory(t, CloudOnly, nil)
	src, err := f.Source(guidesConfig(t, ""))
	assert.ErrorIs(t, err, ErrRemoteURLRequired)
	assert.Nil(t, src)

	_, err = New[testGuides](logger.NewTestLogger(), f, guidesConfig(t, ""))
	assert.ErrorIs(t, err, ErrRemoteURLRequired)
}

func TestCloudOnlyNeverFallsBack(t *testing.T) {
	o := newOrigin(t, http.StatusServiceUnavailable, "")
	src, err := newTestFactory(t, CloudOnly, cache.NewKeyValue(cache.NewMemoryStore())).Source(guidesConfig(t, o.URL))
	require.NoError(t, err)
	assert.IsType(t, &datasource.RemoteSource{}, src)

	_, err = src.Fetch(context.Background())
	assert.ErrorIs(t, err, datasource.ErrNetwork)
	var se *datasource.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
}

func TestFactoryBreakerPerSource(t *testing.T) {
	o := newOrigin(t, http.StatusInternalServerError, "")
	f := newTestFactory(t, Cloud, nil, WithBreaker(resilience.Config{MaxFailures: 1, Cooldown: time.Hour}))

	src, err := f.Source(guidesConfig(t, o.URL))
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		data, err := src.Fetch(context.Background())
		require.NoError(t, err)
		assert.Equal(t, bundledGuides, string(data))
	}
	assert.EqualValues(t, 1, o.calls.Load())

	other, err := f.Source(guidesConfig(t, o.URL))
	require.NoError(t, err)
	_, err = other.Fetch(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, o.calls.Load())
}

func TestFactoryRemoteOptions(t *testing.T) {
	o := newOrigin(t, http.StatusOK, "0123456789")
	f := newTestFactory(t, CloudOnly, nil, WithRemoteOptions(datasource.WithMaxBytes(4)))
	src, err := f.Source(guidesConfig(t, o.URL))
	require.NoError(t, err)
	_, err = src.Fetch(context.Background())
	assert.ErrorIs(t, err, datasource.ErrNetwork)
}

func TestNewFactoryRejectsUnknownEnvironment(t *testing.T) {
	_, err := NewFactory(logger.NewTestLogger(), Environment("staging"), testAssets(), nil)
	assert.ErrorIs(t, err, ErrUnknownEnvironment)

	f := newTestFactory(t, Cloud, nil)
	assert.Equal(t, Cloud, f.Environment())
	assert.Nil(t, f.Cache())

	_, err = f.Source(Configuration{})
	assert.ErrorIs(t, err, ErrLocalNameRequired)
}
