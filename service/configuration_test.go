package service

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusapp/go-campusdata/datasource"
)

func TestConfigurationDefaults(t *testing.T) {
	c, err := NewConfiguration("guides.json")
	require.NoError(t, err)
	assert.Equal(t, "guides.json", c.LocalName())
	assert.Equal(t, "guides", c.CacheKey())
	assert.Equal(t, time.Hour, c.CacheExpiration())
	assert.False(t, c.HasRemote())
	assert.Nil(t, c.RemoteURL())
}

func TestConfigurationOptions(t *testing.T) {
	c, err := NewConfiguration("resources.json",
		WithRemoteURLString("https://x/resources.json"),
		WithCacheKey("res"),
		WithCacheExpiration(72*time.Hour),
	)
	require.NoError(t, err)
	assert.True(t, c.HasRemote())
	assert.Equal(t, "https://x/resources.json", c.RemoteURL().String())
	assert.Equal(t, "res", c.CacheKey())
	assert.Equal(t, 259200*time.Second, c.CacheExpiration())

	c, err = NewConfiguration("account.json", WithCacheKey(""), WithCacheExpiration(-time.Second))
	require.NoError(t, err)
	assert.Equal(t, "account", c.CacheKey())
	assert.Equal(t, DefaultCacheExpiration, c.CacheExpiration())
}

func TestConfigurationIsImmutable(t *testing.T) {
	c := MustConfiguration("guides.json", WithRemoteURLString("https://x/guides.json"))
	u := c.RemoteURL()
	u.Host = "elsewhere"
	assert.Equal(t, "x", c.RemoteURL().Host)

	other, err := c.WithRemote(&url.URL{Scheme: "https", Host: "y", Path: "/guides.json"})
	require.NoError(t, err)
	assert.Equal(t, "y", other.RemoteURL().Host)
	assert.Equal(t, "x", c.RemoteURL().Host)
}

func TestConfigurationErrors(t *testing.T) {
	_, err := NewConfiguration("")
	assert.ErrorIs(t, err, ErrLocalNameRequired)

	_, err = NewConfiguration("guides.json", WithRemoteURLString("not a url"))
	assert.ErrorIs(t, err, datasource.ErrInvalidURL)

	_, err = NewConfiguration("guides.json", WithRemoteURL(&url.URL{Path: "guides.json"}))
	assert.ErrorIs(t, err, datasource.ErrInvalidURL)

	c, err := NewConfiguration("guides.json", WithRemoteURLString(""))
	require.NoError(t, err)
	assert.False(t, c.HasRemote())

	assert.Panics(t, func() { MustConfiguration("") })
}

func TestDefaultCacheKey(t *testing.T) {
	assert.Equal(t, "guides", DefaultCacheKey("guides.json"))
	assert.Equal(t, "guides", DefaultCacheKey("guides"))
	assert.Equal(t, "data/guides", DefaultCacheKey("data/guides.json"))
	assert.Equal(t, "archive.tar", DefaultCacheKey("archive.tar.gz"))
	assert.Equal(t, ".json", DefaultCacheKey(".json"))
}
