package service

import (
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/campusapp/go-campusdata/datasource"
)

// DefaultCacheExpiration is the cache expiration of a Configuration that
// does not set one.
const DefaultCacheExpiration = datasource.DefaultCacheExpiration

var ErrLocalNameRequired = errors.New("local name is required")

// Configuration describes one logical resource: its bundled asset, its
// optional remote location and how long a cached copy stays fresh.
// It is immutable once constructed.
type Configuration struct {
	localName       string
	remoteURL       *url.URL
	cacheKey        string
	cacheExpiration time.Duration
}

// ConfigurationOption customizes a Configuration.
type ConfigurationOption func(*Configuration) error

// WithRemoteURL sets the remote location. A nil URL means no remote.
func WithRemoteURL(u *url.URL) ConfigurationOption {
	return func(c *Configuration) error {
		if u == nil {
			c.remoteURL = nil
			return nil
		}
		parsed, err := datasource.ParseURL(u.String())
		if err != nil {
			return err
		}
		c.remoteURL = parsed
		return nil
	}
}

// WithRemoteURLString parses raw as the remote location. An empty string
// means no remote; anything else must be an absolute http or https URL.
func WithRemoteURLString(raw string) ConfigurationOption {
	return func(c *Configuration) error {
		if raw == "" {
			c.remoteURL = nil
			return nil
		}
		u, err := datasource.ParseURL(raw)
		if err != nil {
			return err
		}
		c.remoteURL = u
		return nil
	}
}

// WithCacheKey overrides the default cache key.
func WithCacheKey(key string) ConfigurationOption {
	return func(c *Configuration) error {
		if key != "" {
			c.cacheKey = key
		}
		return nil
	}
}

// WithCacheExpiration overrides DefaultCacheExpiration. Non-positive values
// keep the default.
func WithCacheExpiration(d time.Duration) ConfigurationOption {
	return func(c *Configuration) error {
		if d > 0 {
			c.cacheExpiration = d
		}
		return nil
	}
}

// DefaultCacheKey derives a cache key from a local asset name by dropping
// its extension.
func DefaultCacheKey(localName string) string {
	key := strings.TrimSuffix(localName, path.Ext(localName))
	if key == "" {
		return localName
	}
	return key
}

// NewConfiguration builds the configuration of the resource bundled as
// localName.
func NewConfiguration(localName string, opts ...ConfigurationOption) (Configuration, error) {
	if strings.TrimSpace(localName) == "" {
		return Configuration{}, ErrLocalNameRequired
	}
	c := Configuration{
		localName:       localName,
		cacheKey:        DefaultCacheKey(localName),
		cacheExpiration: DefaultCacheExpiration,
	}
	for _, opt := range opts {
		if err := opt(&c); err != nil {
			return Configuration{}, errors.Wrapf(err, "configuration for %s", localName)
		}
	}
	return c, nil
}

// MustConfiguration is like NewConfiguration but panics on error. It is
// meant for package-level defaults built from constants.
func MustConfiguration(localName string, opts ...ConfigurationOption) Configuration {
	c, err := NewConfiguration(localName, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Configuration) LocalName() string {
	return c.localName
}

// RemoteURL returns a copy of the remote location, or nil.
func (c Configuration) RemoteURL() *url.URL {
	if c.remoteURL == nil {
		return nil
	}
	u := *c.remoteURL
	return &u
}

// HasRemote reports whether a remote location is configured.
func (c Configuration) HasRemote() bool {
	return c.remoteURL != nil
}

func (c Configuration) CacheKey() string {
	return c.cacheKey
}

func (c Configuration) CacheExpiration() time.Duration {
	return c.cacheExpiration
}

// WithRemote returns a copy of c using the given remote location.
func (c Configuration) WithRemote(u *url.URL) (Configuration, error) {
	if err := WithRemoteURL(u)(&c); err != nil {
		return Configuration{}, err
	}
	return c, nil
}

func (c Configuration) String() string {
	remote := "none"
	if c.remoteURL != nil {
		remote = c.remoteURL.String()
	}
	return "local=" + c.localName + " remote=" + remote + " key=" + c.cacheKey + " expiration=" + c.cacheExpiration.String()
}
