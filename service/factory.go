package service

import (
	"io/fs"

	"github.com/cockroachdb/errors"

	"github.com/campusapp/go-campusdata/cache"
	"github.com/campusapp/go-campusdata/datasource"
	"github.com/campusapp/go-campusdata/logger"
	"github.com/campusapp/go-campusdata/resilience"
)

var ErrRemoteURLRequired = errors.New("remote URL is required in cloudOnly environment")

// SourceBuilder builds the source graph of a resource.
type SourceBuilder interface {
	Source(cfg Configuration) (datasource.ContentSource, error)
}

// Factory assembles source graphs for an environment. Every graph it builds
// shares the same bundled assets and cache.
type Factory struct {
	env           Environment
	assets        fs.FS
	cache         cache.ByteCache
	logger        logger.Logger
	remoteOptions []datasource.RemoteOption
	cachedOptions []datasource.CachedOption
	breaker       *resilience.Config
}

var _ SourceBuilder = (*Factory)(nil)

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithRemoteOptions applies opts to every remote source.
func WithRemoteOptions(opts ...datasource.RemoteOption) FactoryOption {
	return func(f *Factory) { f.remoteOptions = append(f.remoteOptions, opts...) }
}

// WithBreaker gives every remote source its own circuit breaker.
func WithBreaker(config resilience.Config) FactoryOption {
	return func(f *Factory) { f.breaker = &config }
}

// WithCoalescing makes cached sources share concurrent misses.
func WithCoalescing() FactoryOption {
	return func(f *Factory) { f.cachedOptions = append(f.cachedOptions, datasource.WithCoalescing()) }
}

// NewFactory returns a factory for env. A nil cache builds cloud graphs
// without the cache layer.
func NewFactory(log logger.Logger, env Environment, assets fs.FS, c cache.ByteCache, opts ...FactoryOption) (*Factory, error) {
	if !env.Valid() {
		return nil, errors.Wrapf(ErrUnknownEnvironment, "%q", string(env))
	}
	f := &Factory{
		env:    env,
		assets: assets,
		cache:  c,
		logger: log,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func (f *Factory) Environment() Environment {
	return f.env
}

func (f *Factory) Cache() cache.ByteCache {
	return f.cache
}

func (f *Factory) Logger() logger.Logger {
	return f.logger
}

// Source builds the graph for cfg:
//
//	local:     Local
//	cloud:     Fallback(Cached(Remote), Local), or Local without a remote URL
//	cloudOnly: Remote
//
// cloudOnly without a remote URL fails with ErrRemoteURLRequired.
func (f *Factory) Source(cfg Configuration) (datasource.ContentSource, error) {
	if cfg.LocalName() == "" {
		return nil, ErrLocalNameRequired
	}
	log := f.logger.With(map[string]interface{}{"resource": cfg.CacheKey()})
	switch f.env {
	case Local:
		return datasource.NewLocal(log, f.assets, cfg.LocalName()), nil
	case Cloud:
		local := datasource.NewLocal(log, f.assets, cfg.LocalName())
		if !cfg.HasRemote() {
			log.Debug("no remote configured for %s, using bundled asset", cfg.LocalName())
			return local, nil
		}
		remote, err := f.remote(log, cfg)
		if err != nil {
			return nil, err
		}
		var primary datasource.ContentSource = remote
		if f.cache != nil {
			primary = datasource.NewCached(log, remote, f.cache, cfg.CacheKey(), cfg.CacheExpiration(), f.cachedOptions...)
		}
		return datasource.NewFallback(log, primary, local), nil
	case CloudOnly:
		if !cfg.HasRemote() {
			return nil, errors.Wrapf(ErrRemoteURLRequired, "%s", cfg.LocalName())
		}
		remote, err := f.remote(log, cfg)
		if err != nil {
			return nil, err
		}
		return remote, nil
	}
	return nil, errors.Wrapf(ErrUnknownEnvironment, "%q", string(f.env))
}

func (f *Factory) remote(log logger.Logger, cfg Configuration) (*datasource.RemoteSource, error) {
	opts := f.remoteOptions
	if f.breaker != nil {
		opts = append(opts[:len(opts):len(opts)], datasource.WithBreaker(resilience.New(*f.breaker)))
	}
	return datasource.NewRemote(log, cfg.RemoteURL(), opts...)
}
