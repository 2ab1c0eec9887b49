package campus

import (
	"context"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/campusapp/go-campusdata/cache"
	"github.com/campusapp/go-campusdata/logger"
	"github.com/campusapp/go-campusdata/service"
)

// Client fetches the campus resources. Each resource has its own source
// graph, built once when the client is created.
type Client struct {
	guides    *service.FetchService[GuidesData]
	resources *service.FetchService[ResourcesData]
	account   *service.FetchService[AccountData]
	logger    logger.Logger
}

// Snapshot holds every resource fetched at once.
type Snapshot struct {
	Guides    GuidesData    `json:"guides"`
	Resources ResourcesData `json:"resources"`
	Account   AccountData   `json:"account"`
}

// NewFactory returns a service factory reading bundled copies from Assets.
func NewFactory(log logger.Logger, env service.Environment, c cache.ByteCache, opts ...service.FactoryOption) (*service.Factory, error) {
	return service.NewFactory(log, env, Assets, c, opts...)
}

// NewClient builds the source graph of every resource in def with b. A nil
// def uses DefaultDefinition.
func NewClient(log logger.Logger, b service.SourceBuilder, def *Definition) (*Client, error) {
	if def == nil {
		def = DefaultDefinition()
	}
	c := &Client{logger: log.WithPrefix("[campus]")}
	var err error
	if c.guides, err = newService[GuidesData](log, b, def, Guides); err != nil {
		return nil, err
	}
	if c.resources, err = newService[ResourcesData](log, b, def, Resources); err != nil {
		return nil, err
	}
	if c.account, err = newService[AccountData](log, b, def, Account); err != nil {
		return nil, err
	}
	return c, nil
}

func newService[T any](log logger.Logger, b service.SourceBuilder, def *Definition, name string) (*service.FetchService[T], error) {
	cfg, err := def.Configuration(name)
	if err != nil {
		return nil, err
	}
	svc, err := service.New[T](log, b, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "build %s source", name)
	}
	return svc, nil
}

func (c *Client) Guides(ctx context.Context) (GuidesData, error) {
	return c.guides.Fetch(ctx)
}

func (c *Client) Resources(ctx context.Context) (ResourcesData, error) {
	return c.resources.Fetch(ctx)
}

func (c *Client) Account(ctx context.Context) (AccountData, error) {
	return c.account.Fetch(ctx)
}

// Fetch returns the decoded resource called name.
func (c *Client) Fetch(ctx context.Context, name string) (any, error) {
	switch name {
	case Guides:
		return c.Guides(ctx)
	case Resources:
		return c.Resources(ctx)
	case Account:
		return c.Account(ctx)
	}
	return nil, errors.Wrapf(ErrUnknownResource, "%q", name)
}

// FetchAll fetches every resource concurrently. The first failure cancels
// the other fetches and is returned.
func (c *Client) FetchAll(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := c.Guides(ctx)
		snap.Guides = v
		return errors.Wrap(err, Guides)
	})
	g.Go(func() error {
		v, err := c.Resources(ctx)
		snap.Resources = v
		return errors.Wrap(err, Resources)
	})
	g.Go(func() error {
		v, err := c.Account(ctx)
		snap.Account = v
		return errors.Wrap(err, Account)
	})
	if err := g.Wait(); err != nil {
		c.logger.Error("fetch all failed: %s", err)
		return Snapshot{}, err
	}
	return snap, nil
}

// Open reads a definition from path, or returns DefaultDefinition when
// path is empty.
func Open(path string) (*Definition, error) {
	if path == "" {
		return DefaultDefinition(), nil
	}
	return LoadDefinition(path)
}
