package cache

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
)

// TieredCache chains several caches, fastest first.
// Retrieve returns the first tier holding an entry that passes the age
// filter. Store, Remove and ClearAll apply to every tier.
type TieredCache struct {
	tiers []ByteCache
}

var (
	_ ByteCache = (*TieredCache)(nil)
	_ Inspector = (*TieredCache)(nil)
)

// NewTiered returns a TieredCache over tiers.
// At least one cache must be provided; panics if empty.
func NewTiered(tiers ...ByteCache) *TieredCache {
	if len(tiers) == 0 {
		panic("cache: NewTiered requires at least one cache")
	}
	return &TieredCache{tiers: tiers}
}

func (c *TieredCache) Retrieve(ctx context.Context, key string, maxAge time.Duration) ([]byte, bool, error) {
	for _, tier := range c.tiers {
		data, found, err := tier.Retrieve(ctx, key, maxAge)
		if err != nil {
			return nil, false, err
		}
		if found {
			return data, true, nil
		}
	}
	return nil, false, nil
}

func (c *TieredCache) Store(ctx context.Context, key string, payload []byte) error {
	var errs error
	for _, tier := range c.tiers {
		if err := tier.Store(ctx, key, payload); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	return errs
}

func (c *TieredCache) Remove(ctx context.Context, key string) error {
	var errs error
	for _, tier := range c.tiers {
		if err := tier.Remove(ctx, key); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	return errs
}

func (c *TieredCache) ClearAll(ctx context.Context) error {
	var errs error
	for _, tier := range c.tiers {
		if err := tier.ClearAll(ctx); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	return errs
}

// Entry returns the entry from the first inspectable tier that holds key.
func (c *TieredCache) Entry(ctx context.Context, key string) (Entry, bool, error) {
	for _, tier := range c.tiers {
		in, ok := tier.(Inspector)
		if !ok {
			continue
		}
		e, found, err := in.Entry(ctx, key)
		if err != nil || found {
			return e, found, err
		}
	}
	return Entry{}, false, nil
}
