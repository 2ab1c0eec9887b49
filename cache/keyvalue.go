package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// KeyValueStore is a flat byte-valued key-value store that may be shared
// with unrelated data.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte) error
	Delete(ctx context.Context, keys ...string) error
	// Keys returns every key starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// KeyValueCache is a ByteCache over a KeyValueStore. Each entry is a single
// msgpack-encoded Entry so its payload and timestamp are written together.
type KeyValueCache struct {
	store KeyValueStore
	cfg   config
}

var (
	_ ByteCache = (*KeyValueCache)(nil)
	_ Inspector = (*KeyValueCache)(nil)
)

// NewKeyValue returns a ByteCache storing entries in store under the
// configured prefix (DefaultPrefix unless WithPrefix is given).
func NewKeyValue(store KeyValueStore, opts ...Option) *KeyValueCache {
	return &KeyValueCache{store: store, cfg: applyOptions(opts)}
}

func (c *KeyValueCache) storeKey(key string) string {
	return c.cfg.prefix + key
}

func (c *KeyValueCache) Store(ctx context.Context, key string, payload []byte) error {
	buf, err := msgpack.Marshal(Entry{Key: key, Payload: payload, StoredAt: c.cfg.now()})
	if err != nil {
		return errors.Wrapf(err, "cache: encode entry %q", key)
	}
	if err := c.store.Set(ctx, c.storeKey(key), buf); err != nil {
		return errors.Wrapf(err, "cache: store %q", key)
	}
	return nil
}

// Entry returns the raw entry for key including its timestamp.
func (c *KeyValueCache) Entry(ctx context.Context, key string) (Entry, bool, error) {
	buf, ok, err := c.store.Get(ctx, c.storeKey(key))
	if err != nil {
		return Entry{}, false, errors.Wrapf(err, "cache: retrieve %q", key)
	}
	if !ok {
		return Entry{}, false, nil
	}
	var entry Entry
	if err := msgpack.Unmarshal(buf, &entry); err != nil {
		// an unreadable record has no usable payload
		c.cfg.warn("discarding unreadable cache entry %q: %s", key, err)
		return Entry{}, false, nil
	}
	return entry, true, nil
}

func (c *KeyValueCache) Retrieve(ctx context.Context, key string, maxAge time.Duration) ([]byte, bool, error) {
	entry, ok, err := c.Entry(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	if !entry.Fresh(c.cfg.now(), maxAge) {
		return nil, false, nil
	}
	return entry.Payload, true, nil
}

func (c *KeyValueCache) Remove(ctx context.Context, key string) error {
	if err := c.store.Delete(ctx, c.storeKey(key)); err != nil {
		return errors.Wrapf(err, "cache: remove %q", key)
	}
	return nil
}

// ClearAll deletes the entries this cache wrote. A key under the prefix is
// kept when its record names a different key, which is the case for entries
// of a namespace whose prefix extends this one.
func (c *KeyValueCache) ClearAll(ctx context.Context) error {
	keys, err := c.store.Keys(ctx, c.cfg.prefix)
	if err != nil {
		return errors.Wrap(err, "cache: list keys")
	}
	owned := make([]string, 0, len(keys))
	for _, k := range keys {
		buf, ok, err := c.store.Get(ctx, k)
		if err != nil {
			return errors.Wrapf(err, "cache: read %q", k)
		}
		if !ok {
			continue
		}
		var entry Entry
		if err := msgpack.Unmarshal(buf, &entry); err == nil && c.storeKey(entry.Key) != k {
			continue
		}
		owned = append(owned, k)
	}
	if len(owned) == 0 {
		return nil
	}
	if err := c.store.Delete(ctx, owned...); err != nil {
		return errors.Wrap(err, "cache: clear")
	}
	return nil
}

type memoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ KeyValueStore = (*memoryStore)(nil)

// NewMemoryStore returns an in-process KeyValueStore. Values are copied on
// the way in and out.
func NewMemoryStore() KeyValueStore {
	return &memoryStore{data: make(map[string][]byte)}
}

func (s *memoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return clone(val), true, nil
}

func (s *memoryStore) Set(_ context.Context, key string, val []byte) error {
	s.mu.Lock()
	s.data[key] = clone(val)
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	for _, key := range keys {
		delete(s.data, key)
	}
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for key := range s.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}
