package cache

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
)

const (
	timestampSuffix = "_timestamp"
	lockStripes     = 64
)

// ErrInvalidKey is returned for keys that cannot be mapped to a file name:
// the empty key, and keys ending in the timestamp file suffix.
var ErrInvalidKey = errors.New("cache: invalid key")

// FileCache is a ByteCache storing each entry as two files in one
// directory: the raw payload, and a companion file holding the store time
// as textual Unix epoch seconds.
type FileCache struct {
	dir   string
	cfg   config
	locks [lockStripes]sync.RWMutex
}

var (
	_ ByteCache = (*FileCache)(nil)
	_ Inspector = (*FileCache)(nil)
)

// NewFile returns a FileCache rooted at dir, creating it if needed. The
// directory is the cache's namespace and must not hold unrelated files.
func NewFile(dir string, opts ...Option) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "cache: create directory %s", dir)
	}
	return &FileCache{dir: dir, cfg: applyOptions(opts)}, nil
}

// Dir returns the directory backing the cache.
func (c *FileCache) Dir() string {
	return c.dir
}

// SanitizeKey makes key safe for use as a file name.
func SanitizeKey(key string) string {
	key = strings.ReplaceAll(key, "/", "_")
	key = strings.ReplaceAll(key, "\\", "_")
	if key == "." || key == ".." {
		key = strings.Repeat("_", len(key))
	}
	return key
}

func (c *FileCache) paths(key string) (string, string, error) {
	if key == "" {
		return "", "", errors.Wrap(ErrInvalidKey, "empty key")
	}
	name := SanitizeKey(key)
	if strings.HasSuffix(name, timestampSuffix) {
		return "", "", errors.Wrapf(ErrInvalidKey, "%q ends in %s", key, timestampSuffix)
	}
	return filepath.Join(c.dir, name), filepath.Join(c.dir, name+timestampSuffix), nil
}

// lock returns the stripe guarding key. Keys that sanitize to the same file
// name share a stripe.
func (c *FileCache) lock(key string) *sync.RWMutex {
	return &c.locks[xxhash.Sum64String(SanitizeKey(key))%lockStripes]
}

// writeFile replaces path atomically so readers never observe a partial file.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return err
	}
	return nil
}

func formatTimestamp(t time.Time) string {
	return strconv.FormatFloat(float64(t.UnixNano())/float64(time.Second), 'f', 6, 64)
}

func parseTimestamp(s string) (time.Time, bool) {
	secs, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return time.Time{}, false
	}
	whole := int64(secs)
	return time.Unix(whole, int64((secs-float64(whole))*float64(time.Second))), true
}

func (c *FileCache) Store(_ context.Context, key string, payload []byte) error {
	dataPath, tsPath, err := c.paths(key)
	if err != nil {
		return err
	}
	mu := c.lock(key)
	mu.Lock()
	defer mu.Unlock()
	// drop the old timestamp first so a failure between the two writes
	// leaves the entry without age info instead of with a wrong one
	if err := os.Remove(tsPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrapf(err, "cache: store %q", key)
	}
	if err := writeFile(dataPath, payload); err != nil {
		return errors.Wrapf(err, "cache: store %q", key)
	}
	if err := writeFile(tsPath, []byte(formatTimestamp(c.cfg.now()))); err != nil {
		return errors.Wrapf(err, "cache: store timestamp %q", key)
	}
	return nil
}

// Entry returns the stored entry for key. StoredAt is zero when the
// timestamp file is missing or unreadable.
func (c *FileCache) Entry(_ context.Context, key string) (Entry, bool, error) {
	dataPath, tsPath, err := c.paths(key)
	if err != nil {
		return Entry{}, false, err
	}
	mu := c.lock(key)
	mu.RLock()
	defer mu.RUnlock()
	data, err := os.ReadFile(dataPath)
	if errors.Is(err, fs.ErrNotExist) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, errors.Wrapf(err, "cache: retrieve %q", key)
	}
	entry := Entry{Key: key, Payload: data}
	if raw, err := os.ReadFile(tsPath); err == nil {
		if ts, ok := parseTimestamp(string(raw)); ok {
			entry.StoredAt = ts
		} else {
			c.cfg.warn("unreadable timestamp for cache entry %q", key)
		}
	}
	return entry, true, nil
}

func (c *FileCache) Retrieve(ctx context.Context, key string, maxAge time.Duration) ([]byte, bool, error) {
	entry, ok, err := c.Entry(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	if !entry.Fresh(c.cfg.now(), maxAge) {
		return nil, false, nil
	}
	return entry.Payload, true, nil
}

func (c *FileCache) Remove(_ context.Context, key string) error {
	dataPath, tsPath, err := c.paths(key)
	if err != nil {
		return err
	}
	mu := c.lock(key)
	mu.Lock()
	defer mu.Unlock()
	for _, p := range []string{dataPath, tsPath} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return errors.Wrapf(err, "cache: remove %q", key)
		}
	}
	return nil
}

func (c *FileCache) ClearAll(_ context.Context) error {
	for i := range c.locks {
		c.locks[i].Lock()
		defer c.locks[i].Unlock()
	}
	entries, err := os.ReadDir(c.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return os.MkdirAll(c.dir, 0o755)
	}
	if err != nil {
		return errors.Wrap(err, "cache: clear")
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(c.dir, e.Name())); err != nil {
			return errors.Wrap(err, "cache: clear")
		}
	}
	return nil
}
