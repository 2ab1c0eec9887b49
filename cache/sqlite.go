package cache

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"
)

// SQLiteCache is a ByteCache backed by SQLite. Payload and timestamp live in
// the same row, so every write replaces both together.
type SQLiteCache struct {
	db   *sql.DB
	cfg  config
	once sync.Once
}

var (
	_ ByteCache = (*SQLiteCache)(nil)
	_ Inspector = (*SQLiteCache)(nil)
)

// NewSQLite returns a new ByteCache backed by SQLite.
// If dbPath is empty or ":memory:", an in-memory database is used.
// The prefix option selects the namespace so several caches can share one file.
func NewSQLite(ctx context.Context, dbPath string, opts ...Option) (*SQLiteCache, error) {
	if dbPath == "" {
		dbPath = ":memory:"
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "cache: open sqlite")
	}
	// one connection: writes are serialized and ":memory:" stays a single database
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "cache: enable WAL")
	}

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS byte_cache (
		namespace TEXT NOT NULL,
		key TEXT NOT NULL,
		payload BLOB NOT NULL,
		stored_at INTEGER,
		PRIMARY KEY (namespace, key)
	)`); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "cache: create table")
	}

	return &SQLiteCache{db: db, cfg: applyOptions(opts)}, nil
}

func (c *SQLiteCache) Store(ctx context.Context, key string, payload []byte) error {
	qctx, cancel := c.cfg.withTimeout(ctx)
	defer cancel()
	if payload == nil {
		payload = []byte{}
	}
	_, err := c.db.ExecContext(qctx,
		`INSERT INTO byte_cache (namespace, key, payload, stored_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(namespace, key) DO UPDATE SET payload = excluded.payload, stored_at = excluded.stored_at`,
		c.cfg.prefix, key, payload, c.cfg.now().UnixNano(),
	)
	if err != nil {
		return errors.Wrapf(err, "cache: store %q", key)
	}
	return nil
}

// Entry returns the stored entry for key. StoredAt is zero when the row has
// no timestamp.
func (c *SQLiteCache) Entry(ctx context.Context, key string) (Entry, bool, error) {
	qctx, cancel := c.cfg.withTimeout(ctx)
	defer cancel()
	var (
		data     []byte
		storedAt sql.NullInt64
	)
	err := c.db.QueryRowContext(qctx,
		`SELECT payload, stored_at FROM byte_cache WHERE namespace = ? AND key = ?`, c.cfg.prefix, key,
	).Scan(&data, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, errors.Wrapf(err, "cache: retrieve %q", key)
	}
	entry := Entry{Key: key, Payload: data}
	if storedAt.Valid {
		entry.StoredAt = time.Unix(0, storedAt.Int64)
	}
	return entry, true, nil
}

func (c *SQLiteCache) Retrieve(ctx context.Context, key string, maxAge time.Duration) ([]byte, bool, error) {
	entry, ok, err := c.Entry(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	if !entry.Fresh(c.cfg.now(), maxAge) {
		return nil, false, nil
	}
	return entry.Payload, true, nil
}

func (c *SQLiteCache) Remove(ctx context.Context, key string) error {
	qctx, cancel := c.cfg.withTimeout(ctx)
	defer cancel()
	if _, err := c.db.ExecContext(qctx, `DELETE FROM byte_cache WHERE namespace = ? AND key = ?`, c.cfg.prefix, key); err != nil {
		return errors.Wrapf(err, "cache: remove %q", key)
	}
	return nil
}

func (c *SQLiteCache) ClearAll(ctx context.Context) error {
	qctx, cancel := c.cfg.withTimeout(ctx)
	defer cancel()
	if _, err := c.db.ExecContext(qctx, `DELETE FROM byte_cache WHERE namespace = ?`, c.cfg.prefix); err != nil {
		return errors.Wrap(err, "cache: clear")
	}
	return nil
}

// Close releases the database.
func (c *SQLiteCache) Close() error {
	var dbErr error
	c.once.Do(func() {
		dbErr = c.db.Close()
	})
	return dbErr
}
