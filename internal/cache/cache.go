// Package cache stores compiled modules keyed by a hash of their source
// so unchanged units are not regenerated.
package cache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/lgtm-migrator/samosac-jvm/internal/bytecode"
)

// Memory selects a private in-memory cache.
const Memory = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS builds (
	key     TEXT PRIMARY KEY,
	name    TEXT NOT NULL,
	module  BLOB NOT NULL,
	created INTEGER NOT NULL,
	hits    INTEGER NOT NULL DEFAULT 0
)`

// Cache is a build cache backed by SQLite.
type Cache struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Stats summarises the cache contents.
type Stats struct {
	Entries int
	Bytes   int64
	Hits    int64
}

// Open opens or creates the cache at path.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open build cache: %w", err)
	}
	if path == Memory {
		// every connection would see its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open build cache %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialise build cache: %w", err)
	}
	return &Cache{db: db, path: path}, nil
}

func (c *Cache) Path() string { return c.path }

// Key identifies a unit by name, source text and encoding version.
func Key(name, source string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d\x00%s\x00", bytecode.FormatVersion, name)
	h.Write([]byte(source))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the module stored under key.
func (c *Cache) Get(ctx context.Context, key string) (*bytecode.Module, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var blob []byte
	err := c.db.QueryRowContext(ctx, `SELECT module FROM builds WHERE key = ?`, key).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup failed: %w", err)
	}
	m, err := bytecode.Decode(bytes.NewReader(blob))
	if err != nil {
		// stale or corrupt entries are treated as misses
		if _, derr := c.db.ExecContext(ctx, `DELETE FROM builds WHERE key = ?`, key); derr != nil {
			return nil, false, fmt.Errorf("cache cleanup failed: %w", derr)
		}
		return nil, false, nil
	}
	if _, err := c.db.ExecContext(ctx, `UPDATE builds SET hits = hits + 1 WHERE key = ?`, key); err != nil {
		return nil, false, fmt.Errorf("cache update failed: %w", err)
	}
	return m, true, nil
}

// Put stores m under key, replacing any previous entry.
func (c *Cache) Put(ctx context.Context, key string, m *bytecode.Module) error {
	var buf bytes.Buffer
	if err := bytecode.Encode(&buf, m); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO builds (key, name, module, created, hits) VALUES (?, ?, ?, ?, 0)`,
		key, m.Name, buf.Bytes(), time.Now().Unix())
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("cache store failed: %v, rollback failed: %w", err, rbErr)
		}
		return fmt.Errorf("cache store failed: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Stats reports the number of entries, their encoded size and total hits.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var s Stats
	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(LENGTH(module)), 0), COALESCE(SUM(hits), 0) FROM builds`,
	).Scan(&s.Entries, &s.Bytes, &s.Hits)
	if err != nil {
		return Stats{}, fmt.Errorf("cache stats failed: %w", err)
	}
	return s, nil
}

// Clear removes every entry.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.db.ExecContext(ctx, `DELETE FROM builds`); err != nil {
		return fmt.Errorf("cache clear failed: %w", err)
	}
	return nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Shutdown closes the cache when its injector shuts down.
func (c *Cache) Shutdown() error {
	if c == nil {
		return nil
	}
	return c.Close()
}
