package adapter

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	m "regcov.dev/pkg/regcov/internal/model"
)

// DigestCache remembers digests keyed by (path, size, mtime, mode) so
// unchanged files are not rehashed on every selection pass.
type DigestCache interface {
	// Get returns the cached digest when size and mtime still match.
	Get(path m.Path, info os.FileInfo, mode string) (string, bool, error)
	Set(path m.Path, info os.FileInfo, mode, digest string) error
	Close() error
}

// DigestCacheFileName is the database file under the cache root.
const DigestCacheFileName = "hasher-cache.db"

const digestCacheSchema = `
CREATE TABLE IF NOT EXISTS digest_cache (
	path TEXT NOT NULL,
	mode TEXT NOT NULL,
	size INTEGER NOT NULL,
	mtime INTEGER NOT NULL,
	digest TEXT NOT NULL,
	PRIMARY KEY (path, mode)
);
`

// SQLiteDigestCache is a DigestCache stored in a SQLite database.
type SQLiteDigestCache struct {
	db *sql.DB
}

// OpenDigestCache opens or creates the digest cache under cacheRoot.
func OpenDigestCache(cacheRoot m.Path) (*SQLiteDigestCache, error) {
	if err := os.MkdirAll(string(cacheRoot), 0o750); err != nil {
		return nil, fmt.Errorf("%w: create cache root: %w", m.ErrStoreUnavailable, err)
	}

	db, err := openSQLite(filepath.Join(string(cacheRoot), DigestCacheFileName))
	if err != nil {
		return nil, fmt.Errorf("%w: open digest cache: %w", m.ErrStoreUnavailable, err)
	}

	if _, err := db.Exec(digestCacheSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: apply digest cache schema: %w", m.ErrStoreUnavailable, err)
	}

	return &SQLiteDigestCache{db: db}, nil
}

// Get implements DigestCache.
func (c *SQLiteDigestCache) Get(path m.Path, info os.FileInfo, mode string) (string, bool, error) {
	var (
		cachedSize, cachedMtime int64
		cachedDigest            string
	)

	err := c.db.QueryRow(
		"SELECT size, mtime, digest FROM digest_cache WHERE path = ? AND mode = ?",
		string(path), mode,
	).Scan(&cachedSize, &cachedMtime, &cachedDigest)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}

	if err != nil {
		return "", false, err
	}

	if cachedSize != info.Size() || cachedMtime != info.ModTime().UnixNano() {
		return "", false, nil
	}

	return cachedDigest, true, nil
}

// Set implements DigestCache.
func (c *SQLiteDigestCache) Set(path m.Path, info os.FileInfo, mode, digest string) error {
	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO digest_cache (path, mode, size, mtime, digest)
		 VALUES (?, ?, ?, ?, ?)`,
		string(path), mode, info.Size(), info.ModTime().UnixNano(), digest,
	)

	return err
}

// Close closes the cache database.
func (c *SQLiteDigestCache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}

	return nil
}
