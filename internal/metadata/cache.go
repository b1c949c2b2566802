package metadata

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver
	"golang.org/x/crypto/blake2b"

	"dyphal/internal/metrics"
)

const cacheTimeout = 5 * time.Second

const cacheSchema = `
CREATE TABLE IF NOT EXISTS records (
	digest    TEXT NOT NULL,
	extractor TEXT NOT NULL,
	record    TEXT NOT NULL,
	created   INTEGER NOT NULL,
	PRIMARY KEY (digest, extractor)
);
`

// Cache remembers extraction results keyed by the content digest of the
// file, so a photo that is re-added or reloaded from a saved album is not
// handed to the extractor again. Lookups and stores that fail fall back to
// the wrapped extractor.
type Cache struct {
	db   *sql.DB
	next Extractor
}

// OpenCache opens or creates the cache database at dbPath.
func OpenCache(ctx context.Context, dbPath string, next Extractor) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata cache: %w", err)
	}

	initCtx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()

	if _, err := db.ExecContext(initCtx, cacheSchema); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("failed to close metadata cache after schema failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize metadata cache: %w", err)
	}

	log.Debug("metadata cache at %s", dbPath)
	return &Cache{db: db, next: next}, nil
}

// Name implements Extractor.
func (c *Cache) Name() string { return c.next.Name() }

// Extract implements Extractor.
func (c *Cache) Extract(ctx context.Context, path string) (Record, error) {
	digest, err := contentDigest(path)
	if err != nil {
		metrics.MetadataCacheLookups.WithLabelValues("error").Inc()
		log.Warn("cannot hash %s, skipping cache: %v", path, err)
		return c.next.Extract(ctx, path)
	}

	record, err := c.lookup(ctx, digest)
	switch {
	case err == nil:
		metrics.MetadataCacheLookups.WithLabelValues("hit").Inc()
		return record, nil
	case errors.Is(err, sql.ErrNoRows):
		metrics.MetadataCacheLookups.WithLabelValues("miss").Inc()
	default:
		metrics.MetadataCacheLookups.WithLabelValues("error").Inc()
		log.Warn("metadata cache lookup failed: %v", err)
	}

	record, err = c.next.Extract(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := c.store(ctx, digest, record); err != nil {
		log.Warn("metadata cache store failed: %v", err)
	}
	return record, nil
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) lookup(ctx context.Context, digest string) (Record, error) {
	qctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()

	var raw string
	err := c.db.QueryRowContext(qctx,
		`SELECT record FROM records WHERE digest = ? AND extractor = ?`,
		digest, c.next.Name()).Scan(&raw)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var record Record
	if err := dec.Decode(&record); err != nil {
		return nil, fmt.Errorf("corrupt cache entry %s: %w", digest, err)
	}
	return record, nil
}

func (c *Cache) store(ctx context.Context, digest string, record Record) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	qctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()

	_, err = c.db.ExecContext(qctx,
		`INSERT OR REPLACE INTO records (digest, extractor, record, created) VALUES (?, ?, ?, ?)`,
		digest, c.next.Name(), string(raw), time.Now().Unix())
	return err
}

// contentDigest returns the hex blake2b-256 digest of the file at path.
func contentDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

var _ Extractor = (*Cache)(nil)
