package fetch

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// PageCache stores raw fetched bodies in SQLite so repeated crawls against
// the same site skip the network for unchanged pages. Only page bodies are
// cached; pipeline results are never persisted.
type PageCache struct {
	db *sql.DB
}

// NewPageCache opens (or creates) a cache database at the given path.
func NewPageCache(path string) (*PageCache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	cache := &PageCache{db: db}
	if err := cache.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}
	return cache, nil
}

func (p *PageCache) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pages (
		url        TEXT PRIMARY KEY,
		body       TEXT NOT NULL,
		fetched_at TIMESTAMP NOT NULL
	);
	`
	_, err := p.db.Exec(schema)
	return err
}

// Get returns the cached body for a URL when an entry exists and is younger
// than ttl.
func (p *PageCache) Get(url string, ttl time.Duration) (string, bool) {
	var body string
	var fetchedAt time.Time

	err := p.db.QueryRow(
		"SELECT body, fetched_at FROM pages WHERE url = ?", url,
	).Scan(&body, &fetchedAt)
	if err != nil {
		return "", false
	}
	if ttl > 0 && time.Since(fetchedAt) > ttl {
		return "", false
	}
	return body, true
}

// Put stores or replaces the body for a URL.
func (p *PageCache) Put(url, body string) error {
	_, err := p.db.Exec(
		"INSERT OR REPLACE INTO pages (url, body, fetched_at) VALUES (?, ?, ?)",
		url, body, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (p *PageCache) Close() error {
	return p.db.Close()
}
