// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog keeps a SQLite ledger of every payload the harvest has
// persisted. The filesystem remains the source of truth for idempotency;
// the catalog exists for reporting and for locating records by DOI or
// journal without walking the output tree.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Entry is one persisted record.
type Entry struct {
	ID      string
	Source  string
	URL     string
	DOI     string
	Journal string
	Path    string
	SavedAt time.Time
}

// Stat is one row of the per-source/per-journal aggregate.
type Stat struct {
	Source  string
	Journal string
	Count   int
}

// Catalog wraps the ledger database.
type Catalog struct {
	db *sql.DB
}

// Open opens or creates the catalog database at path, creating parent
// directories and the schema as needed.
func Open(path string) (*Catalog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating catalog directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening catalog database: %w", err)
	}

	c := &Catalog{db: db}
	if err := c.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating catalog schema: %w", err)
	}
	return c, nil
}

// Close releases the database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

func (c *Catalog) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS records (
			id TEXT NOT NULL,
			source TEXT NOT NULL,
			url TEXT,
			doi TEXT,
			journal TEXT,
			path TEXT NOT NULL,
			saved_at TEXT NOT NULL,
			PRIMARY KEY (id, source)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_doi ON records(doi)`,
		`CREATE INDEX IF NOT EXISTS idx_records_journal ON records(journal)`,
	}
	for _, stmt := range statements {
		if _, err := c.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Insert upserts one entry. Re-inserting the same (id, source) pair
// refreshes the path and timestamp, so forced re-harvests stay consistent.
func (c *Catalog) Insert(ctx context.Context, e Entry) error {
	savedAt := e.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now().UTC()
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO records (id, source, url, doi, journal, path, saved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id, source) DO UPDATE SET
			url=excluded.url, doi=excluded.doi, journal=excluded.journal,
			path=excluded.path, saved_at=excluded.saved_at`,
		e.ID, e.Source, e.URL, e.DOI, e.Journal, e.Path,
		savedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting catalog entry %s: %w", e.ID, err)
	}
	return nil
}

// List returns entries for a source, or all entries when source is empty,
// ordered by journal then identifier.
func (c *Catalog) List(ctx context.Context, source string) ([]Entry, error) {
	query := `SELECT id, source, url, doi, journal, path, saved_at FROM records`
	args := []any{}
	if source != "" {
		query += ` WHERE source = ?`
		args = append(args, source)
	}
	query += ` ORDER BY journal, id`

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying catalog: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var savedAt string
		if err := rows.Scan(&e.ID, &e.Source, &e.URL, &e.DOI, &e.Journal, &e.Path, &savedAt); err != nil {
			return nil, fmt.Errorf("scanning catalog row: %w", err)
		}
		e.SavedAt, _ = time.Parse(time.RFC3339, savedAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Stats aggregates record counts per source and journal.
func (c *Catalog) Stats(ctx context.Context) ([]Stat, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT source, journal, count(*) FROM records
		 GROUP BY source, journal ORDER BY source, journal`)
	if err != nil {
		return nil, fmt.Errorf("querying catalog stats: %w", err)
	}
	defer rows.Close()

	var out []Stat
	for rows.Next() {
		var s Stat
		if err := rows.Scan(&s.Source, &s.Journal, &s.Count); err != nil {
			return nil, fmt.Errorf("scanning stats row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
