// Package duckdb persists run artifacts.
// Edit ledgers are stored in DuckDB (queryable, append-only).
// Parsed references are cached as gob files (fast, pure Go).
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection holding an edit ledger.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS edits (
		run_id VARCHAR,
		ordinal BIGINT,
		haplotype INTEGER,
		chrom VARCHAR,
		pos BIGINT,
		kind VARCHAR,
		phase VARCHAR,
		origin_chrom VARCHAR,
		origin_start BIGINT,
		origin_length BIGINT,
		dest_length BIGINT,
		net_change BIGINT,
		source_line BIGINT,
		reason VARCHAR
	)`)
	return err
}
