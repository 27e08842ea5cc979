// Package sqlite stores processed row ids in a SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

type Config struct {
	// Path of the database file, relative paths are resolved against the
	// data directory
	Path string `envconfig:"SQLITE_PATH" default:"ledgerbulk.db"`
}

const schema = `
CREATE TABLE IF NOT EXISTS processed_rows (
	row_id      INTEGER PRIMARY KEY,
	recorded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

type SQLite struct {
	db *sql.DB
}

// Open opens or creates the database at path and makes sure the schema
// exists.
func Open(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	// A single connection serialises writers.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		schema,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("initializing %s: %w", path, err)
		}
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Load(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT row_id FROM processed_rows ORDER BY recorded_at, row_id")
	if err != nil {
		return nil, fmt.Errorf("querying processed rows: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning processed row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Append inserts id. Inserting an existing id is not an error.
func (s *SQLite) Append(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, "INSERT OR IGNORE INTO processed_rows (row_id) VALUES (?)", id); err != nil {
		return fmt.Errorf("inserting row %d: %w", id, err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
