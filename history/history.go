// Package history persists a ledger of recording jobs in Postgres.
// The ledger is optional: a recorder run never fails because it is
// unavailable.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx postgres driver registered as 'pgx'
)

// Entry is one finished (or failed) recording job.
type Entry struct {
	ID        string
	StationID string
	Title     string
	Start     string
	Path      string
	Status    string
	Error     string
	CreatedAt time.Time
}

// Connect opens a Postgres connection for the given DSN.
func Connect(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

// Migrate applies idempotent schema changes.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS recordings (
			id UUID PRIMARY KEY,
			station_id TEXT NOT NULL,
			title TEXT,
			start_time TEXT,
			path TEXT,
			status TEXT,
			error TEXT,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_recordings_station_start ON recordings(station_id, start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_recordings_created ON recordings(created_at)`,
	}
	for i, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("history migrate step %d failed: %w", i, err)
		}
	}
	return nil
}

// Insert appends one ledger row, minting an id when the entry has none.
func Insert(ctx context.Context, db *sql.DB, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO recordings (id, station_id, title, start_time, path, status, error)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		e.ID, e.StationID, e.Title, e.Start, e.Path, e.Status, e.Error)
	return err
}

// ListRecent returns the newest n entries, newest first.
func ListRecent(ctx context.Context, db *sql.DB, n int) ([]Entry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, station_id, title, start_time, path, status, COALESCE(error,''), created_at
		 FROM recordings ORDER BY created_at DESC LIMIT $1`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.StationID, &e.Title, &e.Start, &e.Path, &e.Status, &e.Error, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
