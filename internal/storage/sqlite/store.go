// Package sqlite provides the SQLite run archive.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tjfontaine/x-wrapped/internal/storage"
)

// Store is a SQLite implementation of RunStore.
type Store struct {
	db *sql.DB
}

var _ storage.RunStore = (*Store)(nil)

// New opens (or creates) the archive database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		year INTEGER NOT NULL,
		schema TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT,
		chunks INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		report TEXT,
		citations TEXT,
		created_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC)`)
	return err
}

// RecordRun inserts one terminal run record.
func (s *Store) RecordRun(ctx context.Context, run *storage.Run) error {
	citations, err := json.Marshal(run.Citations)
	if err != nil {
		return fmt.Errorf("failed to marshal citations: %w", err)
	}

	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, username, year, schema, status, error, chunks, duration_ms, report, citations, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Username, run.Year, run.Schema, run.Status, run.Error,
		run.Chunks, run.DurationMS, string(run.Report), string(citations), createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// RecentRuns returns the most recent runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]*storage.Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, year, schema, status, error, chunks, duration_ms, report, citations, created_at
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*storage.Run
	for rows.Next() {
		var (
			run          storage.Run
			errMsg       sql.NullString
			report       sql.NullString
			citationsRaw sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.Username, &run.Year, &run.Schema, &run.Status,
			&errMsg, &run.Chunks, &run.DurationMS, &report, &citationsRaw, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Error = errMsg.String
		if report.Valid && report.String != "" {
			run.Report = json.RawMessage(report.String)
		}
		if citationsRaw.Valid && citationsRaw.String != "" {
			if err := json.Unmarshal([]byte(citationsRaw.String), &run.Citations); err != nil {
				return nil, fmt.Errorf("failed to decode citations: %w", err)
			}
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
