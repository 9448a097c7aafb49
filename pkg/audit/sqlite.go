// SPDX-License-Identifier: Apache-2.0
package audit

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists run records in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLite-backed run store and ensures the schema.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if err := ensureRunSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Record stores a single run record.
func (s *SQLiteStore) Record(ctx context.Context, rec RunRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO classification_runs (
			client_id, trace_id, status, field, role, generated_at, error_text, started_at, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ClientID,
		rec.TraceID,
		rec.Status,
		rec.Field,
		rec.Role,
		rec.GeneratedAt,
		rec.Error,
		normalizeTime(rec.StartedAt),
		rec.Duration.Milliseconds(),
	)
	return err
}

// List returns run records matching the filter.
func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]RunRecord, error) {
	query := `
		SELECT client_id, trace_id, status, field, role, generated_at, error_text, started_at, duration_ms
		FROM classification_runs
	`
	var args []any
	where := ""
	addFilter := func(clause string, value any) {
		if where == "" {
			where = " WHERE " + clause
		} else {
			where += " AND " + clause
		}
		args = append(args, value)
	}
	if filter.ClientID != 0 {
		addFilter("client_id = ?", filter.ClientID)
	}
	if filter.Status != "" {
		addFilter("status = ?", filter.Status)
	}
	query += where + " ORDER BY started_at ASC, rowid ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var (
			rec        RunRecord
			started    sql.NullTime
			durationMs int64
		)
		if err := rows.Scan(
			&rec.ClientID,
			&rec.TraceID,
			&rec.Status,
			&rec.Field,
			&rec.Role,
			&rec.GeneratedAt,
			&rec.Error,
			&started,
			&durationMs,
		); err != nil {
			return nil, err
		}
		if started.Valid {
			rec.StartedAt = started.Time
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func ensureRunSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS classification_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			client_id INTEGER NOT NULL,
			trace_id TEXT NOT NULL,
			status TEXT NOT NULL,
			field TEXT,
			role TEXT,
			generated_at TEXT,
			error_text TEXT,
			started_at TIMESTAMP,
			duration_ms INTEGER
		);
		CREATE INDEX IF NOT EXISTS idx_runs_client ON classification_runs(client_id);
		CREATE INDEX IF NOT EXISTS idx_runs_status ON classification_runs(status);
	`)
	return err
}
