package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"autopilot/internal/logging"

	_ "modernc.org/sqlite"
)

// SqlStore implements Store with SQLite.
type SqlStore struct {
	db *sql.DB
}

// Open opens or creates a SQLite DB at path and runs migrations.
// Creates the parent directory (e.g. .autopilot) if it does not exist.
func Open(path string) (*SqlStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; concurrent jobs share the handle.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &SqlStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	logging.New("store").Debug("sqlite store open", "path", path)
	return s, nil
}

func (s *SqlStore) migrate() error {
	var tableCount int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableCount == 0 {
		return s.freshInstall()
	}

	var v int
	err = s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		// Interrupted install: the table exists but was never stamped.
		return s.freshInstall()
	}
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if v != currentSchemaVersion {
		return fmt.Errorf("unknown schema version %d", v)
	}
	return nil
}

func (s *SqlStore) freshInstall() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin install tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(schemaV1); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.Exec("INSERT INTO schema_version(version) VALUES(?)", currentSchemaVersion); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return tx.Commit()
}

// Close closes the database connection.
func (s *SqlStore) Close() error {
	return s.db.Close()
}

const upsertExport = `
INSERT INTO exports(key, job_id, payload, result, created_at) VALUES(?, ?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
	job_id = excluded.job_id,
	payload = excluded.payload,
	result = excluded.result,
	created_at = excluded.created_at`

// SaveExport writes the job row and moves the latest alias in one transaction.
func (s *SqlStore) SaveExport(ctx context.Context, jobID string, payload, result []byte) error {
	if jobID == "" || jobID == LatestKey {
		return fmt.Errorf("invalid export key %q", jobID)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin export tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := nowUTC().Format(time.RFC3339)
	for _, key := range []string{jobID, LatestKey} {
		if _, err := tx.ExecContext(ctx, upsertExport, key, jobID, payload, result, now); err != nil {
			return fmt.Errorf("save export %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit export tx: %w", err)
	}
	return nil
}

// GetExport returns the export stored under key, or nil if there is none.
func (s *SqlStore) GetExport(ctx context.Context, key string) (*Export, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT key, job_id, payload, result, created_at FROM exports WHERE key = ?", key)
	e, err := scanExport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get export %s: %w", key, err)
	}
	return e, nil
}

// ListExports returns every job export, newest first. The latest alias is
// not repeated.
func (s *SqlStore) ListExports(ctx context.Context) ([]*Export, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT key, job_id, payload, result, created_at FROM exports WHERE key <> ? ORDER BY created_at DESC, key",
		LatestKey)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}
	defer rows.Close()

	var out []*Export
	for rows.Next() {
		e, err := scanExport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan export: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExport(sc scanner) (*Export, error) {
	var (
		e       Export
		created string
	)
	if err := sc.Scan(&e.Key, &e.JobID, &e.Payload, &e.Result, &created); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339, created)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	e.CreatedAt = t
	return &e, nil
}
