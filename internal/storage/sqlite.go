package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var ErrRunNotFound = errors.New("run not found")

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			legacy_path TEXT,
			target_path TEXT,
			backup_path TEXT,
			status TEXT,
			step INTEGER,
			total INTEGER,
			label TEXT,
			error TEXT,
			started_at TEXT,
			finished_at TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS artifacts (
			run_id TEXT,
			kind TEXT,
			source TEXT,
			target TEXT,
			PRIMARY KEY (run_id, target)
		);`,
		`CREATE TABLE IF NOT EXISTS diagnostics (
			run_id TEXT,
			seq INTEGER,
			file TEXT,
			rule TEXT,
			severity TEXT,
			message TEXT,
			line INTEGER,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

// SaveRun writes the run as a snapshot: artifacts and diagnostics stored by an
// earlier save of the same run are replaced.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, legacy_path, target_path, backup_path, status, step, total, label, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			legacy_path=excluded.legacy_path,
			target_path=excluded.target_path,
			backup_path=excluded.backup_path,
			status=excluded.status,
			step=excluded.step,
			total=excluded.total,
			label=excluded.label,
			error=excluded.error,
			started_at=excluded.started_at,
			finished_at=excluded.finished_at
	`, run.ID, run.LegacyPath, run.TargetPath, run.BackupPath, run.Status, run.Step, run.Total, run.Label, run.Error,
		formatTime(run.StartedAt), formatTime(run.FinishedAt))
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	for _, q := range []string{"DELETE FROM artifacts WHERE run_id = ?", "DELETE FROM diagnostics WHERE run_id = ?"} {
		if _, err := tx.ExecContext(ctx, q, run.ID); err != nil {
			return err
		}
	}

	artStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO artifacts (run_id, kind, source, target) VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id, target) DO UPDATE SET kind=excluded.kind, source=excluded.source
	`)
	if err != nil {
		return err
	}
	defer artStmt.Close()
	for _, a := range run.Artifacts {
		if _, err := artStmt.ExecContext(ctx, run.ID, a.Kind, a.Source, a.Target); err != nil {
			return fmt.Errorf("failed to save artifact %s: %w", a.Target, err)
		}
	}

	diagStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO diagnostics (run_id, seq, file, rule, severity, message, line) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer diagStmt.Close()
	for i, d := range run.Diagnostics {
		if _, err := diagStmt.ExecContext(ctx, run.ID, i, d.File, d.Rule, d.Severity, d.Message, d.Line); err != nil {
			return fmt.Errorf("failed to save diagnostic: %w", err)
		}
	}

	return tx.Commit()
}

const runColumns = "id, legacy_path, target_path, backup_path, status, step, total, label, error, started_at, finished_at"

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner, extra ...any) (*Run, error) {
	var r Run
	var started, finished string
	dest := []any{&r.ID, &r.LegacyPath, &r.TargetPath, &r.BackupPath, &r.Status, &r.Step, &r.Total, &r.Label, &r.Error, &started, &finished}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	r.StartedAt = parseTime(started)
	r.FinishedAt = parseTime(finished)
	return &r, nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT kind, source, target FROM artifacts WHERE run_id = ? ORDER BY rowid", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var a Artifact
		if err := rows.Scan(&a.Kind, &a.Source, &a.Target); err != nil {
			return nil, err
		}
		r.Artifacts = append(r.Artifacts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	diagRows, err := s.db.QueryContext(ctx, "SELECT file, rule, severity, message, line FROM diagnostics WHERE run_id = ? ORDER BY seq", id)
	if err != nil {
		return nil, err
	}
	defer diagRows.Close()
	for diagRows.Next() {
		var d Diagnostic
		if err := diagRows.Scan(&d.File, &d.Rule, &d.Severity, &d.Message, &d.Line); err != nil {
			return nil, err
		}
		r.Diagnostics = append(r.Diagnostics, d)
	}
	return r, diagRows.Err()
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`,
			(SELECT COUNT(*) FROM artifacts a WHERE a.run_id = runs.id),
			(SELECT COUNT(*) FROM diagnostics d WHERE d.run_id = runs.id)
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var artifacts, diagnostics int
		r, err := scanRun(rows, &artifacts, &diagnostics)
		if err != nil {
			return nil, err
		}
		r.ArtifactCount = artifacts
		r.DiagnosticCount = diagnostics
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}
