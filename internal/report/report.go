// Package report keeps a history of weave runs in a SQLite database: one
// row per run and one row per rewritten call.
package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id                TEXT PRIMARY KEY,
		module            TEXT NOT NULL,
		input             TEXT NOT NULL,
		output            TEXT NOT NULL,
		started_at        INTEGER NOT NULL,
		duration_ns       INTEGER NOT NULL,
		removed_methods   INTEGER NOT NULL,
		removed_fields    INTEGER NOT NULL,
		reference_removed INTEGER NOT NULL,
		error             TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS rewrites (
		run_id   TEXT NOT NULL REFERENCES runs(id),
		seq      INTEGER NOT NULL,
		method   TEXT NOT NULL,
		name     TEXT NOT NULL,
		template TEXT NOT NULL,
		document TEXT NOT NULL DEFAULT '',
		line     INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, seq)
	)`,
}

// ErrNotFound is returned for unknown run ids
var ErrNotFound = errors.New("run not found")

// Run is one weave of one module. A failed run has Err set and usually no
// rewrites.
type Run struct {
	ID       uuid.UUID
	Module   string
	Input    string
	Output   string
	Started  time.Time
	Duration time.Duration

	Rewrites         []Rewrite
	RemovedMethods   int
	RemovedFields    int
	ReferenceRemoved bool

	Err string
}

// Rewrite is one marker call replaced by a literal
type Rewrite struct {
	Method   string
	Name     string
	Template string
	Document string
	Line     int
}

// Store is an open report database
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open report %s: %w", path, err)
	}
	// a single writer; sqlite serializes anyway
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init report %s: %w", path, err)
		}
	}
	return &Store{db: db}, nil
}

// Close releases the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores run and its rewrites in one transaction. A run without an
// id gets a fresh one.
func (s *Store) Record(ctx context.Context, run *Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, module, input, output, started_at, duration_ns,
			removed_methods, removed_fields, reference_removed, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.Module, run.Input, run.Output,
		run.Started.UnixNano(), int64(run.Duration),
		run.RemovedMethods, run.RemovedFields, run.ReferenceRemoved, run.Err)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO rewrites (run_id, seq, method, name, template, document, line)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, rw := range run.Rewrites {
		if _, err := stmt.ExecContext(ctx, run.ID.String(), i,
			rw.Method, rw.Name, rw.Template, rw.Document, rw.Line); err != nil {
			return fmt.Errorf("record rewrite %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Run loads a recorded run with its rewrites
func (s *Store) Run(ctx context.Context, id uuid.UUID) (*Run, error) {
	run := &Run{ID: id}
	var started, duration int64
	err := s.db.QueryRowContext(ctx,
		`SELECT module, input, output, started_at, duration_ns,
			removed_methods, removed_fields, reference_removed, error
		FROM runs WHERE id = ?`, id.String()).
		Scan(&run.Module, &run.Input, &run.Output, &started, &duration,
			&run.RemovedMethods, &run.RemovedFields, &run.ReferenceRemoved, &run.Err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	run.Started = time.Unix(0, started)
	run.Duration = time.Duration(duration)

	if run.Rewrites, err = s.Rewrites(ctx, id); err != nil {
		return nil, err
	}
	return run, nil
}

// Rewrites lists the rewrites of a run in the order they happened
func (s *Store) Rewrites(ctx context.Context, runID uuid.UUID) ([]Rewrite, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT method, name, template, document, line
		FROM rewrites WHERE run_id = ? ORDER BY seq`, runID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Rewrite
	for rows.Next() {
		var rw Rewrite
		if err := rows.Scan(&rw.Method, &rw.Name, &rw.Template, &rw.Document, &rw.Line); err != nil {
			return nil, err
		}
		out = append(out, rw)
	}
	return out, rows.Err()
}

// Runs lists the ids of all runs of module, newest first
func (s *Store) Runs(ctx context.Context, module string) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM runs WHERE module = ? ORDER BY started_at DESC`, module)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt run id %q: %w", raw, err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
