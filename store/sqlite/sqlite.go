/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Holds the HR/benefits source tables for sites that stage their nightly
  export into a local database instead of a directory of CSV files, and
  keeps the history of export runs.

INTERFACES IMPLEMENTED:
  source.Store:     Load the full snapshot for a run
  source.Saver:     Replace the snapshot (import command, fixtures)
  generic.RunStore: Run bookkeeping

KEY TABLES:
  employees, work_assignments, contacts,
  benefits, dependents, identifications: see store/schema
  runs:                                  one row per export run

REPLACE SEMANTICS:
  Save() swaps the whole snapshot in one transaction: every source table is
  cleared and refilled. Runs are never touched by Save().

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. With PostgreSQL (store/postgres)
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so the API can read while
  a run records its result.

USAGE:
  store, err := sqlite.New("./data/qb.db")
  if err != nil {
      return err
  }
  defer store.Close()

  snap, err := store.Load(ctx)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - source/store.go: Store and Saver interfaces
  - generic/store.go: RunStore interface
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/qb-export/generic"
	"github.com/warp/qb-export/source"
	"github.com/warp/qb-export/store/schema"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ source.Store     = (*Store)(nil)
	_ source.Saver     = (*Store)(nil)
	_ generic.RunStore = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	runs := `
	-- Export runs
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		as_of TEXT NOT NULL,
		status TEXT NOT NULL,
		extract_rows INTEGER NOT NULL DEFAULT 0,
		beneficiaries INTEGER NOT NULL DEFAULT 0,
		output_path TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at
		ON runs(started_at DESC);

	CREATE INDEX IF NOT EXISTS idx_employees_id
		ON employees(employee_id);
	CREATE INDEX IF NOT EXISTS idx_benefits_employee
		ON benefits(employee_id);
	CREATE INDEX IF NOT EXISTS idx_dependents_employee
		ON dependents(employee_id);
	`

	_, err := s.db.Exec(schema.DDL() + runs)
	return err
}

// =============================================================================
// SOURCE STORE (source.Store / source.Saver)
// =============================================================================

// Load reads every source table in saved order.
func (s *Store) Load(ctx context.Context) (*source.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &source.Snapshot{}
	for _, t := range schema.Tables() {
		if err := s.loadTable(ctx, t, snap); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

func (s *Store) loadTable(ctx context.Context, t schema.Table, snap *source.Snapshot) error {
	rows, err := s.db.QueryContext(ctx, t.SelectSQL())
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", t.Name, err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := t.ScanInto(rows, snap); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Save replaces all source tables with snap atomically.
func (s *Store) Save(ctx context.Context, snap *source.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, t := range schema.Tables() {
		if _, err := sqlTx.ExecContext(ctx, "DELETE FROM "+t.Name); err != nil {
			return fmt.Errorf("failed to clear %s: %w", t.Name, err)
		}
		if err := insertRows(ctx, sqlTx, t, snap); err != nil {
			return err
		}
	}

	return sqlTx.Commit()
}

func insertRows(ctx context.Context, tx *sql.Tx, t schema.Table, snap *source.Snapshot) error {
	rows := t.Rows(snap)
	if len(rows) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(t.Columns)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.Name, strings.Join(t.Columns, ", "), placeholders)

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare insert into %s: %w", t.Name, err)
	}
	defer stmt.Close()

	for _, args := range rows {
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", t.Name, err)
		}
	}
	return nil
}

// Reset clears all data (for testing/demo purposes).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"runs"}
	for _, t := range schema.Tables() {
		tables = append(tables, t.Name)
	}
	for _, t := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+t); err != nil {
			return fmt.Errorf("failed to clear %s: %w", t, err)
		}
	}
	return nil
}

// =============================================================================
// RUN STORE (generic.RunStore interface)
// =============================================================================

// StartRun records a run in started state.
func (s *Store) StartRun(ctx context.Context, run generic.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO runs (id, as_of, status, output_path, started_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.AsOf.String(),
		generic.RunStarted,
		run.OutputPath,
		run.StartedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}
	return nil
}

// FinishRun records the terminal state of a run.
func (s *Store) FinishRun(ctx context.Context, run generic.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE runs
		SET status = ?, extract_rows = ?, beneficiaries = ?, output_path = ?, error = ?, completed_at = ?
		WHERE id = ?
	`

	res, err := s.db.ExecContext(ctx, query,
		run.Status,
		run.ExtractRows,
		run.Beneficiaries,
		run.OutputPath,
		run.Error,
		run.CompletedAt.UTC().Format(time.RFC3339),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to finish run %s: %w", run.ID, generic.ErrRunNotFound)
	}
	return nil
}

// ListRuns returns runs newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]generic.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, as_of, status, extract_rows, beneficiaries, output_path, error, started_at, completed_at
		FROM runs
		ORDER BY started_at DESC, rowid DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []generic.RunRecord
	for rows.Next() {
		var r generic.RunRecord
		var asOf, startedAt string
		var completedAt sql.NullString
		if err := rows.Scan(&r.ID, &asOf, &r.Status, &r.ExtractRows, &r.Beneficiaries,
			&r.OutputPath, &r.Error, &startedAt, &completedAt); err != nil {
			return nil, err
		}

		var err error
		if r.AsOf, err = generic.ParseDate("runs.as_of", asOf); err != nil {
			return nil, fmt.Errorf("run %s: %w", r.ID, err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339, startedAt); err != nil {
			return nil, fmt.Errorf("run %s: started_at: %w", r.ID, err)
		}
		if completedAt.Valid {
			if r.CompletedAt, err = time.Parse(time.RFC3339, completedAt.String); err != nil {
				return nil, fmt.Errorf("run %s: completed_at: %w", r.ID, err)
			}
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}
