/*
store.go - Persistence interface for batch run history

PURPOSE:
  Every export run is recorded so operators can see which "as of" dates were
  processed, how many rows and beneficiaries were produced, and why a run
  failed. Source tables are loaded through source.Store; this file only
  covers bookkeeping of runs.

APPEND-ONLY CONTRACT:
  StartRun() inserts a row, FinishRun() sets its terminal state once.
  Runs are never deleted.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - source/store.go: source table loading
  - cmd/qbexport/run.go: records runs around the pipeline
*/
package generic

import (
	"context"
	"time"
)

// =============================================================================
// RUN RECORD
// =============================================================================

type RunStatus string

const (
	RunStarted   RunStatus = "started"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// RunRecord is one execution of the pipeline.
type RunRecord struct {
	ID            string
	AsOf          Date
	Status        RunStatus
	ExtractRows   int
	Beneficiaries int
	OutputPath    string
	Error         string
	StartedAt     time.Time
	CompletedAt   time.Time
}

// =============================================================================
// RUN STORE
// =============================================================================

// RunStore records pipeline runs.
type RunStore interface {
	// StartRun persists a run in RunStarted state.
	StartRun(ctx context.Context, run RunRecord) error

	// FinishRun records the terminal state of a run.
	FinishRun(ctx context.Context, run RunRecord) error

	// ListRuns returns runs newest first, at most limit entries (0 = all).
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
}
