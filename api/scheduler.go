/*
scheduler.go - Daily export scheduler

PURPOSE:
  Periodically checks whether today's export has already succeeded and, if
  not, runs the pipeline. The vendor expects one file per business day;
  a failed run is retried on the next check.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Skips a date once a run for it has succeeded
  - Every attempt is recorded in the run store for audit and UI display

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewRunScheduler(pipeline, runs, paths, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerRun endpoint (manual run)
  - runner/pipeline.go: Run
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/qb-export/generic"
	"github.com/warp/qb-export/runner"
)

// RunScheduler runs the export once per as-of date.
type RunScheduler struct {
	Pipeline      *runner.Pipeline
	Runs          generic.RunStore
	Paths         runner.Paths
	CheckInterval time.Duration
	Enabled       bool
	Today         func() generic.Date

	logger *zap.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRunScheduler creates a new scheduler. runs must not be nil: it is how
// the scheduler knows a date is done.
func NewRunScheduler(p *runner.Pipeline, runs generic.RunStore, paths runner.Paths, logger *zap.Logger) *RunScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunScheduler{
		Pipeline:      p,
		Runs:          runs,
		Paths:         paths,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		Today:         generic.Today,
		logger:        logger.Named("scheduler"),
	}
}

// Start begins the scheduler. It may be called again after Stop; a second
// Start while running is a no-op.
func (rs *RunScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		rs.logger.Info("disabled, not starting")
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.stop = make(chan struct{})
	rs.wg.Add(1)

	go rs.run(rs.ticker.C, rs.stop)

	rs.logger.Info("started", zap.Duration("interval", rs.CheckInterval))
}

// Stop stops the scheduler and waits for an in-flight run.
func (rs *RunScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		rs.logger.Info("stopped")
	}
}

func (rs *RunScheduler) run(tick <-chan time.Time, stop <-chan struct{}) {
	defer rs.wg.Done()

	// Run immediately on start
	rs.RunNow(context.Background())

	for {
		select {
		case <-tick:
			rs.RunNow(context.Background())
		case <-stop:
			return
		}
	}
}

// RunNow runs the pipeline for today unless a successful run already exists.
// It reports whether a run was attempted.
func (rs *RunScheduler) RunNow(ctx context.Context) bool {
	asOf := rs.Today()

	done, err := rs.succeeded(ctx, asOf)
	if err != nil {
		rs.logger.Error("list runs", zap.Error(err))
		return false
	}
	if done {
		rs.logger.Debug("already exported", zap.String("as_of", asOf.String()))
		return false
	}

	if _, err := rs.Pipeline.Run(ctx, asOf, rs.Paths); err != nil {
		rs.logger.Warn("scheduled run failed, will retry", zap.String("as_of", asOf.String()), zap.Error(err))
	}
	return true
}

func (rs *RunScheduler) succeeded(ctx context.Context, asOf generic.Date) (bool, error) {
	runs, err := rs.Runs.ListRuns(ctx, 0)
	if err != nil {
		return false, err
	}
	for _, run := range runs {
		if run.Status == generic.RunSucceeded && run.AsOf.Equal(asOf) {
			return true, nil
		}
	}
	return false, nil
}

// NextRunTime returns when the next scheduled check will occur.
func (rs *RunScheduler) NextRunTime() time.Time {
	return time.Now().Add(rs.CheckInterval)
}
