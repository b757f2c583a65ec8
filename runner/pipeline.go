/*
Package runner drives the two export stages against files on disk.

PURPOSE:
  Stage one loads the source snapshot, runs the eligibility engine and writes
  the flattened extract. Stage two reads that extract back, builds the block
  tree and writes the vendor import file. The extract file is the only
  contract between the stages, so either can be rerun on its own.

RUN LIFECYCLE:
  Run() = Extract() + Build(), recorded in a generic.RunStore:

    StartRun(started) -> extract -> build -> FinishRun(succeeded | failed)

  A failed build leaves no output file: the previous output is removed
  before reading the extract and segment.WriteFile is atomic.

SEE ALSO:
  - runner/archive.go: timestamped archival of inputs and outputs
  - runner/watch.go: rebuilds when the extract file changes
  - cmd/qbexport: CLI commands wrapping these methods
*/
package runner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/qb-export/eligibility"
	"github.com/warp/qb-export/extract"
	"github.com/warp/qb-export/generic"
	"github.com/warp/qb-export/rules"
	"github.com/warp/qb-export/segment"
	"github.com/warp/qb-export/source"
)

// Paths names the files exchanged by the stages.
type Paths struct {
	Extract string
	Output  string
}

// DefaultPaths are used when the builder is invoked without arguments.
var DefaultPaths = Paths{
	Extract: "cobra_extract.csv",
	Output:  "cobra_qb_import.csv",
}

// Pipeline wires a source store and the rules to both stages.
type Pipeline struct {
	rules  *rules.Rules
	source source.Store
	runs   generic.RunStore
	logger *zap.Logger
	now    func() time.Time
}

// New returns a pipeline. runs may be nil, in which case Run records nothing.
func New(r *rules.Rules, src source.Store, runs generic.RunStore, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{rules: r, source: src, runs: runs, logger: logger, now: time.Now}
}

// Rules returns the rules the pipeline was built with.
func (p *Pipeline) Rules() *rules.Rules { return p.rules }

// =============================================================================
// STAGE ONE - ELIGIBILITY
// =============================================================================

// Rows loads the snapshot and computes the extract rows for asOf without
// touching the filesystem.
func (p *Pipeline) Rows(ctx context.Context, asOf generic.Date) ([]extract.Row, error) {
	if p.source == nil {
		return nil, fmt.Errorf("no source store configured")
	}
	snap, err := p.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load source: %w", err)
	}
	return eligibility.NewEngine(p.rules, p.logger).Flatten(snap, asOf), nil
}

// Extract computes the rows for asOf and writes them to path. The format
// follows the file extension (.csv or .parquet).
func (p *Pipeline) Extract(ctx context.Context, asOf generic.Date, path string) (int, error) {
	rows, err := p.Rows(ctx, asOf)
	if err != nil {
		return 0, err
	}
	if err := extract.WriteFile(path, rows); err != nil {
		return 0, fmt.Errorf("write extract: %w", err)
	}
	p.logger.Info("extract written",
		zap.String("path", path),
		zap.String("as_of", asOf.String()),
		zap.Int("rows", len(rows)))
	return len(rows), nil
}

// =============================================================================
// STAGE TWO - SEGMENTS
// =============================================================================

// Segments builds the block tree from in-memory rows.
func (p *Pipeline) Segments(rows []extract.Row) (*segment.Result, error) {
	return segment.NewBuilder(p.rules.Client, p.logger).Build(rows)
}

// Build reads the extract at paths.Extract and writes the import file to
// paths.Output. Any earlier file at paths.Output is removed first, so on
// error no output file exists.
func (p *Pipeline) Build(paths Paths) (*segment.Result, error) {
	if err := os.Remove(paths.Output); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("remove previous output: %w", err)
	}
	rows, err := extract.ReadFile(paths.Extract)
	if err != nil {
		return nil, fmt.Errorf("read extract: %w", err)
	}
	res, err := p.Segments(rows)
	if err != nil {
		return nil, err
	}
	if err := segment.WriteFile(paths.Output, p.rules.Output.Version, res.Beneficiaries); err != nil {
		return nil, fmt.Errorf("write output: %w", err)
	}
	p.logger.Info("import file written",
		zap.String("path", paths.Output),
		zap.Int("rows", len(rows)),
		zap.Int("beneficiaries", len(res.Beneficiaries)),
		zap.Int("warnings", len(res.Warnings)))
	return res, nil
}

// =============================================================================
// FULL RUN
// =============================================================================

// Run executes both stages for asOf and records the outcome. The returned
// record is the one passed to FinishRun.
func (p *Pipeline) Run(ctx context.Context, asOf generic.Date, paths Paths) (generic.RunRecord, error) {
	run := generic.RunRecord{
		ID:         uuid.NewString(),
		AsOf:       asOf,
		Status:     generic.RunStarted,
		OutputPath: paths.Output,
		StartedAt:  p.now().UTC(),
	}
	log := p.logger.With(zap.String("run_id", run.ID), zap.String("as_of", asOf.String()))

	if p.runs != nil {
		if err := p.runs.StartRun(ctx, run); err != nil {
			return run, fmt.Errorf("record run start: %w", err)
		}
	}
	log.Info("run started")

	err := p.runStages(ctx, &run, paths)

	run.CompletedAt = p.now().UTC()
	if err != nil {
		run.Status = generic.RunFailed
		run.Error = err.Error()
		log.Error("run failed", zap.Error(err))
	} else {
		run.Status = generic.RunSucceeded
		log.Info("run succeeded",
			zap.Int("rows", run.ExtractRows),
			zap.Int("beneficiaries", run.Beneficiaries))
	}

	if p.runs != nil {
		if ferr := p.runs.FinishRun(ctx, run); ferr != nil {
			log.Error("record run finish", zap.Error(ferr))
			if err == nil {
				err = fmt.Errorf("record run finish: %w", ferr)
			}
		}
	}
	return run, err
}

func (p *Pipeline) runStages(ctx context.Context, run *generic.RunRecord, paths Paths) error {
	n, err := p.Extract(ctx, run.AsOf, paths.Extract)
	if err != nil {
		return err
	}
	run.ExtractRows = n

	res, err := p.Build(paths)
	if err != nil {
		return err
	}
	run.Beneficiaries = len(res.Beneficiaries)
	return nil
}
