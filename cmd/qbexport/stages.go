package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/qb-export/runner"
	"github.com/warp/qb-export/source"
)

var archiveAfter bool

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Compute the eligibility extract (.csv or .parquet)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.ExtractFile
		if len(args) == 1 {
			path = args[0]
		}

		src, closeSrc, err := cfg.OpenSource(cmd.Context())
		if err != nil {
			return err
		}
		defer closeSrc()

		_, err = runner.New(ruleBook, src, nil, logger).Extract(cmd.Context(), asOf(), path)
		return err
	},
}

var buildCmd = &cobra.Command{
	Use:   "build [extract] [output]",
	Short: "Build the vendor import file from an extract",
	Long: `Reads the extract and writes the segmented import file. With no
arguments the configured default file names are used.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths := configuredPaths()
		if len(args) > 0 {
			paths.Extract = args[0]
		}
		if len(args) > 1 {
			paths.Output = args[1]
		}

		_, err := runner.New(ruleBook, nil, nil, logger).Build(paths)
		archive(paths)
		return err
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run both stages and record the run",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		src, closeSrc, err := cfg.OpenSource(cmd.Context())
		if err != nil {
			return err
		}
		defer closeSrc()

		runs, err := cfg.OpenRuns()
		if err != nil {
			return err
		}
		defer runs.Close()

		paths := configuredPaths()
		run, err := runner.New(ruleBook, src, runs, logger).Run(cmd.Context(), asOf(), paths)
		archive(paths)
		if err != nil {
			return fmt.Errorf("run %s: %w", run.ID, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d rows, %d beneficiaries -> %s\n",
			run.ID, run.ExtractRows, run.Beneficiaries, paths.Output)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <csv-dir>",
	Short: "Load CSV table exports into the configured SQL source store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return importCSV(cmd.Context(), args[0])
	},
}

func init() {
	for _, c := range []*cobra.Command{buildCmd, runCmd} {
		c.Flags().BoolVar(&archiveAfter, "archive", false, "move extract and output into QB_ARCHIVE_DIR afterwards")
	}
}

func configuredPaths() runner.Paths {
	return runner.Paths{Extract: cfg.ExtractFile, Output: cfg.OutputFile}
}

// archive moves both files when --archive is set, whatever the outcome of
// the build. Archival problems are logged, never returned.
func archive(paths runner.Paths) {
	if !archiveAfter {
		return
	}
	if _, err := runner.NewArchiver(cfg.ArchiveDir, logger).Archive(paths.Extract, paths.Output); err != nil {
		logger.Error("archive failed", zap.Error(err))
	}
}

func importCSV(ctx context.Context, dir string) error {
	snap, err := source.CSVDir{Dir: dir}.Load(ctx)
	if err != nil {
		return err
	}

	saver, closeFn, err := cfg.OpenSaver(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := saver.Save(ctx, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	logger.Info("source imported",
		zap.String("from", dir),
		zap.String("driver", cfg.SourceDriver),
		zap.Int("employees", len(snap.Employees)),
		zap.Int("benefits", len(snap.Benefits)),
		zap.Int("dependents", len(snap.Dependents)))
	return nil
}
