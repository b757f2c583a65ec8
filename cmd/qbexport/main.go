/*
main.go - qbexport command-line entry point

PURPOSE:
  Runs the COBRA qualified-beneficiary export: the eligibility stage writes
  the flattened extract, the builder stage turns it into the vendor import
  file. Each stage is its own subcommand so either can be rerun alone.

COMMANDS:
  extract [file]            Stage one: source tables -> extract
  build [extract] [output]  Stage two: extract -> import file (defaults when omitted)
  run                       Both stages, recorded in run history
  import <csv-dir>          Copy CSV table exports into the SQL source store
  serve                     Preview API (+ optional daily scheduler)
  watch                     Rebuild whenever the extract file is written

CONFIGURATION:
  Environment variables (optionally from .env), see config/config.go.
  Flags override the environment for the current invocation.

EXIT CODES:
  0 success, 1 any error (including a contract violation in the extract)

SEE ALSO:
  - runner/: stage orchestration
  - api/: HTTP server
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/qb-export/config"
	"github.com/warp/qb-export/generic"
	"github.com/warp/qb-export/rules"
)

var (
	verbose   bool
	envFile   string
	asOfFlag  string
	rulesFlag string

	cfg      *config.Configuration
	logger   *zap.Logger
	ruleBook *rules.Rules
)

var rootCmd = &cobra.Command{
	Use:   "qbexport",
	Short: "COBRA qualified-beneficiary export",
	Long: `qbexport finds employees and dependents with a qualifying event in the
trailing notification window and writes the hierarchical import file the
COBRA administration vendor expects.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(envFile); err != nil {
			return err
		}
		if asOfFlag != "" {
			cfg.AsOf = asOfFlag
		}
		if rulesFlag != "" {
			cfg.RulesFile = rulesFlag
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		if logger, err = cfg.NewLogger(verbose); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if ruleBook, err = rules.Load(cfg.RulesFile); err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load (ignored if missing)")
	rootCmd.PersistentFlags().StringVar(&asOfFlag, "as-of", "", "run date YYYY-MM-DD (default today, or QB_AS_OF)")
	rootCmd.PersistentFlags().StringVar(&rulesFlag, "rules", "", "rules YAML file (default embedded, or QB_RULES_FILE)")

	rootCmd.AddCommand(extractCmd, buildCmd, runCmd, importCmd, serveCmd, watchCmd)
}

func asOf() generic.Date { return cfg.AsOfDate() }

func main() {
	if err := rootCmd.Execute(); err != nil {
		if logger != nil {
			logger.Error("command failed", zap.Error(err))
			_ = logger.Sync()
		}
		os.Exit(1)
	}
}
