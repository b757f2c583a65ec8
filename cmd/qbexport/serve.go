package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/qb-export/api"
	"github.com/warp/qb-export/runner"
	"github.com/warp/qb-export/source"
)

var (
	addrFlag string
	schedule time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the preview API",
	Long: `Starts the HTTP API. With --schedule, also runs the export once per day,
checking at the given interval.

On SIGINT/SIGTERM the server stops accepting connections, waits up to 30s
for active requests, stops the scheduler and closes the stores.`,
	Args: cobra.NoArgs,
	RunE: serve,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild the import file whenever the extract is written",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		p := runner.New(ruleBook, nil, nil, logger)
		w := runner.NewWatcher(p, runner.NewArchiver(cfg.ArchiveDir, logger), configuredPaths(), logger)
		return w.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&addrFlag, "addr", "", "listen address (default ADDRESS)")
	serveCmd.Flags().DurationVar(&schedule, "schedule", 0, "check interval for the daily run (0 = off)")
}

func serve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, closeSrc, err := cfg.OpenSource(ctx)
	if err != nil {
		return err
	}
	defer closeSrc()

	runs, err := cfg.OpenRuns()
	if err != nil {
		return err
	}
	defer runs.Close()

	saver, _ := src.(source.Saver)
	pipeline := runner.New(ruleBook, src, runs, logger)
	handler := api.NewHandler(pipeline, runs, saver, logger)
	handler.Paths = configuredPaths()

	if schedule > 0 {
		scheduler := api.NewRunScheduler(pipeline, runs, configuredPaths(), logger)
		scheduler.CheckInterval = schedule
		scheduler.Start()
		defer scheduler.Stop()
	}

	addr := cfg.Address
	if addrFlag != "" {
		addr = addrFlag
	}
	server := &http.Server{
		Addr:         addr,
		Handler:      api.NewRouter(handler, cfg.Origins()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", addr), zap.String("source", cfg.SourceDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
