package config

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/warp/qb-export/generic"
	"github.com/warp/qb-export/source"
	"github.com/warp/qb-export/store/postgres"
	"github.com/warp/qb-export/store/sqlite"
)

// OpenSource opens the configured source store. The returned close func is
// never nil.
func (c *Configuration) OpenSource(ctx context.Context) (source.Store, func(), error) {
	switch c.SourceDriver {
	case DriverCSV:
		return source.CSVDir{Dir: c.Source}, func() {}, nil
	case DriverSQLite:
		s, err := sqlite.New(c.Source)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite source: %w", err)
		}
		return s, func() { s.Close() }, nil
	case DriverPostgres:
		s, err := postgres.New(ctx, c.Source)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres source: %w", err)
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", generic.ErrUnknownDriver, c.SourceDriver)
	}
}

// OpenSaver opens the configured source store for writing. CSV sources are
// read-only.
func (c *Configuration) OpenSaver(ctx context.Context) (source.Saver, func(), error) {
	if c.SourceDriver == DriverCSV {
		return nil, nil, fmt.Errorf("source driver %q is read-only", c.SourceDriver)
	}
	s, closeFn, err := c.OpenSource(ctx)
	if err != nil {
		return nil, nil, err
	}
	saver, ok := s.(source.Saver)
	if !ok {
		closeFn()
		return nil, nil, fmt.Errorf("source driver %q is read-only", c.SourceDriver)
	}
	return saver, closeFn, nil
}

// OpenRuns opens the SQLite run history at QB_RUNS_DB.
func (c *Configuration) OpenRuns() (*sqlite.Store, error) {
	s, err := sqlite.New(c.RunsDB)
	if err != nil {
		return nil, fmt.Errorf("open run history: %w", err)
	}
	return s, nil
}

// NewLogger builds a production zap logger at LOG_LEVEL; verbose forces
// debug.
func (c *Configuration) NewLogger(verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	level := zapcore.InfoLevel
	if c.LogLevel != "" {
		if err := level.Set(c.LogLevel); err != nil {
			return nil, fmt.Errorf("LOG_LEVEL: %w", err)
		}
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
