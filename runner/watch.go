package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher rebuilds the import file whenever the extract file is written,
// then archives both files.
type Watcher struct {
	pipeline *Pipeline
	archiver *Archiver
	paths    Paths
	debounce time.Duration
	logger   *zap.Logger

	// OnCycle, when set, is called after every rebuild attempt.
	OnCycle func(err error)
}

// NewWatcher returns a watcher for paths.Extract.
func NewWatcher(p *Pipeline, a *Archiver, paths Paths, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		pipeline: p,
		archiver: a,
		paths:    paths,
		debounce: 500 * time.Millisecond,
		logger:   logger,
	}
}

// SetDebounce changes how long the watcher waits for writes to settle.
func (w *Watcher) SetDebounce(d time.Duration) { w.debounce = d }

// Run watches the extract file's directory until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	target, err := filepath.Abs(w.paths.Extract)
	if err != nil {
		return err
	}
	dir := filepath.Dir(target)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.Info("watching extract", zap.String("path", target))

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if abs, _ := filepath.Abs(ev.Name); abs != target {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", zap.Error(err))

		case <-fire:
			fire = nil
			w.cycle()
		}
	}
}

// cycle rebuilds and archives. Inputs and outputs are archived whether or
// not the build succeeded.
func (w *Watcher) cycle() {
	_, err := w.pipeline.Build(w.paths)
	if err != nil {
		w.logger.Error("rebuild failed", zap.Error(err))
	}
	if _, aerr := w.archiver.Archive(w.paths.Extract, w.paths.Output); aerr != nil {
		w.logger.Error("archive failed", zap.Error(aerr))
	}
	if w.OnCycle != nil {
		w.OnCycle(err)
	}
}
