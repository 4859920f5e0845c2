// Package watcher re-triggers runs when files in the scripts directory
// change.
//
// The watcher is an external collaborator of the runner: it debounces file
// system events and invokes a trigger callback, nothing more. Overlapping
// triggers are suppressed with an execution-in-progress guard because the
// runner's single connection must never be shared across concurrent runs.
package watcher

import (
	"context"
	"path/filepath"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/sqlrun/sqlrun/pkg/logger"
)

type (
	// Config configures a Watcher.
	Config struct {
		// Dir is the directory to watch (non-recursive, like the scanner).
		Dir string

		// Debounce is how long to wait after the last relevant event before
		// triggering.
		Debounce time.Duration

		// Pattern restricts which file names count as relevant changes.
		Pattern *regexp.Regexp

		// OnTrigger is invoked after the debounce window closes. It runs on
		// its own goroutine; a trigger arriving while a previous one is
		// still running is skipped.
		OnTrigger func(ctx context.Context)

		// Logger receives progress and warnings. Defaults to logger.Nop().
		Logger logger.Logger
	}

	// Watcher debounces file change events into run triggers.
	Watcher struct {
		cfg     Config
		log     logger.Logger
		running atomic.Bool
	}
)

// New creates a Watcher.
func New(cfg Config) *Watcher {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Watcher{cfg: cfg, log: log}
}

// Watch blocks watching the directory until ctx is cancelled. It returns nil
// on cancellation; only watcher setup failures are errors.
func (w *Watcher) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create watcher")
	}
	defer func() { _ = fsw.Close() }()

	if err := fsw.Add(w.cfg.Dir); err != nil {
		return errors.Wrapf(err, "failed to watch dir: %s", w.cfg.Dir)
	}

	w.log.Info("watching %s for changes", w.cfg.Dir)

	var timerC <-chan time.Time
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}

			w.log.Debug("change detected: %s (%s)", filepath.Base(ev.Name), ev.Op)
			timer.Reset(w.cfg.Debounce)
			timerC = timer.C

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warning("watch error: %v", err)

		case <-timerC:
			timerC = nil
			w.trigger(ctx)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) &&
		!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}

	if w.cfg.Pattern == nil {
		return true
	}

	return w.cfg.Pattern.MatchString(filepath.Base(ev.Name))
}

// trigger invokes OnTrigger unless a previous trigger is still running.
func (w *Watcher) trigger(ctx context.Context) {
	if !w.running.CompareAndSwap(false, true) {
		w.log.Warning("previous run still in progress; skipping this change")
		return
	}

	go func() {
		defer w.running.Store(false)
		w.cfg.OnTrigger(ctx)
	}()
}
