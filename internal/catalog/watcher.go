package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/retroarena/eventengine/internal/domain"
)

const defaultSettleDelay = 250 * time.Millisecond

// Watcher reloads the catalog file when it changes and hands the new events
// to apply. A failed reload is logged and the previous catalog stays live.
type Watcher struct {
	path        string
	loader      *Loader
	apply       func([]domain.Event)
	logger      *slog.Logger
	settleDelay time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher creates a watcher for path.
func NewWatcher(path string, loader *Loader, apply func([]domain.Event), logger *slog.Logger) *Watcher {
	return &Watcher{
		path:        filepath.Clean(path),
		loader:      loader,
		apply:       apply,
		logger:      logger,
		settleDelay: defaultSettleDelay,
	}
}

// Run watches until ctx is cancelled. Editors often replace files by rename,
// so the parent directory is watched and events are filtered by name.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch catalog dir: %w", err)
	}

	w.logger.Info("watching catalog", "path", w.path)

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.scheduleReload()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("catalog watcher error", "error", err)
		}
	}
}

// scheduleReload debounces bursts of writes into one reload.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.settleDelay, w.reload)
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *Watcher) reload() {
	events, err := w.loader.Load(w.path)
	if err != nil {
		w.logger.Warn("catalog reload failed, keeping previous catalog", "path", w.path, "error", err)
		return
	}
	w.apply(events)
	w.logger.Info("catalog reloaded", "events", len(events))
}
