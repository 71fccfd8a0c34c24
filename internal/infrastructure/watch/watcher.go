package watch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 300 * time.Millisecond

// ChangeEvent is one debounced board edit.
type ChangeEvent struct {
	Path       string
	ChangeType string // "create", "write", "remove", "rename"
}

// Handler reacts to a board edit, typically by calling NotesChanged.
type Handler func(ctx context.Context, e ChangeEvent) error

// BoardWatcher watches the workspace directory for board edits.
type BoardWatcher struct {
	watcher  *fsnotify.Watcher
	filter   *PatternFilter
	debounce time.Duration
	handler  Handler
	logger   *slog.Logger
}

func NewBoardWatcher(debounce time.Duration, handler Handler, logger *slog.Logger) (*BoardWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BoardWatcher{
		watcher:  w,
		filter:   BoardFilter(),
		debounce: debounce,
		handler:  handler,
		logger:   logger,
	}, nil
}

// Watch adds dir. Editors often replace the board file, so the directory is
// watched rather than the file.
func (w *BoardWatcher) Watch(dir string) error {
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	return nil
}

// Run starts the event loop. It blocks until the context is cancelled.
// Handler errors are logged; the loop keeps running.
func (w *BoardWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	debouncer := NewDebouncer(w.debounce, func(e ChangeEvent) {
		if w.handler == nil || ctx.Err() != nil {
			return
		}
		w.logger.Debug("board changed", "path", e.Path, "change", e.ChangeType)
		if err := w.handler(ctx, e); err != nil {
			w.logger.Warn("board change handler failed", "path", e.Path, "error", err)
		}
	})
	defer debouncer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			changeType := opToChangeType(event.Op)
			if changeType == "" || !w.filter.Matches(event.Name) {
				continue
			}
			debouncer.Trigger(ChangeEvent{Path: event.Name, ChangeType: changeType})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

func opToChangeType(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "create"
	case op.Has(fsnotify.Write):
		return "write"
	case op.Has(fsnotify.Remove):
		return "remove"
	case op.Has(fsnotify.Rename):
		return "rename"
	default:
		return ""
	}
}
