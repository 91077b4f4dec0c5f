package wordbank

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce collapses the burst of events editors emit on save.
const reloadDebounce = 250 * time.Millisecond

// Watcher serves a bank loaded from disk and reloads it when the file
// changes. A reload that fails to parse or validate keeps the previous bank.
type Watcher struct {
	path    string
	current atomic.Pointer[Bank]
	logger  *slog.Logger

	// reloaded is signalled after every reload attempt; tests wait on it.
	reloaded chan error
}

// NewWatcher loads path and returns a watcher serving it.
func NewWatcher(path string, logger *slog.Logger) (*Watcher, error) {
	b, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		path:     path,
		logger:   logger,
		reloaded: make(chan error, 1),
	}
	w.current.Store(b)
	return w, nil
}

// Current returns the most recently loaded bank.
func (w *Watcher) Current() *Bank {
	return w.current.Load()
}

// Reload re-reads the file now.
func (w *Watcher) Reload() error {
	b, err := LoadFile(w.path)
	if err != nil {
		w.logger.Error("word bank reload failed, keeping previous bank", "path", w.path, "error", err)
		w.signal(err)
		return err
	}
	w.current.Store(b)
	w.logger.Info("word bank reloaded",
		"path", w.path,
		"key_lines", len(b.KeyLines),
		"moods", len(b.Moods),
	)
	w.signal(nil)
	return nil
}

func (w *Watcher) signal(err error) {
	select {
	case w.reloaded <- err:
	default:
	}
}

// Run watches the bank's directory until ctx is cancelled. The directory is
// watched rather than the file so atomic rename-on-save is picked up.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fs watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", w.path, err)
	}

	target := filepath.Clean(w.path)
	var debounce <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				debounce = time.After(reloadDebounce)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("word bank watcher error", "error", err)
		case <-debounce:
			debounce = nil
			_ = w.Reload()
		}
	}
}
