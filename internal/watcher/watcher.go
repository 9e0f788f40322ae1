// Package watcher follows the media file open in the editor so a file that
// is still being written (a live recording, a render in progress) can have
// its duration refined as it grows.
package watcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the write bursts of a file being recorded.
const DefaultDebounce = 750 * time.Millisecond

type Watcher interface {
	Watch(ctx context.Context, path string) error
	Stop() error
	OnChange(callback func(path string, event EventType))
}

type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
)

func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	default:
		return "delete"
	}
}

// FSWatcher watches a single file through its parent directory, which keeps
// the watch alive across editors that save by rename.
type FSWatcher struct {
	logger   *slog.Logger
	debounce time.Duration

	mu       sync.Mutex
	path     string
	fw       *fsnotify.Watcher
	cancel   context.CancelFunc
	done     chan struct{}
	callback func(path string, event EventType)
}

// NewFSWatcher returns an idle watcher. debounce <= 0 uses DefaultDebounce.
func NewFSWatcher(logger *slog.Logger, debounce time.Duration) *FSWatcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &FSWatcher{logger: logger, debounce: debounce}
}

func (w *FSWatcher) OnChange(callback func(path string, event EventType)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callback = callback
}

// Path returns the file currently watched, or "".
func (w *FSWatcher) Path() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.path
}

// Watch switches the watch to path. Watching the current path again is a
// no-op.
func (w *FSWatcher) Watch(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	w.mu.Lock()
	if w.path == abs && w.fw != nil {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	if err := w.Stop(); err != nil {
		w.logger.Debug("failed to stop previous watch", "error", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	w.mu.Lock()
	w.path = abs
	w.fw = fw
	w.cancel = cancel
	w.done = done
	w.mu.Unlock()

	go w.loop(loopCtx, fw, abs, done)
	w.logger.Debug("watching media file", "path", abs)
	return nil
}

// Stop ends the current watch and waits for its goroutine.
func (w *FSWatcher) Stop() error {
	w.mu.Lock()
	fw, cancel, done := w.fw, w.cancel, w.done
	w.fw, w.cancel, w.done, w.path = nil, nil, nil, ""
	w.mu.Unlock()

	if fw == nil {
		return nil
	}
	cancel()
	err := fw.Close()
	<-done
	return err
}

func (w *FSWatcher) loop(ctx context.Context, fw *fsnotify.Watcher, path string, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			switch {
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				timer.Stop()
				pending = false
				w.emit(path, EventDelete)
			case ev.Has(fsnotify.Create):
				w.emit(path, EventCreate)
			case ev.Has(fsnotify.Write):
				pending = true
				timer.Reset(w.debounce)
			}
		case <-timer.C:
			if pending {
				pending = false
				w.emit(path, EventModify)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "path", path, "error", err)
		}
	}
}

func (w *FSWatcher) emit(path string, event EventType) {
	w.mu.Lock()
	cb := w.callback
	w.mu.Unlock()

	w.logger.Debug("media file changed", "path", path, "event", event.String())
	if cb != nil {
		cb(path, event)
	}
}
