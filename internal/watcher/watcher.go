// Package watcher runs a handler for every new file dropped into a directory.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long a file must stay unchanged before it is handled.
const DefaultSettle = 500 * time.Millisecond

// Handler processes one file. Errors are logged and do not stop the watcher.
type Handler func(ctx context.Context, path string) error

// Watcher feeds new files in a directory to a Handler, one at a time, in the
// order they settle.
type Watcher struct {
	dir     string
	exts    []string
	handler Handler
	settle  time.Duration
	logger  *slog.Logger

	fs    *fsnotify.Watcher
	queue chan string
	done  chan struct{}

	mu     sync.Mutex
	timers map[string]*time.Timer
	seen   map[string]bool
}

// Options tune a Watcher. Zero values use the defaults.
type Options struct {
	Settle time.Duration
	Logger *slog.Logger
}

// New watches dir for files with one of exts (case-insensitive).
func New(dir string, exts []string, handler Handler, opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}

	if opts.Settle <= 0 {
		opts.Settle = DefaultSettle
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Watcher{
		dir:     dir,
		exts:    exts,
		handler: handler,
		settle:  opts.Settle,
		logger:  opts.Logger.With("dir", dir),
		fs:      fsw,
		queue:   make(chan string, 64),
		done:    make(chan struct{}),
		timers:  map[string]*time.Timer{},
		seen:    map[string]bool{},
	}, nil
}

// Run blocks until ctx is done. The file being handled when ctx ends is
// allowed to observe the cancellation; Run waits for it before returning.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()
	defer close(w.done)
	w.logger.InfoContext(ctx, "watching for new files", "extensions", w.exts)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.work(ctx)
	}()
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			return ctx.Err()

		case event, ok := <-w.fs.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !w.matches(event.Name) {
				w.logger.DebugContext(ctx, "ignoring file", "path", event.Name)
				continue
			}
			w.schedule(event.Name)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.ErrorContext(ctx, "watcher error", "error", err)
		}
	}
}

func (w *Watcher) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case path := <-w.queue:
			w.logger.InfoContext(ctx, "processing new file", "path", path)
			if err := w.handler(ctx, path); err != nil {
				w.logger.ErrorContext(ctx, "failed to process file", "path", path, "error", err)
			}
		}
	}
}

// schedule (re)arms the settle timer for path. Each path is handled once.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.seen[path] {
		return
	}
	if t, ok := w.timers[path]; ok {
		t.Reset(w.settle)
		return
	}
	w.timers[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.seen[path] = true
		w.mu.Unlock()
		select {
		case w.queue <- path:
		case <-w.done:
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}

func (w *Watcher) matches(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if len(w.exts) == 0 {
		return true
	}
	return slices.ContainsFunc(w.exts, func(ext string) bool {
		return strings.EqualFold(filepath.Ext(base), ext)
	})
}
