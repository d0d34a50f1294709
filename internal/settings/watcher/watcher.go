// Package watcher reloads a settings file when it changes on disk.
//
// The parent directory is watched rather than the file itself, so editors
// that save by writing a temporary file and renaming it over the original
// are picked up. Bursts of events are coalesced and the file is reloaded
// once the burst has been quiet for the debounce interval.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/dshills/runtimeprefs/internal/logging"
	"github.com/dshills/runtimeprefs/internal/settings/loader"
	"github.com/dshills/runtimeprefs/internal/settings/registry"
)

// ErrWatcherClosed is returned when using a closed watcher.
var ErrWatcherClosed = errors.New("watcher is closed")

// Op represents file operations.
type Op uint32

const (
	// OpCreate indicates a file was created.
	OpCreate Op = 1 << iota
	// OpWrite indicates a file was modified.
	OpWrite
	// OpRemove indicates a file was removed.
	OpRemove
	// OpRename indicates a file was renamed.
	OpRename
)

// String returns a string representation of the operation.
func (op Op) String() string {
	var parts []string
	if op&OpCreate != 0 {
		parts = append(parts, "create")
	}
	if op&OpWrite != 0 {
		parts = append(parts, "write")
	}
	if op&OpRemove != 0 {
		parts = append(parts, "remove")
	}
	if op&OpRename != 0 {
		parts = append(parts, "rename")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Reload is the outcome of reloading the settings file.
type Reload struct {
	// ID identifies this reload in logs.
	ID string
	// Path is the absolute path of the settings file.
	Path string
	// Op is the coalesced operation that triggered the reload.
	Op Op
	// Registry is the freshly loaded registry; nil when Err is set.
	Registry *registry.Registry
	// Err is the load error, if any.
	Err error
	// Time is when the reload completed.
	Time time.Time
}

// ReloadFunc is called after every reload attempt.
type ReloadFunc func(Reload)

// Watcher watches one settings file.
type Watcher struct {
	mu sync.RWMutex

	path     string
	fsw      *fsnotify.Watcher
	loader   *loader.Loader
	debounce time.Duration
	logger   *slog.Logger
	handlers []ReloadFunc
	closed   bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long events must be quiet before a reload. Zero
// reloads on every event.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithLoader sets the loader used to rebuild the registry.
func WithLoader(l *loader.Loader) Option {
	return func(w *Watcher) {
		if l != nil {
			w.loader = l
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New creates a watcher for the settings file at path. The file's
// directory must exist; the file itself may appear later.
func New(path string, opts ...Option) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:     absPath,
		loader:   loader.New(),
		debounce: 100 * time.Millisecond,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(w)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(absPath)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(absPath), err)
	}
	w.fsw = fsw

	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// OnReload registers a function called after every reload attempt.
func (w *Watcher) OnReload(fn ReloadFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, fn)
}

// Run processes file events until ctx is cancelled or the watcher is
// closed. Handlers run on the calling goroutine.
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.RLock()
	closed := w.closed
	w.mu.RUnlock()
	if closed {
		return ErrWatcherClosed
	}

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending Op
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

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			op := convertOp(ev.Op)
			if op == 0 {
				continue
			}
			pending = coalesce(pending, op)

			if w.debounce <= 0 {
				w.reload(pending)
				pending = 0
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			w.reload(pending)
			pending = 0

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watch error", slog.String("path", w.path), slog.Any("error", err))
		}
	}
}

// Close stops the watcher. It is safe to call Close multiple times.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.fsw.Close()
}

// Reload loads the settings file now and calls the handlers.
func (w *Watcher) Reload() Reload {
	return w.reload(OpWrite)
}

func (w *Watcher) reload(op Op) Reload {
	rl := Reload{
		ID:   uuid.NewString(),
		Path: w.path,
		Op:   op,
	}
	rl.Registry, rl.Err = w.loader.Load(w.path)
	rl.Time = time.Now()

	if rl.Err != nil {
		w.logger.Warn("settings reload failed",
			slog.String("reload_id", rl.ID),
			slog.String("path", w.path),
			slog.String("op", op.String()),
			slog.Any("error", rl.Err),
		)
	} else {
		w.logger.Info("settings reloaded",
			slog.String("reload_id", rl.ID),
			slog.String("path", w.path),
			slog.String("op", op.String()),
		)
	}

	w.mu.RLock()
	handlers := make([]ReloadFunc, len(w.handlers))
	copy(handlers, w.handlers)
	w.mu.RUnlock()

	for _, h := range handlers {
		w.safeCall(h, rl)
	}
	return rl
}

// safeCall calls a handler with panic recovery so a bad handler does not
// stop the watch loop.
func (w *Watcher) safeCall(h ReloadFunc, rl Reload) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("reload handler panicked", slog.String("reload_id", rl.ID), slog.Any("panic", r))
		}
	}()
	h(rl)
}

// convertOp converts fsnotify.Op to watcher.Op. Chmod is ignored.
func convertOp(fsOp fsnotify.Op) Op {
	var op Op
	if fsOp.Has(fsnotify.Create) {
		op |= OpCreate
	}
	if fsOp.Has(fsnotify.Write) {
		op |= OpWrite
	}
	if fsOp.Has(fsnotify.Remove) {
		op |= OpRemove
	}
	if fsOp.Has(fsnotify.Rename) {
		op |= OpRename
	}
	return op
}

// coalesce merges a new event into the pending one. A create wins since
// the file exists again; a remove or rename wins over writes; a write never
// replaces an earlier create, remove or rename.
func coalesce(pending, next Op) Op {
	switch {
	case pending == 0:
		return next
	case next&OpCreate != 0:
		return OpCreate
	case next&(OpRemove|OpRename) != 0:
		return next & (OpRemove | OpRename)
	case pending&(OpCreate|OpRemove|OpRename) != 0:
		return pending
	default:
		return OpWrite
	}
}

// AttachOnReload returns a ReloadFunc that attaches every successfully
// reloaded registry to sink, flushing all of its values. Failed reloads leave
// the previously attached registry in place. A nil sink is rejected with
// registry.ErrInvalidArgument.
func AttachOnReload(sink registry.Sink) (ReloadFunc, error) {
	if sink == nil {
		return nil, fmt.Errorf("attach on reload: %w", registry.ErrInvalidArgument)
	}
	return func(rl Reload) {
		if rl.Err != nil || rl.Registry == nil {
			return
		}
		// Attach only fails for a nil sink.
		_ = rl.Registry.Attach(sink)
	}, nil
}
