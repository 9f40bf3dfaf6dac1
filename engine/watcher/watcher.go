package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultDebounce is the coalescing window used when none is configured.
const DefaultDebounce = 200 * time.Millisecond

// Event is a debounced change notification for the watched file.
type Event struct {
	Path string
}

// Watcher observes at most one file and emits one Event per debounce window in which the file
// was written or re-created. It runs its own goroutine; the only data it shares with the caller
// is the Events channel.
type Watcher interface {
	// Watch subscribes to path, replacing the previous subscription. On error the previous
	// subscription is kept.
	//
	// Parameters:
	//   - path: the file to watch
	//
	// Returns:
	//   - error: a *WatchError if the path does not exist, is a directory, or cannot be subscribed
	Watch(path string) error

	// Unwatch removes the current subscription. It is a no-op when nothing is watched.
	//
	// Returns:
	//   - error: an error if the directory watch could not be removed
	Unwatch() error

	// WatchedPath returns the cleaned absolute path currently watched, or "".
	WatchedPath() string

	// Events returns the channel debounced events are delivered on. It is closed when the
	// watcher is closed or the underlying notification channel is severed.
	Events() <-chan Event

	// Close stops watching and closes the Events channel.
	//
	// Returns:
	//   - error: an error from the underlying notifier
	Close() error
}

// fsWatcher is the fsnotify implementation of the Watcher interface.
// The parent directory is watched rather than the file, so editors that save by writing a
// temporary file and renaming it over the watched file keep producing events.
type fsWatcher struct {
	mu     sync.Mutex
	logger *zap.Logger
	notify *fsnotify.Watcher
	events chan Event
	wg     sync.WaitGroup

	debounce   time.Duration
	bufferSize int

	// path is the watched file as reported to the caller; match is the same file with its
	// directory symlinks resolved, as fsnotify reports it.
	path  string
	match string
	dir   string

	// window is the open debounce window for the watched path, nil when none is open.
	window *time.Timer

	closing bool
	closed  bool
}

var _ Watcher = &fsWatcher{}

// NewWatcher creates a Watcher backed by fsnotify and starts its event goroutine.
//
// Parameters:
//   - options: functional options for the debounce window, buffer size and logger
//
// Returns:
//   - Watcher: the watcher, with no subscription
//   - error: an error if the platform notifier could not be created
func NewWatcher(options ...WatcherOption) (Watcher, error) {
	notify, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	w := &fsWatcher{
		logger:     zap.NewNop(),
		notify:     notify,
		debounce:   DefaultDebounce,
		bufferSize: 8,
	}
	for _, opt := range options {
		opt(w)
	}
	w.events = make(chan Event, w.bufferSize)

	w.wg.Add(1)
	go w.watchLoop()
	return w, nil
}

func (w *fsWatcher) Watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return &WatchError{Path: path, Err: errors.Wrap(err, "failed to resolve path")}
	}
	abs = filepath.Clean(abs)

	info, err := os.Stat(abs)
	if err != nil {
		return &WatchError{Path: abs, Err: err}
	}
	if info.IsDir() {
		return &WatchError{Path: abs, Err: errors.New("path is a directory")}
	}

	dir, err := filepath.EvalSymlinks(filepath.Dir(abs))
	if err != nil {
		return &WatchError{Path: abs, Err: errors.Wrap(err, "failed to resolve directory")}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.closing {
		return &WatchError{Path: abs, Err: errors.New("watcher is closed")}
	}

	if dir != w.dir {
		if err := w.notify.Add(dir); err != nil {
			return &WatchError{Path: abs, Err: errors.Wrap(err, "failed to subscribe")}
		}
		if w.dir != "" {
			if err := w.notify.Remove(w.dir); err != nil {
				w.logger.Warn("failed to remove previous watch", zap.String("dir", w.dir), zap.Error(err))
			}
		}
	}

	// an open window for the same file still belongs to this subscription
	if abs != w.path {
		w.stopWindow()
	}
	w.path = abs
	w.match = filepath.Join(dir, filepath.Base(abs))
	w.dir = dir
	w.logger.Info("watching shader", zap.String("path", abs))
	return nil
}

func (w *fsWatcher) Unwatch() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.path == "" {
		return nil
	}
	w.stopWindow()
	dir := w.dir
	w.path, w.match, w.dir = "", "", ""
	if w.closed {
		return nil
	}
	if err := w.notify.Remove(dir); err != nil {
		return errors.Wrapf(err, "failed to remove watch on %s", dir)
	}
	w.logger.Info("stopped watching")
	return nil
}

func (w *fsWatcher) WatchedPath() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.path
}

func (w *fsWatcher) Events() <-chan Event {
	return w.events
}

func (w *fsWatcher) Close() error {
	w.mu.Lock()
	if w.closing || w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closing = true
	w.mu.Unlock()

	err := w.notify.Close()
	w.wg.Wait()
	return err
}

// watchLoop forwards relevant fsnotify events to the debouncer until the notifier closes.
func (w *fsWatcher) watchLoop() {
	defer w.wg.Done()
	defer w.shutdown()

	for {
		select {
		case event, ok := <-w.notify.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.notify.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", zap.Error(err))
		}
	}
}

// handle opens a debounce window for a write or create of the watched file. Further events
// inside an open window are absorbed by it.
func (w *fsWatcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	name := filepath.Clean(event.Name)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.match == "" || name != w.match {
		return
	}
	if w.window != nil {
		return
	}
	path := w.path
	w.logger.Debug("change detected", zap.String("path", path), zap.String("op", event.Op.String()))
	w.window = time.AfterFunc(w.debounce, func() {
		w.fire(path)
	})
}

// fire closes the debounce window and emits one event, unless the subscription changed in
// the meantime.
func (w *fsWatcher) fire(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.window = nil
	if w.closed || path != w.path {
		return
	}
	select {
	case w.events <- Event{Path: path}:
	default:
		w.logger.Warn("event channel full, dropping change notification", zap.String("path", path))
	}
}

func (w *fsWatcher) stopWindow() {
	if w.window != nil {
		w.window.Stop()
		w.window = nil
	}
}

// shutdown closes the Events channel once the notifier goroutine is gone.
func (w *fsWatcher) shutdown() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopWindow()
	w.closed = true
	close(w.events)
}
