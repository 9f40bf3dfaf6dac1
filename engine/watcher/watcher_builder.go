package watcher

import (
	"time"

	"go.uber.org/zap"
)

// WatcherOption is a functional option applied to a Watcher during construction via NewWatcher.
type WatcherOption func(*fsWatcher)

// WithDebounce sets the coalescing window. The window opens at the first event and is not
// extended by later ones. Non-positive values keep DefaultDebounce.
//
// Parameters:
//   - d: the window length
//
// Returns:
//   - WatcherOption: a function that applies the debounce option to a watcher
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *fsWatcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithBufferSize sets the capacity of the Events channel. Events that do not fit are dropped.
func WithBufferSize(n int) WatcherOption {
	return func(w *fsWatcher) {
		if n > 0 {
			w.bufferSize = n
		}
	}
}

// WithLogger sets the logger for subscription changes and dropped events.
func WithLogger(logger *zap.Logger) WatcherOption {
	return func(w *fsWatcher) {
		if logger != nil {
			w.logger = logger.Named("watcher")
		}
	}
}
