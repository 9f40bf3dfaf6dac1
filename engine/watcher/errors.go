package watcher

import "fmt"

// WatchError reports a path that does not exist or could not be subscribed to.
// The previous subscription, if any, is left in place.
type WatchError struct {
	Path string
	Err  error
}

func (e *WatchError) Error() string {
	return fmt.Sprintf("watch %s: %v", e.Path, e.Err)
}

func (e *WatchError) Unwrap() error {
	return e.Err
}
