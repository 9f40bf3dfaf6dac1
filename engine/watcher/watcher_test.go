package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestWatcher(t *testing.T, debounce time.Duration) Watcher {
	t.Helper()
	w, err := NewWatcher(WithDebounce(debounce), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// collect gathers events until no event has arrived for quiet.
func collect(w Watcher, quiet time.Duration) []Event {
	var got []Event
	for {
		select {
		case ev, ok := <-w.Events():
			if !ok {
				return got
			}
			got = append(got, ev)
		case <-time.After(quiet):
			return got
		}
	}
}

func TestWritesInsideWindowCoalesce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trails.wgsl")
	writeFile(t, path, "v1")

	w := newTestWatcher(t, 200*time.Millisecond)
	require.NoError(t, w.Watch(path))

	start := time.Now()
	writeFile(t, path, "v2")
	time.Sleep(50 * time.Millisecond)
	writeFile(t, path, "v3")

	select {
	case ev := <-w.Events():
		assert.Equal(t, w.WatchedPath(), ev.Path)
		assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond, "the event is emitted when the window closes")
	case <-time.After(2 * time.Second):
		t.Fatal("no event emitted")
	}
	assert.Empty(t, collect(w, 500*time.Millisecond), "both writes belong to one window")
}

func TestWritesBeyondWindowAreSeparate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rings.wgsl")
	writeFile(t, path, "v0")

	w := newTestWatcher(t, 50*time.Millisecond)
	require.NoError(t, w.Watch(path))

	for i := 0; i < 3; i++ {
		writeFile(t, path, "v"+string(rune('1'+i)))
		time.Sleep(250 * time.Millisecond)
	}
	assert.Len(t, collect(w, 300*time.Millisecond), 3)
}

func TestOtherFilesAreIgnored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.wgsl")
	writeFile(t, path, "a")

	w := newTestWatcher(t, 30*time.Millisecond)
	require.NoError(t, w.Watch(path))

	writeFile(t, filepath.Join(dir, "b.wgsl"), "b")
	assert.Empty(t, collect(w, 200*time.Millisecond))
}

func TestAtomicReplaceIsDetected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gradient.wgsl")
	writeFile(t, path, "old")

	w := newTestWatcher(t, 30*time.Millisecond)
	require.NoError(t, w.Watch(path))

	tmp := filepath.Join(dir, ".gradient.wgsl.swp")
	writeFile(t, tmp, "new")
	require.NoError(t, os.Rename(tmp, path))

	got := collect(w, 300*time.Millisecond)
	require.Len(t, got, 1)
	assert.Equal(t, w.WatchedPath(), got[0].Path)
}

func TestWatchMissingPath(t *testing.T) {
	w := newTestWatcher(t, 0)
	dir := t.TempDir()
	existing := filepath.Join(dir, "ok.wgsl")
	writeFile(t, existing, "ok")
	require.NoError(t, w.Watch(existing))

	err := w.Watch(filepath.Join(dir, "missing.frag"))
	var watchErr *WatchError
	require.True(t, errors.As(err, &watchErr))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Equal(t, existing, w.WatchedPath(), "a failed watch keeps the previous subscription")

	err = w.Watch(dir)
	require.True(t, errors.As(err, &watchErr))
	assert.Contains(t, err.Error(), "directory")
}

func TestUnwatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.wgsl")
	writeFile(t, path, "a")

	w := newTestWatcher(t, 30*time.Millisecond)
	require.NoError(t, w.Unwatch(), "unwatch without a subscription is a no-op")
	require.NoError(t, w.Watch(path))
	require.NoError(t, w.Unwatch())
	assert.Empty(t, w.WatchedPath())

	writeFile(t, path, "b")
	assert.Empty(t, collect(w, 200*time.Millisecond))
}

func TestWatchReplacesSubscription(t *testing.T) {
	first := filepath.Join(t.TempDir(), "first.wgsl")
	second := filepath.Join(t.TempDir(), "second.wgsl")
	writeFile(t, first, "1")
	writeFile(t, second, "2")

	w := newTestWatcher(t, 30*time.Millisecond)
	require.NoError(t, w.Watch(first))
	require.NoError(t, w.Watch(second))

	writeFile(t, first, "1b")
	assert.Empty(t, collect(w, 200*time.Millisecond))

	writeFile(t, second, "2b")
	got := collect(w, 300*time.Millisecond)
	require.Len(t, got, 1)
	assert.Equal(t, w.WatchedPath(), got[0].Path)
}

func TestRewatchingSamePathKeepsPendingChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trails.wgsl")
	writeFile(t, path, "v1")

	w := newTestWatcher(t, 200*time.Millisecond)
	require.NoError(t, w.Watch(path))

	writeFile(t, path, "v2")
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, w.Watch(path))

	got := collect(w, 500*time.Millisecond)
	require.Len(t, got, 1, "the write made before the repeated Watch is still reported")
	assert.Equal(t, w.WatchedPath(), got[0].Path)
}

func TestCloseClosesEvents(t *testing.T) {
	w, err := NewWatcher()
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	select {
	case _, ok := <-w.Events():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("events channel not closed")
	}

	var watchErr *WatchError
	assert.True(t, errors.As(w.Watch(os.Args[0]), &watchErr))
}
