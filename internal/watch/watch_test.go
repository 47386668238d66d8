package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/semsearchd/internal/logging"
	"github.com/mvp-joe/semsearchd/internal/source"
)

func newTestSource(t *testing.T, id string) *source.Source {
	t.Helper()
	root := t.TempDir()
	s, err := source.New(id, id, root, source.KindMarkdown, []string{"**/*"}, nil)
	require.NoError(t, err)
	return s
}

type eventSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *eventSink) handler(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *eventSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func TestWatcher_ChangedEventDebounces(t *testing.T) {
	src := newTestSource(t, "vault")
	sink := &eventSink{}

	w, err := New([]*source.Source{src}, 200*time.Millisecond, sink.handler, logging.Nop{})
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	path := filepath.Join(src.RootPath, "note.md")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	require.Eventually(t, func() bool {
		return len(sink.snapshot()) >= 1
	}, 5*time.Second, 50*time.Millisecond)

	events := sink.snapshot()
	assert.Equal(t, KindChanged, events[0].Kind)
	assert.Equal(t, "vault", events[0].SourceID)
	assert.Equal(t, "note.md", events[0].RelativePath)
}

func TestWatcher_DeleteDispatchesImmediately(t *testing.T) {
	src := newTestSource(t, "vault")
	path := filepath.Join(src.RootPath, "note.md")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	sink := &eventSink{}
	w, err := New([]*source.Source{src}, 30*time.Second, sink.handler, logging.Nop{})
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	require.NoError(t, os.Remove(path))

	require.Eventually(t, func() bool {
		for _, e := range sink.snapshot() {
			if e.Kind == KindRemoved {
				return true
			}
		}
		return false
	}, 5*time.Second, 50*time.Millisecond, "delete should dispatch without waiting for the debounce interval")
}

func TestWatcher_PauseSuppressesDispatch(t *testing.T) {
	src := newTestSource(t, "vault")
	sink := &eventSink{}

	w, err := New([]*source.Source{src}, 100*time.Millisecond, sink.handler, logging.Nop{})
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	w.Pause()

	path := filepath.Join(src.RootPath, "note.md")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	time.Sleep(500 * time.Millisecond)
	assert.Empty(t, sink.snapshot(), "paused watcher must not dispatch")

	w.Resume()
	require.Eventually(t, func() bool {
		return len(sink.snapshot()) >= 1
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWatcher_DenyListExcludesOwnLogFile(t *testing.T) {
	src := newTestSource(t, "vault")
	sink := &eventSink{}

	w, err := New([]*source.Source{src}, 100*time.Millisecond, sink.handler, logging.Nop{})
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	path := filepath.Join(src.RootPath, "semsearchd.log")
	require.NoError(t, os.WriteFile(path, []byte("log line"), 0o644))

	time.Sleep(500 * time.Millisecond)
	assert.Empty(t, sink.snapshot(), "deny-listed file names must never dispatch")
}

func TestWatcher_ResolveUnknownPathIsIgnored(t *testing.T) {
	src := newTestSource(t, "vault")
	w, err := New([]*source.Source{src}, time.Second, func(Event) {}, logging.Nop{})
	require.NoError(t, err)
	defer w.Stop()

	_, _, ok := w.resolve("/somewhere/outside/any/source.md")
	assert.False(t, ok)
}
