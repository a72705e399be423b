package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// eventSink 收集回调事件
type eventSink struct {
	mu     sync.Mutex
	events []FileEvent
}

func (s *eventSink) add(e FileEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *eventSink) ops() []FileOp {
	s.mu.Lock()
	defer s.mu.Unlock()
	ops := make([]FileOp, 0, len(s.events))
	for _, e := range s.events {
		ops = append(ops, e.Op)
	}
	return ops
}

func fastWatcher(t *testing.T, paths ...string) (*FileWatcher, *eventSink) {
	t.Helper()
	w, err := NewFileWatcher(paths,
		WithPollInterval(10*time.Millisecond),
		WithDebounceDelay(20*time.Millisecond),
		WithWatcherLogger(zap.NewNop()),
	)
	require.NoError(t, err)
	sink := &eventSink{}
	w.OnChange(sink.add)
	t.Cleanup(w.Stop)
	return w, sink
}

// --- Constructor ---

func TestNewFileWatcher_Defaults(t *testing.T) {
	f := filepath.Join(t.TempDir(), "swarmd.yaml")
	require.NoError(t, os.WriteFile(f, []byte("key: val"), 0644))

	w, err := NewFileWatcher([]string{f})
	require.NoError(t, err)

	assert.Equal(t, []string{f}, w.Paths())
	assert.False(t, w.IsRunning())
	assert.Equal(t, time.Second, w.pollInterval)
	assert.Equal(t, 100*time.Millisecond, w.debounceDelay)
}

func TestNewFileWatcher_NonExistentPath(t *testing.T) {
	w, err := NewFileWatcher([]string{filepath.Join(t.TempDir(), "later.yaml")})
	require.NoError(t, err)
	assert.Len(t, w.Paths(), 1)
}

func TestFileOp_String(t *testing.T) {
	assert.Equal(t, "CREATE", FileOpCreate.String())
	assert.Equal(t, "WRITE", FileOpWrite.String())
	assert.Equal(t, "REMOVE", FileOpRemove.String())
	assert.Equal(t, "UNKNOWN", FileOp(42).String())
}

// --- Lifecycle ---

func TestFileWatcher_StartStop(t *testing.T) {
	w, _ := fastWatcher(t, filepath.Join(t.TempDir(), "a.yaml"))

	require.NoError(t, w.Start(context.Background()))
	assert.True(t, w.IsRunning())
	assert.Error(t, w.Start(context.Background()), "second start is rejected")

	w.Stop()
	w.Stop()
	assert.False(t, w.IsRunning())

	// 停止后可重新启动
	require.NoError(t, w.Start(context.Background()))
}

// --- Detection ---

func TestFileWatcher_DetectsWrite(t *testing.T) {
	f := filepath.Join(t.TempDir(), "swarmd.yaml")
	require.NoError(t, os.WriteFile(f, []byte("a: 1"), 0644))

	w, sink := fastWatcher(t, f)
	require.NoError(t, w.Start(context.Background()))

	require.NoError(t, os.WriteFile(f, []byte("a: 1234"), 0644))

	require.Eventually(t, func() bool { return len(sink.ops()) > 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, FileOpWrite, sink.ops()[0])
}

func TestFileWatcher_DetectsCreateAndRemove(t *testing.T) {
	f := filepath.Join(t.TempDir(), "late.yaml")
	w, sink := fastWatcher(t, f)
	require.NoError(t, w.Start(context.Background()))

	require.NoError(t, os.WriteFile(f, []byte("x"), 0644))
	require.Eventually(t, func() bool { return len(sink.ops()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, FileOpCreate, sink.ops()[0])

	require.NoError(t, os.Remove(f))
	require.Eventually(t, func() bool { return len(sink.ops()) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, FileOpRemove, sink.ops()[1])
}

func TestFileWatcher_StopsWithContext(t *testing.T) {
	f := filepath.Join(t.TempDir(), "swarmd.yaml")
	require.NoError(t, os.WriteFile(f, []byte("a"), 0644))

	w, sink := fastWatcher(t, f)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	cancel()

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, os.WriteFile(f, []byte("changed"), 0644))
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, sink.ops())
}
