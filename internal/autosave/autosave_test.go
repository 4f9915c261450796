package autosave

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFlusher struct {
	mu      sync.Mutex
	dirty   bool
	flushes int
	err     error
}

func (f *fakeFlusher) Dirty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dirty
}

func (f *fakeFlusher) Flush(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
	if f.err != nil {
		return f.err
	}
	f.dirty = false
	return nil
}

func (f *fakeFlusher) markDirty() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dirty = true
}

func (f *fakeFlusher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flushes
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSaver_FlushesWhenDirty(t *testing.T) {
	target := &fakeFlusher{}
	s := New(target, 20*time.Millisecond, quietLogger())
	require.NoError(t, s.Start())
	t.Cleanup(func() { s.Stop(context.Background()) })

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, target.count(), "clean target must not be flushed")

	target.markDirty()
	assert.Eventually(t, func() bool { return !target.Dirty() }, 2*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, target.count(), 1)
}

func TestSaver_StopFlushesPending(t *testing.T) {
	target := &fakeFlusher{dirty: true}
	s := New(target, time.Hour, quietLogger())
	require.NoError(t, s.Start())

	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, 1, target.count())
	assert.False(t, target.Dirty())
}

func TestSaver_StopReportsFlushError(t *testing.T) {
	target := &fakeFlusher{dirty: true, err: errors.New("disk full")}
	s := New(target, time.Hour, quietLogger())
	require.NoError(t, s.Start())

	assert.Error(t, s.Stop(context.Background()))
}

func TestSaver_TickSkipsCleanTarget(t *testing.T) {
	target := &fakeFlusher{}
	s := New(target, time.Hour, quietLogger())

	s.tick()
	assert.Equal(t, 0, target.count())

	target.markDirty()
	s.tick()
	assert.Equal(t, 1, target.count())
}

func TestSaver_RejectsNonPositiveInterval(t *testing.T) {
	s := New(&fakeFlusher{}, 0, quietLogger())
	assert.Error(t, s.Start())
}
