package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type calls struct {
	mu  sync.Mutex
	got []string
	ch  chan string
}

func newCalls() *calls {
	return &calls{ch: make(chan string, 16)}
}

func (c *calls) record(ds string) {
	c.mu.Lock()
	c.got = append(c.got, ds)
	c.mu.Unlock()
	c.ch <- ds
}

func TestDebounceCollapsesBursts(t *testing.T) {
	c := newCalls()
	w, err := New(20*time.Millisecond, c.record, nil)
	require.NoError(t, err)
	defer w.Close()

	path := filepath.Join(t.TempDir(), "site1.xyz")
	require.NoError(t, w.Watch("site1", path))

	for i := 0; i < 5; i++ {
		w.handle(path)
	}
	select {
	case ds := <-c.ch:
		assert.Equal(t, "site1", ds)
	case <-time.After(2 * time.Second):
		t.Fatal("no callback")
	}
	time.Sleep(60 * time.Millisecond)
	c.mu.Lock()
	assert.Len(t, c.got, 1)
	c.mu.Unlock()
}

func TestFiredTimerReleased(t *testing.T) {
	c := newCalls()
	w, err := New(5*time.Millisecond, c.record, nil)
	require.NoError(t, err)
	defer w.Close()

	path := filepath.Join(t.TempDir(), "site1.xyz")
	require.NoError(t, w.Watch("site1", path))

	for round := 0; round < 3; round++ {
		w.handle(path)
		select {
		case <-c.ch:
		case <-time.After(2 * time.Second):
			t.Fatal("no callback")
		}
		w.mu.Lock()
		n := len(w.timers)
		w.mu.Unlock()
		assert.Zero(t, n, "round %d", round)
	}
}

func TestUnknownFileIgnored(t *testing.T) {
	c := newCalls()
	w, err := New(time.Millisecond, c.record, nil)
	require.NoError(t, err)
	defer w.Close()

	w.handle(filepath.Join(t.TempDir(), "other.xyz"))
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, c.ch)
}

func TestUnwatch(t *testing.T) {
	c := newCalls()
	w, err := New(time.Millisecond, c.record, nil)
	require.NoError(t, err)
	defer w.Close()

	dir := t.TempDir()
	a := filepath.Join(dir, "a.xyz")
	b := filepath.Join(dir, "b.xyz")
	require.NoError(t, w.Watch("a", a))
	require.NoError(t, w.Watch("b", b))

	w.Unwatch("a")
	_, ok := w.Watched(a)
	assert.False(t, ok)
	ds, ok := w.Watched(b)
	assert.True(t, ok)
	assert.Equal(t, "b", ds)
}

func TestFileWriteTriggersReload(t *testing.T) {
	c := newCalls()
	w, err := New(10*time.Millisecond, c.record, nil)
	require.NoError(t, err)
	defer w.Close()

	path := filepath.Join(t.TempDir(), "site1.xyz")
	require.NoError(t, os.WriteFile(path, []byte("0 0 0\n"), 0o644))
	require.NoError(t, w.Watch("site1", path))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	require.NoError(t, os.WriteFile(path, []byte("1 1 1\n"), 0o644))
	select {
	case ds := <-c.ch:
		assert.Equal(t, "site1", ds)
	case <-time.After(5 * time.Second):
		t.Fatal("no callback after write")
	}
}
