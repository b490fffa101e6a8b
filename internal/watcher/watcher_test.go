package watcher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yiblet/kopa/internal/clipboard"
	"github.com/yiblet/kopa/internal/clipboard/mockboard"
	"github.com/yiblet/kopa/internal/store/memstore"
)

func newTestWatcher(st Appender, clip clipboard.Reader) *Watcher {
	return New(st, clip, Options{
		PollInterval: time.Millisecond,
		RetryBackoff: time.Millisecond,
		Now:          func() time.Time { return time.Unix(1000, 0) },
	}, slog.New(slog.DiscardHandler))
}

func pollAll(t *testing.T, w *Watcher, clip *mockboard.MockClipboard) {
	t.Helper()
	for clip.Pending() > 0 {
		require.NoError(t, w.Poll(context.Background()))
	}
}

func stored(t *testing.T, st *memstore.MemoryStore) []string {
	t.Helper()
	page, err := st.List(context.Background(), nil, 100)
	require.NoError(t, err)
	out := make([]string, len(page.Entries))
	// oldest first, which is append order here since ids grow
	for i, e := range page.Entries {
		out[len(out)-1-i] = e.Content
	}
	return out
}

func TestPoll_SuppressesConsecutiveDuplicates(t *testing.T) {
	st := memstore.NewMemoryStore()
	clip := mockboard.New(mockboard.Text("same"), mockboard.Text("same"))
	w := newTestWatcher(st, clip)

	pollAll(t, w, clip)
	assert.Equal(t, []string{"same"}, stored(t, st))
}

func TestPoll_NoTextResetsLastSeen(t *testing.T) {
	st := memstore.NewMemoryStore()
	clip := mockboard.New(mockboard.Text("same"), mockboard.NoText(), mockboard.Text("same"))
	w := newTestWatcher(st, clip)

	pollAll(t, w, clip)
	assert.Equal(t, []string{"same", "same"}, stored(t, st))
}

func TestPoll_OnlyImmediateRepeatsSuppressed(t *testing.T) {
	st := memstore.NewMemoryStore()
	clip := mockboard.New(
		mockboard.Text("a"),
		mockboard.Text("b"),
		mockboard.Text("a"),
		mockboard.Text("a"),
	)
	w := newTestWatcher(st, clip)

	pollAll(t, w, clip)
	assert.Equal(t, []string{"a", "b", "a"}, stored(t, st))
}

func TestPoll_EmptyReadIsNoText(t *testing.T) {
	st := memstore.NewMemoryStore()
	clip := mockboard.New(mockboard.Text("x"), mockboard.Text(""), mockboard.Text("x"))
	w := newTestWatcher(st, clip)

	pollAll(t, w, clip)
	assert.Equal(t, []string{"x", "x"}, stored(t, st))
}

func TestPoll_LossyUTF8(t *testing.T) {
	st := memstore.NewMemoryStore()
	clip := mockboard.New(mockboard.Read{Data: []byte("ok \xff\xfe end")})
	w := newTestWatcher(st, clip)

	pollAll(t, w, clip)
	assert.Equal(t, []string{"ok � end"}, stored(t, st))
}

func TestPoll_UsesObservationTime(t *testing.T) {
	st := memstore.NewMemoryStore()
	clip := mockboard.New(mockboard.Text("t"))
	w := newTestWatcher(st, clip)

	pollAll(t, w, clip)
	page, err := st.List(context.Background(), nil, 1)
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, int64(1000), page.Entries[0].CreatedAt)
}

func TestPoll_ReadFault(t *testing.T) {
	st := memstore.NewMemoryStore()
	fault := clipboard.NewCapabilityError("read", "mock", errors.New("broken pipe"))
	clip := mockboard.New(mockboard.Fail(fault))
	w := newTestWatcher(st, clip)

	err := w.Poll(context.Background())
	assert.ErrorIs(t, err, fault)
}

// flakyStore fails the first n appends.
type flakyStore struct {
	*memstore.MemoryStore
	mu       sync.Mutex
	failures int
}

func (f *flakyStore) Append(ctx context.Context, content string, observedAt time.Time) (int64, error) {
	f.mu.Lock()
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return 0, errors.New("database is locked")
	}
	f.mu.Unlock()
	return f.MemoryStore.Append(ctx, content, observedAt)
}

func TestRun_RestartsAfterFailure(t *testing.T) {
	mem := memstore.NewMemoryStore()
	st := &flakyStore{MemoryStore: mem, failures: 2}
	clip := mockboard.New(mockboard.Text("first"), mockboard.Text("first"), mockboard.Text("first"), mockboard.Text("second"))
	w := newTestWatcher(st, clip)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		n, _ := mem.Count(context.Background())
		return n == 2
	}, 5*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.Equal(t, []string{"first", "second"}, stored(t, mem))
}

func TestRun_StopsOnCancel(t *testing.T) {
	w := newTestWatcher(memstore.NewMemoryStore(), mockboard.New())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, w.Run(ctx))
}

func TestSetInterval(t *testing.T) {
	w := newTestWatcher(memstore.NewMemoryStore(), mockboard.New())
	w.SetInterval(2 * time.Second)
	assert.Equal(t, 2*time.Second, w.Interval())

	w.SetInterval(0)
	assert.Equal(t, 2*time.Second, w.Interval())
}
