package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yiblet/kopa/internal/clipboard"
	"github.com/yiblet/kopa/internal/clipboard/mockboard"
	"github.com/yiblet/kopa/internal/protocol"
	"github.com/yiblet/kopa/internal/store"
	"github.com/yiblet/kopa/internal/store/memstore"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestRouter(t *testing.T) (*Router, *memstore.MemoryStore, *mockboard.MockClipboard) {
	t.Helper()
	st := memstore.NewMemoryStore()
	clip := mockboard.New()
	return NewRouter(st, clip, discardLogger()), st, clip
}

func ptr[T any](v T) *T { return &v }

func TestRouter_ListScenario(t *testing.T) {
	r, st, _ := newTestRouter(t)
	ctx := context.Background()
	for _, ts := range []int64{100, 90, 80, 70, 60} {
		_, err := st.Append(ctx, fmt.Sprintf("at %d", ts), time.Unix(ts, 0))
		require.NoError(t, err)
	}

	createdAts := func(resp protocol.Response) []int64 {
		entries, ok := resp.(protocol.Entries)
		require.True(t, ok, "got %#v", resp)
		out := make([]int64, len(entries.Entries))
		for i, e := range entries.Entries {
			out[i] = e.CreatedAt
		}
		return out
	}

	resp := r.Handle(ctx, protocol.ListEntries{Limit: ptr(2)})
	assert.Equal(t, []int64{100, 90}, createdAts(resp))
	assert.Equal(t, int64(90), *resp.(protocol.Entries).NextCursor)

	resp = r.Handle(ctx, protocol.ListEntries{Cursor: ptr(int64(90)), Limit: ptr(2)})
	assert.Equal(t, []int64{80, 70}, createdAts(resp))
	assert.Equal(t, int64(70), *resp.(protocol.Entries).NextCursor)

	resp = r.Handle(ctx, protocol.ListEntries{Cursor: ptr(int64(70)), Limit: ptr(2)})
	assert.Equal(t, []int64{60}, createdAts(resp))
	assert.Nil(t, resp.(protocol.Entries).NextCursor)
}

func TestRouter_DefaultPageSize(t *testing.T) {
	r, st, _ := newTestRouter(t)
	ctx := context.Background()
	for i := 0; i < protocol.DefaultPageSize+5; i++ {
		_, err := st.Append(ctx, "x", time.Unix(int64(i), 0))
		require.NoError(t, err)
	}

	resp := r.Handle(ctx, protocol.ListEntries{})
	entries := resp.(protocol.Entries)
	assert.Len(t, entries.Entries, protocol.DefaultPageSize)
	assert.NotNil(t, entries.NextCursor)
}

func TestRouter_SearchShortQuery(t *testing.T) {
	r, st, _ := newTestRouter(t)
	ctx := context.Background()
	_, err := st.Append(ctx, "hello", time.Unix(1, 0))
	require.NoError(t, err)
	_, err = st.Append(ctx, "there", time.Unix(2, 0))
	require.NoError(t, err)

	resp := r.Handle(ctx, protocol.SearchEntries{Query: "he"})
	entries, ok := resp.(protocol.Entries)
	require.True(t, ok)
	require.Len(t, entries.Entries, 2)
	assert.Equal(t, "there", entries.Entries[0].Content)
	assert.Equal(t, "hello", entries.Entries[1].Content)
}

func TestRouter_Copy(t *testing.T) {
	r, st, clip := newTestRouter(t)
	ctx := context.Background()
	id, err := st.Append(ctx, "stored text", time.Now())
	require.NoError(t, err)

	assert.Equal(t, protocol.Success{}, r.Handle(ctx, protocol.CopyToClipboard{EntryID: id}))
	assert.Equal(t, protocol.Success{}, r.Handle(ctx, protocol.CopyTextToClipboard{Content: "arbitrary"}))
	assert.Equal(t, []string{"stored text", "arbitrary"}, clip.Writes())
}

func TestRouter_CopyMissingEntry(t *testing.T) {
	r, _, clip := newTestRouter(t)

	resp := r.Handle(context.Background(), protocol.CopyToClipboard{EntryID: 999})
	assert.Equal(t, protocol.Error{Message: "Entry not found"}, resp)
	assert.Empty(t, clip.Writes())
}

func TestRouter_CopyClipboardFault(t *testing.T) {
	r, _, clip := newTestRouter(t)
	clip.FailWrites(clipboard.NewCapabilityError("write", "mock", errors.New("display gone")))

	resp := r.Handle(context.Background(), protocol.CopyTextToClipboard{Content: "x"})
	e, ok := resp.(protocol.Error)
	require.True(t, ok)
	assert.Contains(t, e.Message, "Clipboard error")
	assert.Contains(t, e.Message, "display gone")
}

func TestRouter_StorageFault(t *testing.T) {
	r, st, _ := newTestRouter(t)
	require.NoError(t, st.Close())

	resp := r.Handle(context.Background(), protocol.SearchEntries{Query: "anything"})
	e, ok := resp.(protocol.Error)
	require.True(t, ok)
	assert.Contains(t, e.Message, "Storage error")
}

func TestRouter_HugeLimit(t *testing.T) {
	r, st, _ := newTestRouter(t)
	ctx := context.Background()
	for _, ts := range []int64{10, 20, 30} {
		_, err := st.Append(ctx, "abc", time.Unix(ts, 0))
		require.NoError(t, err)
	}

	for _, req := range []protocol.Request{
		protocol.ListEntries{Limit: ptr(math.MaxInt)},
		protocol.SearchEntries{Query: "abc", Limit: ptr(math.MaxInt)},
	} {
		resp := r.Handle(ctx, req)
		entries, ok := resp.(protocol.Entries)
		require.True(t, ok, "%s: got %#v", req.RequestType(), resp)
		assert.Len(t, entries.Entries, 3)
		assert.Nil(t, entries.NextCursor)
	}
}

// panicStore fails every read with a panic.
type panicStore struct {
	*memstore.MemoryStore
}

func (panicStore) List(context.Context, *store.Cursor, int) (*store.Page, error) {
	panic("list exploded")
}

func TestRouter_RecoversFromPanic(t *testing.T) {
	r := NewRouter(panicStore{memstore.NewMemoryStore()}, mockboard.New(), discardLogger())

	var resp protocol.Response
	require.NotPanics(t, func() {
		resp = r.Handle(context.Background(), protocol.ListEntries{})
	})
	e, ok := resp.(protocol.Error)
	require.True(t, ok, "got %#v", resp)
	assert.Contains(t, e.Message, "list exploded")

	// the router keeps serving
	resp = r.Handle(context.Background(), protocol.CopyTextToClipboard{Content: "x"})
	assert.Equal(t, protocol.Success{}, resp)
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{protocol.ErrEmptyRequest, "Empty request"},
		{fmt.Errorf("lookup: %w", store.ErrNotFound), "Entry not found"},
		{&protocol.DecodeError{Err: errors.New("missing field `query`")}, "Invalid request payload: missing field `query`"},
		{store.NewStorageError("list", errors.New("disk I/O error")), "Storage error: disk I/O error"},
		{errors.New("other"), "other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorResponse(tt.err).Message)
	}
}
