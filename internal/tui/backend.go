package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/yiblet/kopa/internal/store"
)

// requestTimeout bounds each call the browser makes to the daemon.
const requestTimeout = 5 * time.Second

// Backend is what the browser needs from the daemon. *client.Client
// satisfies it.
type Backend interface {
	Search(ctx context.Context, query string, cursor *store.Cursor, limit int) (*store.Page, error)
	Copy(ctx context.Context, id int64) error
}

// pageLoadedMsg carries one page of results. Seq identifies the query that
// asked for it; results for an outdated query are dropped.
type pageLoadedMsg struct {
	Seq    int
	Cursor *store.Cursor
	Page   *store.Page
	Err    error
}

// copyDoneMsg reports the outcome of a copy.
type copyDoneMsg struct {
	Entry store.Entry
	Err   error
}

func fetchPage(ctx context.Context, b Backend, seq int, query string, cursor *store.Cursor, limit int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		page, err := b.Search(ctx, query, cursor, limit)
		return pageLoadedMsg{Seq: seq, Cursor: cursor, Page: page, Err: err}
	}
}

func copyEntry(ctx context.Context, b Backend, entry store.Entry) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		return copyDoneMsg{Entry: entry, Err: b.Copy(ctx, entry.ID)}
	}
}
