// Package memstore provides an in-memory implementation of store.HistoryStore.
// It backs unit tests and the daemon's --ephemeral mode and does not persist data.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yiblet/kopa/internal/store"
)

// MemoryStore is an in-memory implementation of store.HistoryStore.
// It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[int64]store.Entry
	nextID  int64
	closed  bool
}

var _ store.HistoryStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[int64]store.Entry),
		nextID:  1,
	}
}

func (m *MemoryStore) checkOpen(op string) error {
	if m.closed {
		return store.NewStorageError(op, errClosed)
	}
	return nil
}

// Append stores content observed at observedAt and returns its id.
func (m *MemoryStore) Append(ctx context.Context, content string, observedAt time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkOpen("append"); err != nil {
		return 0, err
	}

	id := m.nextID
	m.nextID++
	m.entries[id] = store.Entry{
		ID:        id,
		Content:   content,
		CreatedAt: observedAt.Unix(),
	}
	return id, nil
}

// GetContent returns the text of entry id.
func (m *MemoryStore) GetContent(ctx context.Context, id int64) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.checkOpen("get content"); err != nil {
		return "", err
	}

	e, ok := m.entries[id]
	if !ok {
		return "", store.ErrNotFound
	}
	return e.Content, nil
}

// Delete removes entry id.
func (m *MemoryStore) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkOpen("delete"); err != nil {
		return err
	}

	if _, ok := m.entries[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.entries, id)
	return nil
}

// Count returns the number of stored entries.
func (m *MemoryStore) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.checkOpen("count"); err != nil {
		return 0, err
	}
	return int64(len(m.entries)), nil
}

// List returns one page of entries, newest first.
func (m *MemoryStore) List(ctx context.Context, cursor *store.Cursor, limit int) (*store.Page, error) {
	return m.page("list", cursor, limit, nil)
}

// Search returns one page of entries matching query.
//
// Short queries match as case-insensitive substrings. Longer queries match
// when every whitespace-separated token is a prefix of a word in the entry,
// falling back to the substring match when nothing does. Unlike the SQLite
// store, indexed matches are ordered by recency, not relevance.
func (m *MemoryStore) Search(ctx context.Context, query string, cursor *store.Cursor, limit int) (*store.Page, error) {
	strategy, trimmed := store.PlanQuery(query)
	switch strategy {
	case store.StrategySubstring:
		return m.page("substring search", cursor, limit, containsFold(trimmed))
	case store.StrategyIndexed:
		page, err := m.page("indexed search", cursor, limit, matchesTokens(trimmed))
		if err != nil || len(page.Entries) > 0 {
			return page, err
		}
		return m.page("substring search", cursor, limit, containsFold(trimmed))
	default:
		return m.List(ctx, cursor, limit)
	}
}

// page filters, sorts, and bounds entries the way the SQL queries do.
func (m *MemoryStore) page(op string, cursor *store.Cursor, limit int, match func(string) bool) (*store.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.checkOpen(op); err != nil {
		return nil, err
	}

	var rows []store.Entry
	for _, e := range m.entries {
		if !before(e, cursor) {
			continue
		}
		if match != nil && !match(e.Content) {
			continue
		}
		rows = append(rows, e)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CreatedAt != rows[j].CreatedAt {
			return rows[i].CreatedAt > rows[j].CreatedAt
		}
		return rows[i].ID > rows[j].ID
	})

	if n := store.FetchLimit(limit); limit > 0 && len(rows) > n {
		rows = rows[:n]
	}
	return store.Paginate(rows, limit), nil
}

// before reports whether e sorts strictly after cursor in newest-first order.
func before(e store.Entry, cursor *store.Cursor) bool {
	switch {
	case cursor == nil:
		return true
	case cursor.HasID():
		return e.CreatedAt < cursor.CreatedAt ||
			(e.CreatedAt == cursor.CreatedAt && e.ID < cursor.ID)
	default:
		return e.CreatedAt < cursor.CreatedAt
	}
}

// Close marks the store closed; later calls fail with a storage fault.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
