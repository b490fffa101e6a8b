// Package store defines the storage interface for kopa's clipboard history.
// It also holds the pieces every implementation shares: the keyset pager,
// query planning for search, and the storage error taxonomy.
package store

import (
	"context"
	"time"
)

// HistoryStore persists clipboard entries and answers paged reads over them.
// Implementations must be safe for concurrent use: one writer appends while
// any number of readers list and search.
type HistoryStore interface {
	// Append stores content as a new text entry observed at observedAt.
	// The entry and its body are committed together or not at all.
	// Returns the id assigned to the new entry.
	Append(ctx context.Context, content string, observedAt time.Time) (int64, error)

	// List returns one page of entries ordered newest first.
	// A nil cursor starts from the newest entry.
	List(ctx context.Context, cursor *Cursor, limit int) (*Page, error)

	// Search returns one page of entries matching query.
	// The strategy is chosen from the trimmed query, see PlanQuery.
	Search(ctx context.Context, query string, cursor *Cursor, limit int) (*Page, error)

	// GetContent returns the stored text of an entry.
	// Returns ErrNotFound if the entry has no text body.
	GetContent(ctx context.Context, id int64) (string, error)

	// Delete removes an entry together with its body and index row.
	// Returns ErrNotFound if the entry does not exist.
	Delete(ctx context.Context, id int64) error

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int64, error)

	// Close releases the underlying resources.
	Close() error
}
