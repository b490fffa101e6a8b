package dbstore

import (
	"context"
	"strings"

	"github.com/yiblet/kopa/internal/store"
)

const selectEntries = `SELECT ce.id, te.content, ce.created_at
FROM clipboard_entries ce
JOIN text_entries te ON te.entry_id = ce.id`

const selectIndexedEntries = `SELECT ce.id, te.content, ce.created_at
FROM text_entries_fts
JOIN text_entries te ON te.entry_id = text_entries_fts.rowid
JOIN clipboard_entries ce ON ce.id = te.entry_id`

const (
	recencyOrder   = "ce.created_at DESC, ce.id DESC"
	relevanceOrder = "bm25(text_entries_fts), ce.created_at DESC, ce.id DESC"
)

// sqlQuery accumulates WHERE conditions and their arguments.
type sqlQuery struct {
	base  string
	where []string
	args  []any
}

func (q *sqlQuery) and(cond string, args ...any) {
	q.where = append(q.where, cond)
	q.args = append(q.args, args...)
}

// after bounds the query to entries strictly older than cursor.
func (q *sqlQuery) after(cursor *store.Cursor) {
	switch {
	case cursor == nil:
	case cursor.HasID():
		q.and("(ce.created_at < ? OR (ce.created_at = ? AND ce.id < ?))",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	default:
		q.and("ce.created_at < ?", cursor.CreatedAt)
	}
}

func (q *sqlQuery) build(order string, limit int) (string, []any) {
	var b strings.Builder
	b.WriteString(q.base)
	if len(q.where) > 0 {
		b.WriteString("\nWHERE ")
		b.WriteString(strings.Join(q.where, " AND "))
	}
	b.WriteString("\nORDER BY ")
	b.WriteString(order)
	b.WriteString("\nLIMIT ?")
	return b.String(), append(q.args, limit)
}

// fetch runs a read query and converts the rows.
func (s *SQLiteStore) fetch(ctx context.Context, op, sql string, args []any) ([]store.Entry, error) {
	var rows []entryRow
	if err := s.db.WithContext(ctx).Raw(sql, args...).Scan(&rows).Error; err != nil {
		return nil, store.NewStorageError(op, err)
	}
	return toEntries(rows), nil
}

// pageByRecency returns at most limit entries older than cursor, newest first.
// Callers wanting a page ask for one row more than they show.
func (s *SQLiteStore) pageByRecency(ctx context.Context, cursor *store.Cursor, limit int) ([]store.Entry, error) {
	q := &sqlQuery{base: selectEntries}
	q.after(cursor)
	sql, args := q.build(recencyOrder, limit)
	return s.fetch(ctx, "page by recency", sql, args)
}

// searchSubstring matches text containing query literally, newest first.
func (s *SQLiteStore) searchSubstring(ctx context.Context, query string, cursor *store.Cursor, limit int) ([]store.Entry, error) {
	q := &sqlQuery{base: selectEntries}
	q.and(`te.content LIKE ? ESCAPE '`+store.LikeEscape+`'`, store.ContainsPattern(query))
	q.after(cursor)
	sql, args := q.build(recencyOrder, limit)
	return s.fetch(ctx, "substring search", sql, args)
}

// searchIndexed runs the token-prefix match against text_entries_fts, most
// relevant first. A query the FTS5 parser rejects counts as no match.
func (s *SQLiteStore) searchIndexed(ctx context.Context, query string, cursor *store.Cursor, limit int) ([]store.Entry, error) {
	match := store.FTSQuery(query)
	if match == "" {
		return nil, nil
	}

	q := &sqlQuery{base: selectIndexedEntries}
	q.and("text_entries_fts MATCH ?", match)
	q.after(cursor)
	sql, args := q.build(relevanceOrder, limit)

	entries, err := s.fetch(ctx, "indexed search", sql, args)
	if err != nil && isFTSQueryError(err) {
		return nil, nil
	}
	return entries, err
}

// isFTSQueryError reports whether err comes from the FTS5 query parser
// rather than from the database itself.
func isFTSQueryError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "fts5: syntax error") ||
		strings.Contains(msg, "unterminated string") ||
		strings.Contains(msg, "unknown special query")
}

// List returns one page of entries, newest first.
func (s *SQLiteStore) List(ctx context.Context, cursor *store.Cursor, limit int) (*store.Page, error) {
	rows, err := s.pageByRecency(ctx, cursor, store.FetchLimit(limit))
	if err != nil {
		return nil, err
	}
	return store.Paginate(rows, limit), nil
}

// Search returns one page of entries matching query. Queries of three or more
// characters go through the full-text index first; when that finds nothing
// the same text is matched as a substring, so punctuation the tokenizer drops
// can still be found.
func (s *SQLiteStore) Search(ctx context.Context, query string, cursor *store.Cursor, limit int) (*store.Page, error) {
	strategy, trimmed := store.PlanQuery(query)

	var rows []store.Entry
	var err error
	fetch := store.FetchLimit(limit)
	switch strategy {
	case store.StrategyRecency:
		return s.List(ctx, cursor, limit)
	case store.StrategySubstring:
		rows, err = s.searchSubstring(ctx, trimmed, cursor, fetch)
	case store.StrategyIndexed:
		rows, err = s.searchIndexed(ctx, trimmed, cursor, fetch)
		// Also applies past the first page: once the indexed matches under
		// cursor run out, the rest of the pages come from substring matches.
		if err == nil && len(rows) == 0 {
			rows, err = s.searchSubstring(ctx, trimmed, cursor, fetch)
		}
	}
	if err != nil {
		return nil, err
	}

	return store.Paginate(rows, limit), nil
}
