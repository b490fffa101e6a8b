package store

import "math"

// MaxLimit is the largest page size any store serves. MaxLimit+1 fits in an
// int on every platform.
const MaxLimit = math.MaxInt32 - 1

// FetchLimit returns the row count to request for a page of limit entries:
// one extra row to detect continuation, with limit clamped to MaxLimit.
func FetchLimit(limit int) int {
	return min(limit, MaxLimit) + 1
}

// Paginate turns the rows of a query that asked for limit+1 rows into a page.
//
// If rows holds more than limit entries the extra one is dropped and the next
// cursor points at the new last entry. Otherwise the page is final and Next is
// nil.
func Paginate(rows []Entry, limit int) *Page {
	if rows == nil {
		rows = []Entry{}
	}
	limit = min(limit, MaxLimit)
	if limit <= 0 || len(rows) <= limit {
		return &Page{Entries: rows}
	}

	rows = rows[:limit]
	last := rows[len(rows)-1]
	return &Page{
		Entries: rows,
		Next:    &Cursor{CreatedAt: last.CreatedAt, ID: last.ID},
	}
}
