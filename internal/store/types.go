package store

import "fmt"

// Content types recorded on an entry. Only text is captured today; the schema
// keeps a table for images.
const (
	ContentTypeText  = "text"
	ContentTypeImage = "image"
)

// Entry is one captured clipboard snapshot together with its text.
type Entry struct {
	// ID is the surrogate key assigned at insert time. Never reused.
	ID int64 `json:"id"`

	// Content is the UTF-8 text body.
	Content string `json:"content"`

	// CreatedAt is seconds since the epoch, taken from the writer's clock.
	// Not unique: two entries may share a second.
	CreatedAt int64 `json:"created_at"`
}

// Cursor marks the exclusive upper bound of the next page.
//
// CreatedAt is the timestamp of the last entry of the previous page. ID, when
// non-zero, is that entry's id and turns the bound into the composite key
// (created_at, id), so entries sharing a timestamp are neither skipped nor
// repeated at a page boundary. A zero ID keeps the plain timestamp bound.
type Cursor struct {
	CreatedAt int64
	ID        int64
}

// HasID reports whether the cursor carries the id tie-break.
func (c *Cursor) HasID() bool {
	return c != nil && c.ID > 0
}

func (c *Cursor) String() string {
	if c == nil {
		return "<start>"
	}
	if c.HasID() {
		return fmt.Sprintf("%d/%d", c.CreatedAt, c.ID)
	}
	return fmt.Sprintf("%d", c.CreatedAt)
}

// Page is one page of results. Next is nil when there is nothing more.
type Page struct {
	Entries []Entry
	Next    *Cursor
}
