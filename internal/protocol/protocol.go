// Package protocol defines the request and response messages exchanged over
// the daemon socket and their wire encoding.
//
// Every message is a JSON object with a "type" tag and, for variants that
// carry fields, a "data" object:
//
//	{"type":"search_entries","data":{"query":"kube","limit":20}}
//	{"type":"entries","data":{"entries":[...],"next_cursor":1712000000}}
//	{"type":"success"}
//
// A connection carries exactly one request line and one response line.
package protocol

import (
	"github.com/yiblet/kopa/internal/store"
)

// DefaultPageSize applies when a request omits limit.
const DefaultPageSize = 50

// Request tags.
const (
	TypeListEntries         = "list_entries"
	TypeSearchEntries       = "search_entries"
	TypeCopyToClipboard     = "copy_to_clipboard"
	TypeCopyTextToClipboard = "copy_text_to_clipboard"
)

// Response tags.
const (
	TypeEntries = "entries"
	TypeSuccess = "success"
	TypeError   = "error"
)

// Request is one of ListEntries, SearchEntries, CopyToClipboard or
// CopyTextToClipboard.
type Request interface {
	RequestType() string
}

// Response is one of Entries, Success or Error.
type Response interface {
	ResponseType() string
}

// ListEntries asks for a page of the history, newest first.
type ListEntries struct {
	Cursor   *int64 `json:"cursor"`
	CursorID *int64 `json:"cursor_id,omitempty"`
	Limit    *int   `json:"limit"`
}

// SearchEntries asks for a page of entries matching Query.
type SearchEntries struct {
	Query    string `json:"query"`
	Cursor   *int64 `json:"cursor"`
	CursorID *int64 `json:"cursor_id,omitempty"`
	Limit    *int   `json:"limit"`
}

// CopyToClipboard puts the stored text of EntryID on the clipboard.
type CopyToClipboard struct {
	EntryID int64 `json:"entry_id"`
}

// CopyTextToClipboard puts Content on the clipboard.
type CopyTextToClipboard struct {
	Content string `json:"content"`
}

func (ListEntries) RequestType() string         { return TypeListEntries }
func (SearchEntries) RequestType() string       { return TypeSearchEntries }
func (CopyToClipboard) RequestType() string     { return TypeCopyToClipboard }
func (CopyTextToClipboard) RequestType() string { return TypeCopyTextToClipboard }

// Page returns the store cursor and page size the request asks for.
func (r ListEntries) Page() (*store.Cursor, int) {
	return pageOf(r.Cursor, r.CursorID, r.Limit)
}

// Page returns the store cursor and page size the request asks for.
func (r SearchEntries) Page() (*store.Cursor, int) {
	return pageOf(r.Cursor, r.CursorID, r.Limit)
}

func pageOf(cursor, cursorID *int64, limit *int) (*store.Cursor, int) {
	n := DefaultPageSize
	if limit != nil {
		n = *limit
	}
	if cursor == nil {
		return nil, n
	}
	c := &store.Cursor{CreatedAt: *cursor}
	if cursorID != nil {
		c.ID = *cursorID
	}
	return c, n
}

// Entries is one page of results. NextCursor is null on the last page.
type Entries struct {
	Entries      []store.Entry `json:"entries"`
	NextCursor   *int64        `json:"next_cursor"`
	NextCursorID *int64        `json:"next_cursor_id,omitempty"`
}

// Success acknowledges a copy.
type Success struct{}

// Error reports a failed request.
type Error struct {
	Message string `json:"message"`
}

func (Entries) ResponseType() string { return TypeEntries }
func (Success) ResponseType() string { return TypeSuccess }
func (Error) ResponseType() string   { return TypeError }

// NewEntries converts a store page into a response.
func NewEntries(page *store.Page) Entries {
	resp := Entries{Entries: page.Entries}
	if resp.Entries == nil {
		resp.Entries = []store.Entry{}
	}
	if page.Next != nil {
		createdAt, id := page.Next.CreatedAt, page.Next.ID
		resp.NextCursor = &createdAt
		if id > 0 {
			resp.NextCursorID = &id
		}
	}
	return resp
}

// Next returns the cursor for the following page, or nil.
func (e Entries) Next() *store.Cursor {
	if e.NextCursor == nil {
		return nil
	}
	c := &store.Cursor{CreatedAt: *e.NextCursor}
	if e.NextCursorID != nil {
		c.ID = *e.NextCursorID
	}
	return c
}

// CursorFields splits a store cursor into the optional wire fields.
func CursorFields(c *store.Cursor) (cursor, cursorID *int64) {
	if c == nil {
		return nil, nil
	}
	createdAt := c.CreatedAt
	cursor = &createdAt
	if c.HasID() {
		id := c.ID
		cursorID = &id
	}
	return cursor, cursorID
}
