package tui

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/yiblet/kopa/internal/store"
)

func testEntries(n int) []store.Entry {
	entries := make([]store.Entry, n)
	for i := range entries {
		id := int64(n - i)
		entries[i] = store.Entry{ID: id, Content: fmt.Sprintf("entry %d", id), CreatedAt: 1_700_000_000 + id}
	}
	return entries
}

// olderEntries returns n entries older than those of testEntries.
func olderEntries(n int) []store.Entry {
	entries := testEntries(n)
	for i := range entries {
		entries[i].ID += 100
		entries[i].CreatedAt -= 1000
		entries[i].Content = fmt.Sprintf("older %d", entries[i].ID)
	}
	return entries
}

func TestNewLeftPaneModel(t *testing.T) {
	model := NewLeftPaneModel(30, 20)

	if model.Cursor != 0 || model.Offset != 0 {
		t.Errorf("Expected cursor and offset 0, got %d/%d", model.Cursor, model.Offset)
	}
	if model.Width != 30 || model.Height != 20 {
		t.Errorf("Expected 30x20, got %dx%d", model.Width, model.Height)
	}
	if _, ok := model.Selected(); ok {
		t.Error("Expected no selection in an empty list")
	}
}

func TestLeftPaneModel_Navigation(t *testing.T) {
	model := NewLeftPaneModel(30, 20)
	model.Update(SetEntriesMsg{Entries: testEntries(5)})

	tests := []struct {
		name     string
		msg      LeftPaneMsg
		expected int
	}{
		{"up at top stays", NavigateUpMsg{}, 0},
		{"down", NavigateDownMsg{}, 1},
		{"page down clamps", PageMoveMsg{Delta: 10}, 4},
		{"down at bottom stays", NavigateDownMsg{}, 4},
		{"page up clamps", PageMoveMsg{Delta: -10}, 0},
		{"bottom", GoToBottomMsg{}, 4},
		{"top", GoToTopMsg{}, 0},
	}

	for _, tt := range tests {
		model.Update(tt.msg)
		if model.Cursor != tt.expected {
			t.Errorf("%s: expected cursor %d, got %d", tt.name, tt.expected, model.Cursor)
		}
	}
}

func TestLeftPaneModel_UpdateReportsSelectionChange(t *testing.T) {
	model := NewLeftPaneModel(30, 20)

	if !model.Update(SetEntriesMsg{Entries: testEntries(3)}) {
		t.Error("Expected first entries to change the selection")
	}
	if model.Update(NavigateUpMsg{}) {
		t.Error("Expected no change when already at the top")
	}
	if !model.Update(NavigateDownMsg{}) {
		t.Error("Expected change after moving down")
	}
	if model.Update(AppendEntriesMsg{Entries: testEntries(2)}) {
		t.Error("Expected appending to keep the selection")
	}
}

func TestLeftPaneModel_SetAndAppend(t *testing.T) {
	model := NewLeftPaneModel(30, 20)
	model.Loading = true
	next := &store.Cursor{CreatedAt: 100, ID: 7}

	model.Update(SetEntriesMsg{Entries: testEntries(3), Next: next})
	model.Update(GoToBottomMsg{})
	if model.Loading || model.Next != next || model.Cursor != 2 {
		t.Fatalf("Unexpected state after set: %+v", model)
	}

	model.Loading = true
	model.Update(AppendEntriesMsg{Entries: olderEntries(2)})
	if len(model.Entries) != 5 || model.Next != nil || model.Loading {
		t.Errorf("Unexpected state after append: entries=%d next=%v loading=%v", len(model.Entries), model.Next, model.Loading)
	}
	if model.Cursor != 2 {
		t.Errorf("Expected append to keep the cursor, got %d", model.Cursor)
	}

	model.Update(SetEntriesMsg{Entries: testEntries(1)})
	if model.Cursor != 0 || model.Offset != 0 {
		t.Errorf("Expected a new query to reset the cursor, got %d/%d", model.Cursor, model.Offset)
	}
}

func TestLeftPaneModel_AppendSkipsRepeats(t *testing.T) {
	model := NewLeftPaneModel(30, 20)
	model.Update(SetEntriesMsg{Entries: testEntries(2), Next: &store.Cursor{CreatedAt: 1}})

	// the second page repeats entry 1 from the first
	page := append([]store.Entry{testEntries(1)[0]}, olderEntries(1)...)
	model.Update(AppendEntriesMsg{Entries: page})

	var ids []int64
	for _, e := range model.Entries {
		ids = append(ids, e.ID)
	}
	if fmt.Sprint(ids) != "[2 1 101]" {
		t.Errorf("Expected ids [2 1 101], got %v", ids)
	}
}

func TestLeftPaneModel_NeedsMore(t *testing.T) {
	next := &store.Cursor{CreatedAt: 1}

	tests := []struct {
		name     string
		entries  int
		cursor   int
		next     *store.Cursor
		loading  bool
		expected bool
	}{
		{"far from end", 20, 0, next, false, false},
		{"near end", 20, 15, next, false, true},
		{"at end", 20, 19, next, false, true},
		{"complete", 20, 19, nil, false, false},
		{"already loading", 20, 19, next, true, false},
		{"short first page", 3, 0, next, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := LeftPaneModel{Entries: testEntries(tt.entries), Cursor: tt.cursor, Next: tt.next, Loading: tt.loading, Height: 20}
			if got := model.NeedsMore(); got != tt.expected {
				t.Errorf("NeedsMore() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestLeftPaneModel_ScrollWindow(t *testing.T) {
	// four visible rows
	model := NewLeftPaneModel(30, 8)
	model.Update(SetEntriesMsg{Entries: testEntries(10)})

	model.Update(PageMoveMsg{Delta: 5})
	if model.Offset != 2 {
		t.Errorf("Expected offset 2 with cursor 5, got %d", model.Offset)
	}

	model.Update(PageMoveMsg{Delta: -4})
	if model.Offset != 1 {
		t.Errorf("Expected offset to follow the cursor up, got %d", model.Offset)
	}

	view := LeftPaneView(model, true, time.Unix(1_700_000_100, 0))
	if !strings.Contains(view, "entry 9") || strings.Contains(view, "entry 10") {
		t.Errorf("Expected window to start at the second entry:\n%s", view)
	}
}

func TestLeftPaneView(t *testing.T) {
	now := time.Unix(1_700_000_100, 0)

	empty := LeftPaneView(NewLeftPaneModel(30, 10), false, now)
	if !strings.Contains(empty, "No entries") || !strings.Contains(empty, "History (0)") {
		t.Errorf("Unexpected empty view:\n%s", empty)
	}

	model := NewLeftPaneModel(40, 10)
	model.Update(SetEntriesMsg{Entries: testEntries(2), Next: &store.Cursor{CreatedAt: 1}})
	model.Loading = true
	view := LeftPaneView(model, true, now)
	for _, want := range []string{"● History (2+)", "entry 2", "entry 1", "loading..."} {
		if !strings.Contains(view, want) {
			t.Errorf("Expected view to contain %q:\n%s", want, view)
		}
	}
}

func TestLeftPaneView_LongContentTruncated(t *testing.T) {
	model := NewLeftPaneModel(30, 10)
	model.Update(SetEntriesMsg{Entries: []store.Entry{{ID: 1, Content: strings.Repeat("long ", 40) + "\nsecond line", CreatedAt: 1}}})

	view := LeftPaneView(model, false, time.Unix(100, 0))
	if strings.Contains(view, "second line") {
		t.Error("Expected preview to be truncated to one row")
	}
	if !strings.Contains(view, "...") {
		t.Error("Expected an ellipsis on truncated preview")
	}
}

func TestAge(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		ago      time.Duration
		expected string
	}{
		{0, "0s"},
		{45 * time.Second, "45s"},
		{5 * time.Minute, "5m"},
		{3 * time.Hour, "3h"},
		{50 * time.Hour, "2d"},
		{-time.Minute, "0s"},
	}

	for _, tt := range tests {
		if got := age(now, now.Add(-tt.ago).Unix()); got != tt.expected {
			t.Errorf("age(%s) = %q, want %q", tt.ago, got, tt.expected)
		}
	}
}
