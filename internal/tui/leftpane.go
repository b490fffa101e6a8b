package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/yiblet/kopa/internal/store"
)

// prefetchThreshold is how close to the end of the loaded entries the cursor
// may get before the next page is requested.
const prefetchThreshold = 5

// LeftPaneMsg represents messages that the entry list handles
type LeftPaneMsg interface {
	isLeftPaneMsg()
}

// Left pane message implementations
type NavigateUpMsg struct{}

func (NavigateUpMsg) isLeftPaneMsg() {}

type NavigateDownMsg struct{}

func (NavigateDownMsg) isLeftPaneMsg() {}

type PageMoveMsg struct {
	Delta int
}

func (PageMoveMsg) isLeftPaneMsg() {}

type GoToTopMsg struct{}

func (GoToTopMsg) isLeftPaneMsg() {}

type GoToBottomMsg struct{}

func (GoToBottomMsg) isLeftPaneMsg() {}

type ResizeLeftPaneMsg struct {
	Width  int
	Height int
}

func (ResizeLeftPaneMsg) isLeftPaneMsg() {}

// SetEntriesMsg replaces the list with the first page of a new query.
type SetEntriesMsg struct {
	Entries []store.Entry
	Next    *store.Cursor
}

func (SetEntriesMsg) isLeftPaneMsg() {}

// AppendEntriesMsg adds a following page. Entries already in the list are
// skipped; ranked search pages can repeat rows across page boundaries.
type AppendEntriesMsg struct {
	Entries []store.Entry
	Next    *store.Cursor
}

func (AppendEntriesMsg) isLeftPaneMsg() {}

// LeftPaneModel holds the loaded entries and the selection
type LeftPaneModel struct {
	Entries []store.Entry
	Next    *store.Cursor // cursor for the page after Entries, nil when complete
	Loading bool          // a page request is in flight

	Cursor int // selected row
	Offset int // first visible row
	Width  int
	Height int
}

// NewLeftPaneModel creates an empty list
func NewLeftPaneModel(width, height int) LeftPaneModel {
	return LeftPaneModel{Width: width, Height: height}
}

// Update applies msg. It reports whether the selected entry changed.
func (l *LeftPaneModel) Update(msg LeftPaneMsg) bool {
	prev, hadPrev := l.Selected()

	switch m := msg.(type) {
	case NavigateUpMsg:
		l.move(-1)
	case NavigateDownMsg:
		l.move(1)
	case PageMoveMsg:
		l.move(m.Delta)
	case GoToTopMsg:
		l.Cursor = 0
	case GoToBottomMsg:
		l.Cursor = max(len(l.Entries)-1, 0)
	case ResizeLeftPaneMsg:
		l.Width = m.Width
		l.Height = m.Height
	case SetEntriesMsg:
		l.Entries = m.Entries
		l.Next = m.Next
		l.Cursor = 0
		l.Offset = 0
		l.Loading = false
	case AppendEntriesMsg:
		l.Entries = appendNew(l.Entries, m.Entries)
		l.Next = m.Next
		l.Loading = false
	}

	l.clamp()
	cur, hasCur := l.Selected()
	return hadPrev != hasCur || prev.ID != cur.ID
}

// appendNew appends the entries of page whose IDs are not already in list.
func appendNew(list, page []store.Entry) []store.Entry {
	seen := make(map[int64]struct{}, len(list))
	for _, e := range list {
		seen[e.ID] = struct{}{}
	}
	for _, e := range page {
		if _, ok := seen[e.ID]; ok {
			continue
		}
		seen[e.ID] = struct{}{}
		list = append(list, e)
	}
	return list
}

func (l *LeftPaneModel) move(delta int) {
	l.Cursor = min(max(l.Cursor+delta, 0), max(len(l.Entries)-1, 0))
}

// clamp keeps the cursor on a loaded entry and inside the visible window.
func (l *LeftPaneModel) clamp() {
	l.move(0)
	rows := l.visibleRows()
	if l.Cursor < l.Offset {
		l.Offset = l.Cursor
	}
	if l.Cursor >= l.Offset+rows {
		l.Offset = l.Cursor - rows + 1
	}
	l.Offset = max(l.Offset, 0)
}

func (l *LeftPaneModel) visibleRows() int {
	// border, title and blank line
	return max(l.Height-4, 1)
}

// Selected returns the entry under the cursor.
func (l *LeftPaneModel) Selected() (store.Entry, bool) {
	if l.Cursor < 0 || l.Cursor >= len(l.Entries) {
		return store.Entry{}, false
	}
	return l.Entries[l.Cursor], true
}

// NeedsMore reports whether the next page should be requested now.
func (l *LeftPaneModel) NeedsMore() bool {
	return l.Next != nil && !l.Loading && len(l.Entries)-1-l.Cursor < prefetchThreshold
}

// LeftPaneView renders the entry list
func LeftPaneView(model LeftPaneModel, focused bool, now time.Time) string {
	borderColor := "62"
	if focused {
		borderColor = "205"
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(borderColor)).
		Padding(0, 1).
		Width(max(model.Width-2, 1)).
		Height(max(model.Height-2, 1))

	var content strings.Builder
	title := fmt.Sprintf("History (%d", len(model.Entries))
	if model.Next != nil {
		title += "+"
	}
	title += ")"
	if focused {
		title = "● " + title
	}
	content.WriteString(lipgloss.NewStyle().Bold(true).Render(title) + "\n\n")

	textWidth := model.Width - 4
	if len(model.Entries) == 0 && !model.Loading {
		content.WriteString("No entries")
	}

	end := min(model.Offset+model.visibleRows(), len(model.Entries))
	for i := model.Offset; i < end; i++ {
		e := model.Entries[i]
		prefix := fmt.Sprintf("%4s ", age(now, e.CreatedAt))
		line := prefix + truncate(oneLine(e.Content), textWidth-len(prefix))

		if i == model.Cursor {
			line = lipgloss.NewStyle().
				Background(lipgloss.Color("62")).
				Foreground(lipgloss.Color("230")).
				Width(max(textWidth, 1)).
				Render(line)
		}
		content.WriteString(line + "\n")
	}
	if model.Loading {
		content.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("loading..."))
	}

	return style.Render(strings.TrimSuffix(content.String(), "\n"))
}

// age renders how long ago createdAt was, in one unit.
func age(now time.Time, createdAt int64) string {
	d := now.Sub(time.Unix(createdAt, 0))
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", max(int(d.Seconds()), 0))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
