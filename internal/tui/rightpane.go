package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/yiblet/kopa/internal/store"
)

// RightPaneMsg represents messages that the preview pane handles
type RightPaneMsg interface {
	isRightPaneMsg()
}

// Right pane message implementations
type ScrollMsg struct {
	Lines int // negative scrolls up
}

func (ScrollMsg) isRightPaneMsg() {}

type HalfPageMsg struct {
	Down bool
}

func (HalfPageMsg) isRightPaneMsg() {}

type ResizeRightPaneMsg struct {
	Width  int
	Height int
}

func (ResizeRightPaneMsg) isRightPaneMsg() {}

// ShowEntryMsg puts entry in the pane and scrolls to its top.
type ShowEntryMsg struct {
	Entry *store.Entry
}

func (ShowEntryMsg) isRightPaneMsg() {}

// RightPaneModel holds the preview of the selected entry. Lines caches the
// wrapped content for CachedWidth.
type RightPaneModel struct {
	Width   int
	Height  int
	ViewPos int

	Entry       *store.Entry
	Lines       []string
	CachedWidth int
}

// NewRightPaneModel creates an empty preview
func NewRightPaneModel(width, height int) RightPaneModel {
	return RightPaneModel{Width: width, Height: height}
}

// Update applies msg
func (r *RightPaneModel) Update(msg RightPaneMsg) {
	switch m := msg.(type) {
	case ScrollMsg:
		r.ViewPos += m.Lines
	case HalfPageMsg:
		step := max(r.availableHeight()/2, 1)
		if !m.Down {
			step = -step
		}
		r.ViewPos += step
	case ResizeRightPaneMsg:
		r.Width = m.Width
		r.Height = m.Height
	case ShowEntryMsg:
		r.Entry = m.Entry
		r.ViewPos = 0
		r.CachedWidth = 0
	}

	r.rewrap()
	r.ViewPos = min(max(r.ViewPos, 0), r.maxScroll())
}

// rewrap refreshes Lines when the width or entry changed.
func (r *RightPaneModel) rewrap() {
	width := r.textWidth()
	if r.CachedWidth == width && r.CachedWidth != 0 {
		return
	}
	r.CachedWidth = width
	if r.Entry == nil {
		r.Lines = nil
		return
	}
	r.Lines = WrapText(r.Entry.Content, width)
}

func (r *RightPaneModel) textWidth() int {
	// border and padding
	return max(r.Width-4, 1)
}

func (r *RightPaneModel) availableHeight() int {
	// border, title and blank line
	return max(r.Height-4, 1)
}

func (r *RightPaneModel) maxScroll() int {
	return max(len(r.Lines)-r.availableHeight(), 0)
}

// RightPaneView renders the preview pane
func RightPaneView(model RightPaneModel) string {
	style := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(0, 1).
		Width(max(model.Width-2, 1)).
		Height(max(model.Height-2, 1))

	var content strings.Builder
	if model.Entry == nil {
		content.WriteString(lipgloss.NewStyle().Bold(true).Render("Preview") + "\n\n")
		content.WriteString("No entry selected")
		return style.Render(content.String())
	}

	e := model.Entry
	title := fmt.Sprintf("#%d  %s  %d bytes", e.ID, time.Unix(e.CreatedAt, 0).Format("2006-01-02 15:04:05"), len(e.Content))
	avail := model.availableHeight()
	if model.maxScroll() > 0 {
		bottom := min(model.ViewPos+avail, len(model.Lines))
		title += fmt.Sprintf(" (%d-%d/%d)", model.ViewPos+1, bottom, len(model.Lines))
	}
	content.WriteString(lipgloss.NewStyle().Bold(true).Render(truncate(title, model.textWidth())) + "\n\n")

	end := min(model.ViewPos+avail, len(model.Lines))
	for i := model.ViewPos; i < end; i++ {
		content.WriteString(model.Lines[i] + "\n")
	}

	return style.Render(strings.TrimSuffix(content.String(), "\n"))
}
