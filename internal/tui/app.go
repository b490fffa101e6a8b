// Package tui is the interactive history browser. It talks to the daemon
// through a Backend and never touches the database itself.
package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/yiblet/kopa/internal/protocol"
)

// FocusType represents which component receives typed keys
type FocusType int

const (
	SearchFocus FocusType = iota
	ListFocus
)

// UIMode represents the current modal state of the application
type UIMode int

const (
	NormalMode UIMode = iota
	HelpMode
)

const (
	searchHeight  = 3
	statusHeight  = 1
	flashDuration = 2 * time.Second
)

type flashExpiredMsg struct{}

// Options configures the browser.
type Options struct {
	// PageSize is the number of entries fetched per request.
	PageSize int
	// Query is the initial search text.
	Query string
}

// AppModel orchestrates the search box, the entry list and the preview
type AppModel struct {
	Width       int
	Height      int
	LeftWidth   int
	RightWidth  int
	Focus       FocusType
	CurrentMode UIMode

	Search    SearchModel
	LeftPane  LeftPaneModel
	RightPane RightPaneModel

	PageSize int
	Err      error // last failed load, cleared by the next success

	FlashMessage string
	FlashIsError bool
	FlashExpiry  time.Time

	ctx     context.Context
	backend Backend
	now     func() time.Time
}

// NewModel creates the browser model
func NewModel(ctx context.Context, backend Backend, opts Options) *AppModel {
	if opts.PageSize <= 0 {
		opts.PageSize = protocol.DefaultPageSize
	}

	a := &AppModel{
		Focus:     SearchFocus,
		Search:    NewSearchModel(opts.Query),
		LeftPane:  NewLeftPaneModel(40, 20),
		RightPane: NewRightPaneModel(80, 20),
		PageSize:  opts.PageSize,
		ctx:       ctx,
		backend:   backend,
		now:       time.Now,
	}
	a.resize(120, 24)
	return a
}

// Init loads the first page
func (a *AppModel) Init() tea.Cmd {
	return a.reload()
}

// reload requests the first page for the current query
func (a *AppModel) reload() tea.Cmd {
	a.LeftPane.Loading = true
	return fetchPage(a.ctx, a.backend, a.Search.Seq, a.Search.Query(), nil, a.PageSize)
}

// loadMore requests the page after the loaded entries if the selection is
// close enough to the end
func (a *AppModel) loadMore() tea.Cmd {
	if !a.LeftPane.NeedsMore() {
		return nil
	}
	a.LeftPane.Loading = true
	return fetchPage(a.ctx, a.backend, a.Search.Seq, a.Search.Query(), a.LeftPane.Next, a.PageSize)
}

// Update handles app-level messages and routes to sub-models
func (a *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.resize(m.Width, m.Height)
		return a, nil
	case tea.KeyMsg:
		return a.handleKeyPress(m)
	case pageLoadedMsg:
		return a, a.handlePage(m)
	case copyDoneMsg:
		if m.Err != nil {
			return a, a.setFlash(fmt.Sprintf("Copy failed: %v", m.Err), true)
		}
		return a, a.setFlash(fmt.Sprintf("Copied entry #%d (%d bytes) to clipboard", m.Entry.ID, len(m.Entry.Content)), false)
	case flashExpiredMsg:
		if !a.now().Before(a.FlashExpiry) {
			a.FlashMessage = ""
		}
		return a, nil
	}
	return a, nil
}

func (a *AppModel) handlePage(m pageLoadedMsg) tea.Cmd {
	if m.Seq != a.Search.Seq {
		return nil
	}
	if m.Err != nil {
		a.LeftPane.Loading = false
		a.Err = m.Err
		return nil
	}
	a.Err = nil

	var changed bool
	if m.Cursor == nil {
		changed = a.LeftPane.Update(SetEntriesMsg{Entries: m.Page.Entries, Next: m.Page.Next})
	} else {
		changed = a.LeftPane.Update(AppendEntriesMsg{Entries: m.Page.Entries, Next: m.Page.Next})
	}
	if changed || m.Cursor == nil {
		a.showSelected()
	}
	return a.loadMore()
}

func (a *AppModel) resize(width, height int) {
	a.Width = max(width, 30)
	a.Height = max(height, 10)

	a.LeftWidth = min(max(a.Width*2/5, 20), a.Width-20)
	a.RightWidth = a.Width - a.LeftWidth
	paneHeight := a.Height - searchHeight - statusHeight

	a.Search.Width = a.Width
	a.LeftPane.Update(ResizeLeftPaneMsg{Width: a.LeftWidth, Height: paneHeight})
	a.RightPane.Update(ResizeRightPaneMsg{Width: a.RightWidth, Height: paneHeight})
}

func (a *AppModel) showSelected() {
	if e, ok := a.LeftPane.Selected(); ok {
		a.RightPane.Update(ShowEntryMsg{Entry: &e})
		return
	}
	a.RightPane.Update(ShowEntryMsg{})
}

// navigate moves the selection and pulls the next page when needed
func (a *AppModel) navigate(msg LeftPaneMsg) tea.Cmd {
	if a.LeftPane.Update(msg) {
		a.showSelected()
	}
	return a.loadMore()
}

// editSearch applies msg to the search box and re-queries when the text
// changed
func (a *AppModel) editSearch(msg SearchMsg) tea.Cmd {
	if !a.Search.Update(msg) {
		return nil
	}
	return a.reload()
}

// handleKeyPress processes key press events
func (a *AppModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if a.CurrentMode == HelpMode {
		switch key {
		case "ctrl+c":
			return a, tea.Quit
		case "?", "esc", "q":
			a.CurrentMode = NormalMode
		}
		return a, nil
	}

	// keys that work regardless of focus
	switch key {
	case "ctrl+c":
		return a, tea.Quit
	case "tab", "shift+tab":
		if a.Focus == SearchFocus {
			a.Focus = ListFocus
		} else {
			a.Focus = SearchFocus
		}
		return a, nil
	case "enter":
		return a, a.copySelected()
	case "up", "ctrl+p":
		return a, a.navigate(NavigateUpMsg{})
	case "down", "ctrl+n":
		return a, a.navigate(NavigateDownMsg{})
	case "pgup":
		return a, a.navigate(PageMoveMsg{Delta: -a.LeftPane.visibleRows()})
	case "pgdown":
		return a, a.navigate(PageMoveMsg{Delta: a.LeftPane.visibleRows()})
	case "ctrl+u":
		a.RightPane.Update(HalfPageMsg{Down: false})
		return a, nil
	case "ctrl+d":
		a.RightPane.Update(HalfPageMsg{Down: true})
		return a, nil
	case "esc":
		if len(a.Search.Input) > 0 {
			return a, a.editSearch(ClearSearchMsg{})
		}
		return a, tea.Quit
	}

	if a.Focus == SearchFocus {
		return a.handleSearchKeys(msg)
	}
	return a.handleListKeys(key)
}

// handleSearchKeys edits the query
func (a *AppModel) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyBackspace:
		return a, a.editSearch(DeleteBackMsg{})
	case tea.KeyCtrlW:
		return a, a.editSearch(DeleteWordMsg{})
	case tea.KeySpace:
		return a, a.editSearch(InsertTextMsg{Text: " "})
	case tea.KeyRunes:
		if msg.Alt {
			return a, nil
		}
		return a, a.editSearch(InsertTextMsg{Text: string(msg.Runes)})
	}
	return a, nil
}

// handleListKeys processes keys when the list is focused
func (a *AppModel) handleListKeys(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q":
		return a, tea.Quit
	case "?":
		a.CurrentMode = HelpMode
	case "/":
		a.Focus = SearchFocus
	case "k":
		return a, a.navigate(NavigateUpMsg{})
	case "j":
		return a, a.navigate(NavigateDownMsg{})
	case "g", "home":
		return a, a.navigate(GoToTopMsg{})
	case "G", "end":
		return a, a.navigate(GoToBottomMsg{})
	case "c":
		return a, a.copySelected()
	case "K":
		a.RightPane.Update(ScrollMsg{Lines: -1})
	case "J":
		a.RightPane.Update(ScrollMsg{Lines: 1})
	}
	return a, nil
}

// copySelected asks the daemon to put the selected entry on the clipboard
func (a *AppModel) copySelected() tea.Cmd {
	e, ok := a.LeftPane.Selected()
	if !ok {
		return a.setFlash("No entry selected", true)
	}
	return copyEntry(a.ctx, a.backend, e)
}

// setFlash shows message in the status line for flashDuration
func (a *AppModel) setFlash(message string, isError bool) tea.Cmd {
	a.FlashMessage = message
	a.FlashIsError = isError
	a.FlashExpiry = a.now().Add(flashDuration)
	return tea.Tick(flashDuration, func(time.Time) tea.Msg {
		return flashExpiredMsg{}
	})
}

// View renders the application
func (a *AppModel) View() string {
	if a.CurrentMode == HelpMode {
		return renderHelpView(*a) + "\n" + renderStatusLine(*a)
	}

	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		LeftPaneView(a.LeftPane, a.Focus == ListFocus, a.now()),
		RightPaneView(a.RightPane),
	)
	return lipgloss.JoinVertical(lipgloss.Left,
		SearchView(a.Search, a.Focus == SearchFocus),
		panes,
		renderStatusLine(*a),
	)
}

// renderStatusLine renders the bottom status line
func renderStatusLine(model AppModel) string {
	style := lipgloss.NewStyle().Width(model.Width)

	var line string
	switch {
	case model.FlashMessage != "" && model.now().Before(model.FlashExpiry):
		line = model.FlashMessage
		if model.FlashIsError {
			style = style.Foreground(lipgloss.Color("9"))
		} else {
			style = style.Foreground(lipgloss.Color("10"))
		}
	case model.Err != nil:
		line = "Error: " + model.Err.Error()
		style = style.Foreground(lipgloss.Color("9"))
	case model.CurrentMode == HelpMode:
		line = "Press ? or esc to return"
	case model.Focus == SearchFocus:
		line = "type to search · ↑/↓ select · enter copy · tab list · esc clear/quit"
	default:
		line = "j/k move · enter/c copy · / search · ? help · q quit"
	}
	return style.Render(truncate(line, model.Width))
}

// renderHelpView renders the key reference
func renderHelpView(model AppModel) string {
	helpContent := `kopa - clipboard history

SEARCH BOX (focused on start):
  any text      Filter history as you type
  backspace     Delete a character
  ctrl+w        Delete a word
  esc           Clear the query, or quit when it is empty

LIST:
  j, k          Move down, up
  g, G          First entry, last loaded entry
  J, K          Scroll the preview
  /             Focus the search box
  ?             Toggle this help
  q             Quit

EVERYWHERE:
  ↑, ↓          Move the selection
  pgup, pgdown  Move a page
  ctrl+u/d      Scroll the preview half a page
  enter         Copy the selected entry to the clipboard
  tab           Switch between search box and list
  ctrl+c        Quit

Queries of one or two characters match anywhere in the text; longer ones
match words by prefix, best matches first.`

	helpStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(1).
		Width(max(model.Width-4, 1)).
		Height(max(model.Height-4, 1))

	return helpStyle.Render(helpContent)
}
