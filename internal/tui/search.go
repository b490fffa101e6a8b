package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// SearchMsg represents messages that the search box handles
type SearchMsg interface {
	isSearchMsg()
}

// Search message implementations
type InsertTextMsg struct {
	Text string
}

func (InsertTextMsg) isSearchMsg() {}

type DeleteBackMsg struct{}

func (DeleteBackMsg) isSearchMsg() {}

type DeleteWordMsg struct{}

func (DeleteWordMsg) isSearchMsg() {}

type ClearSearchMsg struct{}

func (ClearSearchMsg) isSearchMsg() {}

// SearchModel holds the search box. Seq grows on every edit so that replies
// to earlier queries can be recognised and dropped.
type SearchModel struct {
	Input []rune
	Seq   int
	Width int
}

// NewSearchModel creates a search box holding query
func NewSearchModel(query string) SearchModel {
	return SearchModel{Input: []rune(query)}
}

// Update applies msg and reports whether the query text changed.
func (s *SearchModel) Update(msg SearchMsg) bool {
	before := string(s.Input)

	switch m := msg.(type) {
	case InsertTextMsg:
		// pasted text may carry newlines
		text := strings.Map(func(r rune) rune {
			if r == '\n' || r == '\r' || r == '\t' {
				return ' '
			}
			return r
		}, m.Text)
		s.Input = append(s.Input, []rune(text)...)
	case DeleteBackMsg:
		if len(s.Input) > 0 {
			s.Input = s.Input[:len(s.Input)-1]
		}
	case DeleteWordMsg:
		i := len(s.Input)
		for i > 0 && s.Input[i-1] == ' ' {
			i--
		}
		for i > 0 && s.Input[i-1] != ' ' {
			i--
		}
		s.Input = s.Input[:i]
	case ClearSearchMsg:
		s.Input = nil
	}

	if string(s.Input) == before {
		return false
	}
	s.Seq++
	return true
}

// Query returns the current search text
func (s *SearchModel) Query() string {
	return string(s.Input)
}

// SearchView renders the search box
func SearchView(model SearchModel, focused bool) string {
	borderColor := "62"
	if focused {
		borderColor = "205"
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(borderColor)).
		Padding(0, 1).
		Width(max(model.Width-2, 1))

	prompt := lipgloss.NewStyle().Bold(true).Render("Search: ")
	input := string(model.Input)

	// keep the tail visible while typing
	avail := model.Width - 14
	if runes := []rune(input); avail > 0 && len(runes) > avail {
		input = "…" + string(runes[len(runes)-avail+1:])
	}

	if focused {
		input += "█"
	} else if input == "" {
		input = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("type to search, tab to focus")
	}
	return style.Render(prompt + input)
}
