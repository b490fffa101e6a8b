package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/yiblet/kopa/internal/client"
	"github.com/yiblet/kopa/internal/clipboard/mockboard"
	"github.com/yiblet/kopa/internal/datadir"
	"github.com/yiblet/kopa/internal/server"
	"github.com/yiblet/kopa/internal/store/memstore"
	"github.com/yiblet/kopa/internal/tui"
)

func main() {
	fmt.Println("Testing TUI layout against a live server")
	fmt.Println("========================================")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := memstore.NewMemoryStore()
	base := time.Now().Add(-time.Hour)
	for i := range 25 {
		content := fmt.Sprintf("entry %d: %s", i, strings.Repeat("lorem ipsum ", i%5+1))
		if _, err := st.Append(ctx, content, base.Add(time.Duration(i)*time.Minute)); err != nil {
			log.Fatalf("Append failed: %v", err)
		}
	}

	root, err := os.MkdirTemp("", "kopa-tui")
	if err != nil {
		log.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(root)

	logger := slog.New(slog.DiscardHandler)
	socketPath := datadir.NewWithRoot(root).SocketPath()
	srv := server.New(socketPath, server.NewRouter(st, mockboard.New(), logger), logger)
	ln, err := srv.Listen()
	if err != nil {
		log.Fatalf("Listen failed: %v", err)
	}
	go srv.Serve(ctx, ln)

	// Drive the model by hand: run each command and feed its message back
	model := tui.NewModel(ctx, client.New(socketPath), tui.Options{PageSize: 10})
	model.Update(tea.WindowSizeMsg{Width: 120, Height: 20})
	run(model, model.Init())

	fmt.Printf("Loaded %d entries, next page: %v\n", len(model.LeftPane.Entries), model.LeftPane.Next != nil)
	if model.Err != nil {
		log.Fatalf("Load failed: %v", model.Err)
	}

	view := model.View()
	lines := strings.Split(view, "\n")

	fmt.Printf("Rendered TUI view (%d lines):\n", len(lines))
	fmt.Println(strings.Repeat("=", 120))
	for i, line := range lines[:min(15, len(lines))] {
		fmt.Printf("Line %2d: %s\n", i, line)
	}
	fmt.Println(strings.Repeat("=", 120))

	// Both panes should draw their left and right borders on every body row
	var bodyLine string
	for i, line := range lines {
		if i > 3 && i < len(lines)-3 && strings.Contains(line, "│") {
			bodyLine = line
			break
		}
	}
	if bodyLine == "" {
		fmt.Println("Could not find a line with borders to analyze")
		os.Exit(1)
	}

	var borders []int
	col := 0
	for _, r := range bodyLine {
		if r == '│' {
			borders = append(borders, col)
		}
		col++
	}
	fmt.Printf("Border analysis: %s\n", bodyLine)
	fmt.Printf("Found border characters (│) at columns: %v\n", borders)

	if len(borders) != 4 {
		fmt.Printf("Expected 4 borders, found %d\n", len(borders))
		os.Exit(1)
	}
	if borders[1] != model.LeftWidth-1 || borders[3] != model.Width-1 {
		fmt.Printf("Borders misaligned: left pane ends at %d (want %d), right pane at %d (want %d)\n",
			borders[1], model.LeftWidth-1, borders[3], model.Width-1)
		os.Exit(1)
	}

	// Typing narrows the list through the server's search
	for _, r := range "entry 2" {
		run(model, press(model, r))
	}
	fmt.Printf("Search %q matched %d entries\n", model.Search.Query(), len(model.LeftPane.Entries))

	fmt.Println("\nLayout verification complete!")
}

// run executes cmd and any follow-up commands, feeding their messages back
// into model. Batched commands are not expected.
func run(model *tui.AppModel, cmd tea.Cmd) {
	for cmd != nil {
		_, cmd = model.Update(cmd())
	}
}

func press(model *tui.AppModel, r rune) tea.Cmd {
	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
	if r == ' ' {
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{r}}
	}
	_, cmd := model.Update(msg)
	return cmd
}
