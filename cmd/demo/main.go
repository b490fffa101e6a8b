package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/yiblet/kopa/internal/client"
	"github.com/yiblet/kopa/internal/clipboard/mockboard"
	"github.com/yiblet/kopa/internal/datadir"
	"github.com/yiblet/kopa/internal/server"
	"github.com/yiblet/kopa/internal/store/memstore"
	"github.com/yiblet/kopa/internal/watcher"
)

func main() {
	fmt.Println("kopa daemon demo")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Simulated clipboard: each read returns the next copy
	copies := []string{
		"Hello, World! This is the first thing we copied.",
		"package main\n\nimport \"fmt\"\n\nfunc main() {\n    fmt.Println(\"Hello, Go!\")\n}",
		"package main\n\nimport \"fmt\"\n\nfunc main() {\n    fmt.Println(\"Hello, Go!\")\n}",
		"SELECT * FROM users WHERE created_at > '2023-01-01' ORDER BY created_at DESC LIMIT 10;",
		"Lorem ipsum dolor sit amet, consectetur adipiscing elit.",
	}
	var reads []mockboard.Read
	for _, c := range copies {
		reads = append(reads, mockboard.Text(c))
	}
	clip := mockboard.New(reads...)
	st := memstore.NewMemoryStore()
	defer st.Close()

	logger := slog.New(slog.DiscardHandler)
	w := watcher.New(st, clip, watcher.Options{}, logger)

	fmt.Printf("Polling %d clipboard reads:\n", len(copies))
	for range copies {
		if err := w.Poll(ctx); err != nil {
			log.Fatalf("Poll failed: %v", err)
		}
	}
	count, err := st.Count(ctx)
	if err != nil {
		log.Fatalf("Count failed: %v", err)
	}
	fmt.Printf("Stored %d entries (consecutive duplicate skipped)\n\n", count)

	// Serve the store on a throwaway socket
	root, err := os.MkdirTemp("", "kopa-demo")
	if err != nil {
		log.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(root)

	socketPath := datadir.NewWithRoot(root).SocketPath()
	srv := server.New(socketPath, server.NewRouter(st, clip, logger), logger)
	ln, err := srv.Listen()
	if err != nil {
		log.Fatalf("Listen failed: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	cl := client.New(socketPath)

	page, err := cl.List(ctx, nil, 10)
	if err != nil {
		log.Fatalf("List failed: %v", err)
	}
	fmt.Println("History (newest first):")
	for _, e := range page.Entries {
		fmt.Printf("%3d. %s\n", e.ID, preview(e.Content))
	}

	fmt.Println("\nSearch \"hello\":")
	page, err = cl.Search(ctx, "hello", nil, 10)
	if err != nil {
		log.Fatalf("Search failed: %v", err)
	}
	for _, e := range page.Entries {
		fmt.Printf("%3d. %s\n", e.ID, preview(e.Content))
	}

	if len(page.Entries) > 0 {
		id := page.Entries[len(page.Entries)-1].ID
		if err := cl.Copy(ctx, id); err != nil {
			log.Fatalf("Copy failed: %v", err)
		}
		writes := clip.Writes()
		fmt.Printf("\nCopied entry %d, clipboard now holds: %s\n", id, preview(writes[len(writes)-1]))
	}

	if err := cl.Copy(ctx, 999); err != nil {
		fmt.Printf("Copy of a missing entry: %v\n", err)
	}

	cancel()
	if err := <-done; err != nil {
		log.Fatalf("Server failed: %v", err)
	}
	fmt.Println("\nDemo complete! (Using in-memory store and clipboard)")
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 60 {
		return s[:57] + "..."
	}
	return s
}
