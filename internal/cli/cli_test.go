package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yiblet/kopa/internal/client"
	"github.com/yiblet/kopa/internal/clipboard/mockboard"
	"github.com/yiblet/kopa/internal/datadir"
	"github.com/yiblet/kopa/internal/protocol"
	"github.com/yiblet/kopa/internal/server"
	"github.com/yiblet/kopa/internal/store/dbstore"
	"github.com/yiblet/kopa/internal/store/memstore"
)

func stringPtr(s string) *string { return &s }
func int64Ptr(i int64) *int64    { return &i }

// shortDir returns a temp dir short enough for a unix socket path.
func shortDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "kopa")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func newTestCLI(t *testing.T, dataDir string) (*CLI, *bytes.Buffer) {
	t.Helper()
	args := &Args{
		DataDir:    stringPtr(dataDir),
		ConfigFile: stringPtr(filepath.Join(t.TempDir(), "config.yaml")),
	}
	c, err := NewWithArgs(args)
	if err != nil {
		t.Fatalf("NewWithArgs failed: %v", err)
	}
	var out bytes.Buffer
	c.out = &out
	return c, &out
}

type testDaemon struct {
	store *memstore.MemoryStore
	clip  *mockboard.MockClipboard
}

func startTestDaemon(t *testing.T, root string) *testDaemon {
	t.Helper()
	td := &testDaemon{store: memstore.NewMemoryStore(), clip: mockboard.New()}

	logger := slog.New(slog.DiscardHandler)
	srv := server.New(datadir.NewWithRoot(root).SocketPath(), server.NewRouter(td.store, td.clip, logger), logger)
	ln, err := srv.Listen()
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return td
}

func (td *testDaemon) seed(t *testing.T, contents ...string) {
	t.Helper()
	base := time.Unix(1_700_000_000, 0)
	for i, content := range contents {
		if _, err := td.store.Append(context.Background(), content, base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
}

func TestNewWithArgs_DataDirPrecedence(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	fromFile := filepath.Join(t.TempDir(), "from-file")
	if err := os.WriteFile(configPath, []byte("data_dir: "+fromFile+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		flag     *string
		expected string
	}{
		{"config file", nil, fromFile},
		{"flag wins", stringPtr(filepath.Join(t.TempDir(), "from-flag")), ""},
	}
	tests[1].expected = *tests[1].flag

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewWithArgs(&Args{DataDir: tt.flag, ConfigFile: &configPath})
			if err != nil {
				t.Fatalf("NewWithArgs failed: %v", err)
			}
			dir, err := c.dataDir()
			if err != nil {
				t.Fatalf("dataDir failed: %v", err)
			}
			if dir.Root() != tt.expected {
				t.Errorf("Expected data dir %s, got %s", tt.expected, dir.Root())
			}
			if _, err := os.Stat(tt.expected); err != nil {
				t.Errorf("Expected data dir to be created: %v", err)
			}
		})
	}
}

func TestNewWithArgs_DefaultDataDir(t *testing.T) {
	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	c, err := New()
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	dir, err := c.dataDir()
	if err != nil {
		t.Fatalf("dataDir failed: %v", err)
	}
	if want := filepath.Join(dataHome, datadir.AppName); dir.Root() != want {
		t.Errorf("Expected data dir %s, got %s", want, dir.Root())
	}
}

func TestNewWithArgs_InvalidConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("page_size: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewWithArgs(&Args{ConfigFile: &configPath}); err == nil {
		t.Error("Expected error for invalid config file")
	}
}

func TestNewWithArgs_Verbose(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	c, err := NewWithArgs(&Args{ConfigFile: &configPath, Verbose: true})
	if err != nil {
		t.Fatalf("NewWithArgs failed: %v", err)
	}
	if c.level.Level() != slog.LevelDebug {
		t.Errorf("Expected debug level, got %s", c.level.Level())
	}
}

func TestArgsValidation_ValidCases(t *testing.T) {
	tests := []struct {
		name string
		args Args
	}{
		{"no subcommand", Args{}},
		{"daemon", Args{Daemon: &DaemonCmd{Ephemeral: true}}},
		{"list", Args{List: &ListCmd{}}},
		{"list with cursor", Args{List: &ListCmd{PageFlags{Limit: 5, Cursor: int64Ptr(100), CursorID: int64Ptr(3)}}}},
		{"search", Args{Search: &SearchCmd{Query: []string{"kube", "pod"}}}},
		{"copy id", Args{Copy: &CopyCmd{ID: int64Ptr(1)}}},
		{"copy text", Args{Copy: &CopyCmd{Text: stringPtr("hello")}}},
		{"delete", Args{Delete: &DeleteCmd{IDs: []int64{1, 2}}}},
		{"config list", Args{Config: &ConfigCmd{List: &ConfigListCmd{}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.args.Validate(); err != nil {
				t.Errorf("Expected validation to pass for %s, got: %v", tt.name, err)
			}
		})
	}
}

func TestArgsValidation_InvalidCases(t *testing.T) {
	tests := []struct {
		name string
		args Args
	}{
		{"negative limit", Args{List: &ListCmd{PageFlags{Limit: -1}}}},
		{"cursor id without cursor", Args{List: &ListCmd{PageFlags{CursorID: int64Ptr(3)}}}},
		{"empty search", Args{Search: &SearchCmd{}}},
		{"blank search", Args{Search: &SearchCmd{Query: []string{"  "}}}},
		{"copy nothing", Args{Copy: &CopyCmd{}}},
		{"copy both", Args{Copy: &CopyCmd{ID: int64Ptr(1), Text: stringPtr("x")}}},
		{"delete zero id", Args{Delete: &DeleteCmd{IDs: []int64{0}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.args.Validate(); err == nil {
				t.Errorf("Expected validation to fail for %s", tt.name)
			}
		})
	}
}

func TestArgs_Empty(t *testing.T) {
	if !(&Args{Verbose: true}).Empty() {
		t.Error("Expected args without subcommand to be empty")
	}
	if (&Args{List: &ListCmd{}}).Empty() {
		t.Error("Expected args with list to be non-empty")
	}
}

func TestExecute_List(t *testing.T) {
	root := shortDir(t)
	td := startTestDaemon(t, root)
	td.seed(t, "first", "second\nline", "third")

	c, out := newTestCLI(t, root)
	if err := c.Execute(context.Background(), &Args{List: &ListCmd{PageFlags{Limit: 2}}}); err != nil {
		t.Fatalf("list failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("Expected 2 entries, a blank line and a cursor hint, got %q", out.String())
	}
	if !strings.HasSuffix(lines[0], "third") || !strings.HasSuffix(lines[1], "second line") {
		t.Errorf("Unexpected entries: %q", lines[:2])
	}
	if !strings.HasPrefix(lines[3], "more: --cursor 1700000001 --cursor-id 2") {
		t.Errorf("Unexpected cursor hint: %q", lines[3])
	}

	// follow the hint
	out.Reset()
	next := &ListCmd{PageFlags{Limit: 2, Cursor: int64Ptr(1_700_000_001), CursorID: int64Ptr(2)}}
	if err := c.Execute(context.Background(), &Args{List: next}); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if got := strings.TrimSpace(out.String()); !strings.HasSuffix(got, "first") || strings.Contains(got, "more:") {
		t.Errorf("Unexpected last page: %q", got)
	}
}

func TestExecute_ListEmpty(t *testing.T) {
	root := shortDir(t)
	startTestDaemon(t, root)

	c, out := newTestCLI(t, root)
	if err := c.Execute(context.Background(), &Args{List: &ListCmd{}}); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if out.String() != "No entries.\n" {
		t.Errorf("Expected empty message, got %q", out.String())
	}
}

func TestExecute_ListJSON(t *testing.T) {
	root := shortDir(t)
	td := startTestDaemon(t, root)
	td.seed(t, "only")

	c, out := newTestCLI(t, root)
	if err := c.Execute(context.Background(), &Args{List: &ListCmd{PageFlags{JSON: true}}}); err != nil {
		t.Fatalf("list failed: %v", err)
	}

	var resp protocol.Entries
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("Expected JSON output, got %q: %v", out.String(), err)
	}
	if len(resp.Entries) != 1 || resp.Entries[0].Content != "only" || resp.NextCursor != nil {
		t.Errorf("Unexpected response: %+v", resp)
	}
}

func TestExecute_Search(t *testing.T) {
	root := shortDir(t)
	td := startTestDaemon(t, root)
	td.seed(t, "kubectl get pods", "hello world", "kube pod list")

	c, out := newTestCLI(t, root)
	if err := c.Execute(context.Background(), &Args{Search: &SearchCmd{Query: []string{"kube", "pod"}}}); err != nil {
		t.Fatalf("search failed: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "kube pod list") || strings.Contains(got, "hello world") {
		t.Errorf("Unexpected search output: %q", got)
	}

	err := c.Execute(context.Background(), &Args{Search: &SearchCmd{Query: []string{"zzz"}}})
	if err == nil || !strings.Contains(err.Error(), "no matches") {
		t.Errorf("Expected no matches error, got %v", err)
	}
}

func TestExecute_Copy(t *testing.T) {
	root := shortDir(t)
	td := startTestDaemon(t, root)
	td.seed(t, "copy me")

	c, out := newTestCLI(t, root)
	if err := c.Execute(context.Background(), &Args{Copy: &CopyCmd{ID: int64Ptr(1)}}); err != nil {
		t.Fatalf("copy failed: %v", err)
	}
	if err := c.Execute(context.Background(), &Args{Copy: &CopyCmd{Text: stringPtr("typed")}}); err != nil {
		t.Fatalf("copy --text failed: %v", err)
	}

	writes := td.clip.Writes()
	if len(writes) != 2 || writes[0] != "copy me" || writes[1] != "typed" {
		t.Errorf("Unexpected clipboard writes: %q", writes)
	}
	if !strings.Contains(out.String(), "Copied entry 1") {
		t.Errorf("Unexpected output: %q", out.String())
	}

	err := c.Execute(context.Background(), &Args{Copy: &CopyCmd{ID: int64Ptr(99)}})
	var remote *client.RemoteError
	if !errors.As(err, &remote) || remote.Message != "Entry not found" {
		t.Errorf("Expected Entry not found, got %v", err)
	}
}

func TestExecute_DaemonNotRunning(t *testing.T) {
	c, _ := newTestCLI(t, shortDir(t))

	err := c.Execute(context.Background(), &Args{List: &ListCmd{}})
	if !errors.Is(err, client.ErrDaemonNotRunning) {
		t.Fatalf("Expected ErrDaemonNotRunning, got %v", err)
	}
	if !strings.Contains(err.Error(), "kopa daemon") {
		t.Errorf("Expected a start hint, got %v", err)
	}
}

func TestExecute_Delete(t *testing.T) {
	root := shortDir(t)
	dir := datadir.NewWithRoot(root)

	st, err := dbstore.NewSQLiteStore(context.Background(), dir.DBPath())
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	id, err := st.Append(context.Background(), "secret", time.Now())
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	st.Close()

	c, out := newTestCLI(t, root)
	if err := c.Execute(context.Background(), &Args{Delete: &DeleteCmd{IDs: []int64{id}}}); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if !strings.Contains(out.String(), "Deleted entry") {
		t.Errorf("Unexpected output: %q", out.String())
	}

	err = c.Execute(context.Background(), &Args{Delete: &DeleteCmd{IDs: []int64{id}}})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("Expected not found error, got %v", err)
	}
}

func TestExecute_Config(t *testing.T) {
	c, out := newTestCLI(t, shortDir(t))
	ctx := context.Background()

	if err := c.Execute(ctx, &Args{Config: &ConfigCmd{Set: &ConfigSetCmd{Key: "page-size", Value: "25"}}}); err != nil {
		t.Fatalf("config set failed: %v", err)
	}
	out.Reset()

	if err := c.Execute(ctx, &Args{Config: &ConfigCmd{Get: &ConfigGetCmd{Key: "page-size"}}}); err != nil {
		t.Fatalf("config get failed: %v", err)
	}
	if out.String() != "25\n" {
		t.Errorf("Expected 25, got %q", out.String())
	}
	out.Reset()

	if err := c.Execute(ctx, &Args{Config: &ConfigCmd{List: &ConfigListCmd{}}}); err != nil {
		t.Fatalf("config list failed: %v", err)
	}
	if !strings.Contains(out.String(), "page-size = 25") {
		t.Errorf("Expected page-size in list, got %q", out.String())
	}

	if err := c.Execute(ctx, &Args{Config: &ConfigCmd{Set: &ConfigSetCmd{Key: "page-size", Value: "0"}}}); err == nil {
		t.Error("Expected error for invalid page size")
	}
	if err := c.Execute(ctx, &Args{Config: &ConfigCmd{}}); err == nil {
		t.Error("Expected error for missing config subcommand")
	}
}

func TestTruncatePreview(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"short", "hello", "hello"},
		{"newlines collapse", "a\n\tb  c\n", "a b c"},
		{"long", strings.Repeat("x", 100), strings.Repeat("x", 77) + "..."},
		{"multibyte", strings.Repeat("é", 90), strings.Repeat("é", 77) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncatePreview(tt.input); got != tt.expected {
				t.Errorf("truncatePreview(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
