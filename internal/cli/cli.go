package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/yiblet/kopa/internal/client"
	"github.com/yiblet/kopa/internal/config"
	"github.com/yiblet/kopa/internal/daemon"
	"github.com/yiblet/kopa/internal/datadir"
	"github.com/yiblet/kopa/internal/logging"
	"github.com/yiblet/kopa/internal/protocol"
	"github.com/yiblet/kopa/internal/store"
	"github.com/yiblet/kopa/internal/store/dbstore"
	"github.com/yiblet/kopa/internal/tui"
)

// CLI handles the command-line interface
type CLI struct {
	configManager *config.ConfigManager
	config        *config.Config
	dataDirFlag   string
	level         *slog.LevelVar
	logger        *slog.Logger
	out           io.Writer

	dir *datadir.Dir
}

// New creates a new CLI instance
func New() (*CLI, error) {
	return NewWithArgs(nil)
}

// NewWithArgs creates a CLI for args. The config file is loaded here; the
// data directory is resolved on first use.
func NewWithArgs(args *Args) (*CLI, error) {
	if args == nil {
		args = &Args{}
	}

	var cm *config.ConfigManager
	if args.ConfigFile != nil {
		cm = config.NewConfigManagerWithPath(*args.ConfigFile)
	} else {
		var err error
		if cm, err = config.NewConfigManager(); err != nil {
			return nil, fmt.Errorf("failed to create config manager: %w", err)
		}
	}

	cfg, err := cm.Load()
	if err != nil {
		return nil, err
	}

	level := &slog.LevelVar{}
	if l, err := logging.ParseLevel(cfg.LogLevel); err == nil {
		level.Set(l)
	}
	if args.Verbose {
		level.Set(slog.LevelDebug)
	}

	// precedence: flag > config file > default
	dataDir := cfg.DataDir
	if args.DataDir != nil {
		dataDir = *args.DataDir
	}

	return &CLI{
		configManager: cm,
		config:        cfg,
		dataDirFlag:   dataDir,
		level:         level,
		logger:        logging.New(level),
		out:           os.Stdout,
	}, nil
}

// Execute runs the CLI command based on parsed arguments
func (c *CLI) Execute(ctx context.Context, args *Args) error {
	if err := args.Validate(); err != nil {
		return err
	}

	switch {
	case args.Daemon != nil:
		return c.executeDaemon(ctx, args.Daemon)
	case args.List != nil:
		return c.executeList(ctx, args.List)
	case args.Search != nil:
		return c.executeSearch(ctx, args.Search)
	case args.Copy != nil:
		return c.executeCopy(ctx, args.Copy)
	case args.Delete != nil:
		return c.executeDelete(ctx, args.Delete)
	case args.Config != nil:
		return c.executeConfig(args.Config)
	case args.Browse != nil:
		return c.launchTUI(ctx, args.Browse)
	default:
		return c.launchTUI(ctx, &BrowseCmd{})
	}
}

func (c *CLI) dataDir() (*datadir.Dir, error) {
	if c.dir != nil {
		return c.dir, nil
	}
	dir, err := datadir.New(c.dataDirFlag)
	if err != nil {
		return nil, err
	}
	c.dir = dir
	return dir, nil
}

func (c *CLI) client() (*client.Client, error) {
	dir, err := c.dataDir()
	if err != nil {
		return nil, err
	}
	return client.New(dir.SocketPath()), nil
}

func (c *CLI) pageSize(limit int) int {
	if limit > 0 {
		return limit
	}
	return c.config.PageSize
}

// remoteErr adds a hint when the daemon is down.
func remoteErr(action string, err error) error {
	if errors.Is(err, client.ErrDaemonNotRunning) {
		return fmt.Errorf("%s: %w; start it with 'kopa daemon'", action, err)
	}
	return fmt.Errorf("%s: %w", action, err)
}

// executeDaemon handles the 'kopa daemon' command
func (c *CLI) executeDaemon(ctx context.Context, cmd *DaemonCmd) error {
	dir, err := c.dataDir()
	if err != nil {
		return err
	}
	return daemon.Run(ctx, daemon.Options{
		Dir:           dir,
		Config:        c.config,
		ConfigManager: c.configManager,
		Ephemeral:     cmd.Ephemeral,
		Level:         c.level,
		Logger:        c.logger,
	})
}

func (p *PageFlags) cursor() *store.Cursor {
	if p.Cursor == nil {
		return nil
	}
	cur := &store.Cursor{CreatedAt: *p.Cursor}
	if p.CursorID != nil {
		cur.ID = *p.CursorID
	}
	return cur
}

// executeList handles the 'kopa list' command
func (c *CLI) executeList(ctx context.Context, cmd *ListCmd) error {
	cl, err := c.client()
	if err != nil {
		return err
	}
	page, err := cl.List(ctx, cmd.cursor(), c.pageSize(cmd.Limit))
	if err != nil {
		return remoteErr("failed to list history", err)
	}
	if len(page.Entries) == 0 && !cmd.JSON {
		fmt.Fprintln(c.out, "No entries.")
		return nil
	}
	return c.printPage(page, cmd.JSON)
}

// executeSearch handles the 'kopa search' command
func (c *CLI) executeSearch(ctx context.Context, cmd *SearchCmd) error {
	cl, err := c.client()
	if err != nil {
		return err
	}
	page, err := cl.Search(ctx, cmd.Text(), cmd.cursor(), c.pageSize(cmd.Limit))
	if err != nil {
		return remoteErr("search failed", err)
	}
	if len(page.Entries) == 0 && !cmd.JSON {
		return fmt.Errorf("no matches found for: %s", cmd.Text())
	}
	return c.printPage(page, cmd.JSON)
}

func (c *CLI) printPage(page *store.Page, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(c.out).Encode(protocol.NewEntries(page))
	}

	for _, e := range page.Entries {
		ts := time.Unix(e.CreatedAt, 0).Format("2006-01-02 15:04:05")
		fmt.Fprintf(c.out, "%6d  %s  %s\n", e.ID, ts, truncatePreview(e.Content))
	}
	if page.Next != nil {
		if page.Next.HasID() {
			fmt.Fprintf(c.out, "\nmore: --cursor %d --cursor-id %d\n", page.Next.CreatedAt, page.Next.ID)
		} else {
			fmt.Fprintf(c.out, "\nmore: --cursor %d\n", page.Next.CreatedAt)
		}
	}
	return nil
}

// executeCopy handles the 'kopa copy' command
func (c *CLI) executeCopy(ctx context.Context, cmd *CopyCmd) error {
	cl, err := c.client()
	if err != nil {
		return err
	}

	if cmd.Text != nil {
		if err := cl.CopyText(ctx, *cmd.Text); err != nil {
			return remoteErr("failed to copy text", err)
		}
		fmt.Fprintf(c.out, "Copied to clipboard: %s\n", truncatePreview(*cmd.Text))
		return nil
	}

	if err := cl.Copy(ctx, *cmd.ID); err != nil {
		return remoteErr(fmt.Sprintf("failed to copy entry %d", *cmd.ID), err)
	}
	fmt.Fprintf(c.out, "Copied entry %d to clipboard\n", *cmd.ID)
	return nil
}

// executeDelete handles the 'kopa delete' command. It opens the database
// directly, so it works whether or not the daemon is running.
func (c *CLI) executeDelete(ctx context.Context, cmd *DeleteCmd) error {
	dir, err := c.dataDir()
	if err != nil {
		return err
	}
	st, err := dbstore.NewSQLiteStore(ctx, dir.DBPath())
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer st.Close()

	for _, id := range cmd.IDs {
		if err := st.Delete(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("entry %d not found", id)
			}
			return fmt.Errorf("failed to delete entry %d: %w", id, err)
		}
		fmt.Fprintf(c.out, "Deleted entry %d\n", id)
	}
	return nil
}

// executeConfig handles the 'kopa config' command
func (c *CLI) executeConfig(cmd *ConfigCmd) error {
	switch {
	case cmd.Get != nil:
		return c.executeConfigGet(cmd.Get)
	case cmd.Set != nil:
		return c.executeConfigSet(cmd.Set)
	case cmd.List != nil:
		return c.executeConfigList()
	default:
		return fmt.Errorf("no config subcommand specified")
	}
}

// executeConfigGet handles the 'kopa config get' command
func (c *CLI) executeConfigGet(cmd *ConfigGetCmd) error {
	value, err := c.configManager.Get(cmd.Key)
	if err != nil {
		return fmt.Errorf("failed to get config value: %w", err)
	}

	fmt.Fprintf(c.out, "%s\n", value)
	return nil
}

// executeConfigSet handles the 'kopa config set' command
func (c *CLI) executeConfigSet(cmd *ConfigSetCmd) error {
	if err := c.configManager.Update(cmd.Key, cmd.Value); err != nil {
		return fmt.Errorf("failed to set config value: %w", err)
	}

	fmt.Fprintf(c.out, "Set %s = %s\n", cmd.Key, cmd.Value)
	return nil
}

// executeConfigList handles the 'kopa config list' command
func (c *CLI) executeConfigList() error {
	values, err := c.configManager.List()
	if err != nil {
		return fmt.Errorf("failed to list config values: %w", err)
	}

	fmt.Fprintf(c.out, "Current configuration (%s):\n", c.configManager.GetConfigPath())
	for _, key := range config.Keys() {
		fmt.Fprintf(c.out, "  %s = %s\n", key, values[key])
	}
	return nil
}

// launchTUI starts the interactive browser
func (c *CLI) launchTUI(ctx context.Context, cmd *BrowseCmd) error {
	cl, err := c.client()
	if err != nil {
		return err
	}

	// fail early rather than open an empty screen
	if _, err := cl.List(ctx, nil, 1); err != nil {
		return remoteErr("cannot browse history", err)
	}

	model := tui.NewModel(ctx, cl, tui.Options{
		PageSize: c.config.PageSize,
		Query:    cmd.Query,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// truncatePreview creates a one-line preview of content for display
func truncatePreview(content string) string {
	const maxLength = 80

	preview := strings.Join(strings.Fields(content), " ")

	runes := []rune(preview)
	if len(runes) <= maxLength {
		return preview
	}
	return string(runes[:maxLength-3]) + "..."
}
