package cli

import (
	"fmt"
	"strings"
)

// Args represents the top-level command structure
type Args struct {
	DataDir    *string `arg:"--data-dir" help:"Data directory holding the database and socket (absolute, or relative to the default)"`
	ConfigFile *string `arg:"--config" help:"Config file path (default ~/.config/kopa/config.yaml)"`
	Verbose    bool    `arg:"-v,--verbose" help:"Log at debug level"`

	Daemon *DaemonCmd `arg:"subcommand:daemon" help:"Capture clipboard history and serve requests"`
	List   *ListCmd   `arg:"subcommand:list" help:"List history, newest first"`
	Search *SearchCmd `arg:"subcommand:search" help:"Search history"`
	Copy   *CopyCmd   `arg:"subcommand:copy" help:"Put an entry or text on the clipboard"`
	Delete *DeleteCmd `arg:"subcommand:delete" help:"Remove an entry from history"`
	Config *ConfigCmd `arg:"subcommand:config" help:"Manage configuration"`
	Browse *BrowseCmd `arg:"subcommand:browse" help:"Interactive history browser (default)"`
}

// DaemonCmd represents the 'kopa daemon' command
type DaemonCmd struct {
	Ephemeral bool `arg:"-e,--ephemeral" help:"Keep history in memory only"`
}

// PageFlags are shared by list and search.
type PageFlags struct {
	Limit    int    `arg:"-n,--limit" help:"Entries per page (default: page-size from config)"`
	Cursor   *int64 `arg:"--cursor" help:"Resume below this timestamp (next_cursor of a previous page)"`
	CursorID *int64 `arg:"--cursor-id" help:"Tie-break id for --cursor (next_cursor_id of a previous page)"`
	JSON     bool   `arg:"--json" help:"Print the raw entries response"`
}

// ListCmd represents the 'kopa list' command
type ListCmd struct {
	PageFlags
}

// SearchCmd represents the 'kopa search' command
type SearchCmd struct {
	Query []string `arg:"positional" help:"Search text; words are joined with spaces"`
	PageFlags
}

// CopyCmd represents the 'kopa copy' command
type CopyCmd struct {
	ID   *int64  `arg:"positional" help:"Entry id to copy"`
	Text *string `arg:"-t,--text" help:"Copy this text instead of an entry"`
}

// DeleteCmd represents the 'kopa delete' command
type DeleteCmd struct {
	IDs []int64 `arg:"positional,required" help:"Entry ids to delete"`
}

// ConfigCmd represents the 'kopa config' command
type ConfigCmd struct {
	Get  *ConfigGetCmd  `arg:"subcommand:get" help:"Get configuration value"`
	Set  *ConfigSetCmd  `arg:"subcommand:set" help:"Set configuration value"`
	List *ConfigListCmd `arg:"subcommand:list" help:"List all configuration values"`
}

// ConfigGetCmd represents the 'kopa config get' command
type ConfigGetCmd struct {
	Key string `arg:"positional,required" help:"Configuration key"`
}

// ConfigSetCmd represents the 'kopa config set' command
type ConfigSetCmd struct {
	Key   string `arg:"positional,required" help:"Configuration key"`
	Value string `arg:"positional,required" help:"Configuration value"`
}

// ConfigListCmd represents the 'kopa config list' command
type ConfigListCmd struct{}

// BrowseCmd represents the 'kopa browse' command
type BrowseCmd struct {
	Query string `arg:"-q,--query" help:"Initial search text"`
}

// Description returns the program description
func (Args) Description() string {
	return "kopa - clipboard history daemon with full-text search"
}

// Version returns the program version
func (Args) Version() string {
	return "kopa 0.1.0"
}

// Epilogue returns additional help text
func (Args) Epilogue() string {
	return `Examples:
  kopa daemon                      # Start capturing the clipboard
  kopa daemon --ephemeral          # Capture without touching disk

  kopa                             # Interactive browser
  kopa list -n 10                  # Ten most recent entries
  kopa search kube pod             # Entries with words starting "kube" then "pod"
  kopa copy 42                     # Put entry 42 back on the clipboard
  kopa copy --text "hello"         # Put text on the clipboard
  kopa delete 42                   # Forget entry 42

  kopa config set poll-interval-ms 500
  kopa config list

Keys: data-dir, poll-interval-ms, retry-backoff-ms, page-size, clipboard, log-level`
}

// Empty reports whether no subcommand was given.
func (args *Args) Empty() bool {
	return args.Daemon == nil && args.List == nil && args.Search == nil &&
		args.Copy == nil && args.Delete == nil && args.Config == nil && args.Browse == nil
}

// Validate performs validation on the parsed arguments
func (args *Args) Validate() error {
	switch {
	case args.List != nil:
		return args.List.Validate()
	case args.Search != nil:
		return args.Search.Validate()
	case args.Copy != nil:
		return args.Copy.Validate()
	case args.Delete != nil:
		return args.Delete.Validate()
	}
	return nil
}

// Validate validates paging flags
func (p *PageFlags) Validate() error {
	if p.Limit < 0 {
		return fmt.Errorf("limit must be positive")
	}
	if p.CursorID != nil && p.Cursor == nil {
		return fmt.Errorf("--cursor-id requires --cursor")
	}
	return nil
}

// Validate validates search command arguments
func (s *SearchCmd) Validate() error {
	if strings.TrimSpace(s.Text()) == "" {
		return fmt.Errorf("search query is required")
	}
	return s.PageFlags.Validate()
}

// Text is the query as sent to the daemon.
func (s *SearchCmd) Text() string {
	return strings.Join(s.Query, " ")
}

// Validate validates copy command arguments
func (c *CopyCmd) Validate() error {
	if c.ID != nil && c.Text != nil {
		return fmt.Errorf("cannot specify both an entry id and --text")
	}
	if c.ID == nil && c.Text == nil {
		return fmt.Errorf("an entry id or --text is required")
	}
	return nil
}

// Validate validates delete command arguments
func (d *DeleteCmd) Validate() error {
	for _, id := range d.IDs {
		if id <= 0 {
			return fmt.Errorf("invalid entry id %d", id)
		}
	}
	return nil
}
