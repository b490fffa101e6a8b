// Package datadir resolves the directory holding the history database and
// the daemon socket.
package datadir

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const (
	AppName    = "kopa"
	DBFile     = "kopa.db"
	SocketFile = "kopa.sock"
)

// Dir is the resolved data directory.
type Dir struct {
	root string
}

// DefaultRoot returns the platform data directory for kopa:
// $XDG_DATA_HOME/kopa, ~/.local/share/kopa, or on macOS
// ~/Library/Application Support/kopa.
func DefaultRoot() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" && filepath.IsAbs(dir) {
		return filepath.Join(dir, AppName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(homeDir, "Library", "Application Support", AppName), nil
	}
	return filepath.Join(homeDir, ".local", "share", AppName), nil
}

// New resolves and creates the data directory.
// If path is empty, uses DefaultRoot.
// If path is absolute, uses it directly.
// If path is relative, treats it as a subdirectory of DefaultRoot.
func New(path string) (*Dir, error) {
	var root string

	if path != "" && filepath.IsAbs(path) {
		root = path
	} else {
		base, err := DefaultRoot()
		if err != nil {
			return nil, err
		}
		root = filepath.Join(base, path)
	}

	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", root, err)
	}

	return &Dir{root: root}, nil
}

// NewWithRoot wraps root without touching the filesystem.
func NewWithRoot(root string) *Dir {
	return &Dir{root: root}
}

// Root returns the directory path.
func (d *Dir) Root() string {
	return d.root
}

// DBPath returns the database file path.
func (d *Dir) DBPath() string {
	return filepath.Join(d.root, DBFile)
}

// SocketPath returns the daemon socket path.
func (d *Dir) SocketPath() string {
	return filepath.Join(d.root, SocketFile)
}
