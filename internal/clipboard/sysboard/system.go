// Package sysboard implements clipboard access by shelling out to the
// platform's clipboard commands: wl-paste/wl-copy under Wayland, xclip or
// xsel under X11, pbpaste/pbcopy on macOS.
package sysboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/yiblet/kopa/internal/clipboard"
)

// command is one clipboard tool pair.
type command struct {
	name  string
	read  []string
	write []string
}

var (
	wlClipboard = command{
		name:  "wl-clipboard",
		read:  []string{"wl-paste", "--no-newline", "--type", "text"},
		write: []string{"wl-copy", "--type", "text/plain"},
	}
	xclip = command{
		name:  "xclip",
		read:  []string{"xclip", "-selection", "clipboard", "-o"},
		write: []string{"xclip", "-selection", "clipboard"},
	}
	xsel = command{
		name:  "xsel",
		read:  []string{"xsel", "--clipboard", "--output"},
		write: []string{"xsel", "--clipboard", "--input"},
	}
	pasteboard = command{
		name:  "pbcopy",
		read:  []string{"pbpaste"},
		write: []string{"pbcopy"},
	}
)

// noTextMarkers are stderr fragments the tools print when there is simply
// nothing to paste.
var noTextMarkers = []string{
	"nothing is copied",
	"no selection",
	"no suitable type",
	"clipboard content is not available",
	"target string not available",
	"target utf8_string not available",
	"can't open display",
	"failed to connect to a wayland server",
}

// SystemClipboard implements clipboard.Clipboard using system commands
type SystemClipboard struct {
	cmd command
}

var _ clipboard.Clipboard = (*SystemClipboard)(nil)

// New picks the first clipboard tool available on this system.
func New() (*SystemClipboard, error) {
	cmd, err := detect(runtime.GOOS, os.Getenv, exec.LookPath)
	if err != nil {
		return nil, err
	}
	return &SystemClipboard{cmd: cmd}, nil
}

// detect chooses the command set for goos. Wayland tools are only used when
// a Wayland session is present, since wl-paste fails outright under X11.
func detect(goos string, getenv func(string) string, lookPath func(string) (string, error)) (command, error) {
	var candidates []command
	switch goos {
	case "darwin":
		candidates = []command{pasteboard}
	case "linux", "freebsd", "openbsd", "netbsd":
		if getenv("WAYLAND_DISPLAY") != "" {
			candidates = append(candidates, wlClipboard)
		}
		candidates = append(candidates, xclip, xsel)
	default:
		return command{}, fmt.Errorf("clipboard operations not supported on %s", goos)
	}

	for _, c := range candidates {
		if available(c, lookPath) {
			return c, nil
		}
	}

	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.read[0]
	}
	return command{}, fmt.Errorf("no clipboard tool found (tried %s)", strings.Join(names, ", "))
}

func available(c command, lookPath func(string) (string, error)) bool {
	if _, err := lookPath(c.read[0]); err != nil {
		return false
	}
	if _, err := lookPath(c.write[0]); err != nil {
		return false
	}
	return true
}

// Name returns the tool in use, for logging.
func (s *SystemClipboard) Name() string {
	return s.cmd.name
}

// Read runs the paste command and returns its output. An empty clipboard, or
// a tool error that means the same, is reported as clipboard.ErrNoText.
func (s *SystemClipboard) Read(ctx context.Context) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.cmd.read[0], s.cmd.read[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if isNoText(stderr.String()) {
			return nil, clipboard.ErrNoText
		}
		return nil, clipboard.NewCapabilityError("read", s.cmd.name, withStderr(err, stderr.String()))
	}

	if stdout.Len() == 0 {
		return nil, clipboard.ErrNoText
	}
	return stdout.Bytes(), nil
}

// Write pipes text into the copy command.
func (s *SystemClipboard) Write(ctx context.Context, text string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.cmd.write[0], s.cmd.write[1:]...)
	cmd.Stdin = strings.NewReader(text)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return clipboard.NewCapabilityError("write", s.cmd.name, withStderr(err, stderr.String()))
	}
	return nil
}

func isNoText(stderr string) bool {
	msg := strings.ToLower(stderr)
	for _, marker := range noTextMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func withStderr(err error, stderr string) error {
	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		return err
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("%w: %s", err, stderr)
	}
	return err
}
