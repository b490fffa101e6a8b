// Package nativeboard talks to the clipboard through golang.design/x/clipboard,
// without spawning helper processes. On Linux it needs an X11 display and
// cgo.
package nativeboard

import (
	"context"
	"sync"

	xclipboard "golang.design/x/clipboard"

	"github.com/yiblet/kopa/internal/clipboard"
)

const name = "native"

var (
	initOnce sync.Once
	initErr  error
)

// NativeClipboard implements clipboard.Clipboard on golang.design/x/clipboard.
type NativeClipboard struct{}

var _ clipboard.Clipboard = (*NativeClipboard)(nil)

// New initializes the clipboard package once per process.
func New() (*NativeClipboard, error) {
	initOnce.Do(func() {
		initErr = xclipboard.Init()
	})
	if initErr != nil {
		return nil, clipboard.NewCapabilityError("init", name, initErr)
	}
	return &NativeClipboard{}, nil
}

// Read returns the clipboard text. The library returns nil for an empty
// clipboard or one holding a non-text format.
func (n *NativeClipboard) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data := xclipboard.Read(xclipboard.FmtText)
	if len(data) == 0 {
		return nil, clipboard.ErrNoText
	}
	return data, nil
}

// Write places text on the clipboard.
func (n *NativeClipboard) Write(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	xclipboard.Write(xclipboard.FmtText, []byte(text))
	return nil
}
