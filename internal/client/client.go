// Package client talks to a running daemon over its unix socket.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/yiblet/kopa/internal/protocol"
	"github.com/yiblet/kopa/internal/store"
)

// ErrDaemonNotRunning is returned when nothing is listening on the socket.
var ErrDaemonNotRunning = errors.New("daemon is not running")

// RemoteError is an Error response from the daemon.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// Client sends requests to the daemon. Each call opens its own connection.
type Client struct {
	socketPath  string
	dialTimeout time.Duration
}

// New creates a client for the daemon listening on socketPath.
func New(socketPath string) *Client {
	return &Client{socketPath: socketPath, dialTimeout: 2 * time.Second}
}

// Do sends req and returns the daemon's response. An Error response is
// returned as a response, not as an error.
func (c *Client) Do(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	d := net.Dialer{Timeout: c.dialTimeout}
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Op == "dial" {
			return nil, fmt.Errorf("%w (socket %s): %v", ErrDaemonNotRunning, c.socketPath, err)
		}
		return nil, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := protocol.WriteRequest(conn, req); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	resp, err := protocol.ReadResponse(bufio.NewReader(conn))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp, nil
}

func (c *Client) entries(ctx context.Context, req protocol.Request) (*store.Page, error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	switch resp := resp.(type) {
	case protocol.Entries:
		return &store.Page{Entries: resp.Entries, Next: resp.Next()}, nil
	case protocol.Error:
		return nil, &RemoteError{Message: resp.Message}
	default:
		return nil, fmt.Errorf("unexpected %s response", resp.ResponseType())
	}
}

func (c *Client) success(ctx context.Context, req protocol.Request) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	switch resp := resp.(type) {
	case protocol.Success:
		return nil
	case protocol.Error:
		return &RemoteError{Message: resp.Message}
	default:
		return fmt.Errorf("unexpected %s response", resp.ResponseType())
	}
}

func limitPtr(limit int) *int {
	if limit <= 0 {
		return nil
	}
	return &limit
}

// List fetches one page of the history. A limit of zero uses the daemon's
// default page size.
func (c *Client) List(ctx context.Context, cursor *store.Cursor, limit int) (*store.Page, error) {
	at, id := protocol.CursorFields(cursor)
	return c.entries(ctx, protocol.ListEntries{Cursor: at, CursorID: id, Limit: limitPtr(limit)})
}

// Search fetches one page of entries matching query.
func (c *Client) Search(ctx context.Context, query string, cursor *store.Cursor, limit int) (*store.Page, error) {
	at, id := protocol.CursorFields(cursor)
	return c.entries(ctx, protocol.SearchEntries{Query: query, Cursor: at, CursorID: id, Limit: limitPtr(limit)})
}

// Copy asks the daemon to put entry id on the clipboard.
func (c *Client) Copy(ctx context.Context, id int64) error {
	return c.success(ctx, protocol.CopyToClipboard{EntryID: id})
}

// CopyText asks the daemon to put text on the clipboard.
func (c *Client) CopyText(ctx context.Context, text string) error {
	return c.success(ctx, protocol.CopyTextToClipboard{Content: text})
}
