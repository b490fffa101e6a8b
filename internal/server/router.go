package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/yiblet/kopa/internal/clipboard"
	"github.com/yiblet/kopa/internal/protocol"
	"github.com/yiblet/kopa/internal/store"
)

// Router answers one decoded request. It holds no per-request state and is
// safe for concurrent use.
type Router struct {
	store  store.HistoryStore
	clip   clipboard.Writer
	logger *slog.Logger
}

// NewRouter creates a router over st that copies through clip.
func NewRouter(st store.HistoryStore, clip clipboard.Writer, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{store: st, clip: clip, logger: logger}
}

// Handle dispatches req and always returns a response; failures become
// protocol.Error. A panic while answering is recovered and reported the same
// way so it only ends this request.
func (r *Router) Handle(ctx context.Context, req protocol.Request) (resp protocol.Response) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("request panicked", "request", fmt.Sprintf("%T", req), "panic", p, "stack", string(debug.Stack()))
			resp = protocol.Error{Message: fmt.Sprintf("Internal error: %v", p)}
		}
	}()

	resp, err := r.dispatch(ctx, req)
	if err != nil {
		r.logger.Warn("request failed", "type", req.RequestType(), "error", err)
		return ErrorResponse(err)
	}
	return resp
}

func (r *Router) dispatch(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	switch req := req.(type) {
	case protocol.ListEntries:
		cursor, limit := req.Page()
		page, err := r.store.List(ctx, cursor, limit)
		if err != nil {
			return nil, err
		}
		return protocol.NewEntries(page), nil

	case protocol.SearchEntries:
		cursor, limit := req.Page()
		page, err := r.store.Search(ctx, req.Query, cursor, limit)
		if err != nil {
			return nil, err
		}
		return protocol.NewEntries(page), nil

	case protocol.CopyToClipboard:
		content, err := r.store.GetContent(ctx, req.EntryID)
		if err != nil {
			return nil, err
		}
		if err := r.clip.Write(ctx, content); err != nil {
			return nil, err
		}
		r.logger.Debug("copied entry", "id", req.EntryID, "bytes", len(content))
		return protocol.Success{}, nil

	case protocol.CopyTextToClipboard:
		if err := r.clip.Write(ctx, req.Content); err != nil {
			return nil, err
		}
		return protocol.Success{}, nil

	default:
		return nil, fmt.Errorf("unsupported request %T", req)
	}
}

// ErrorResponse turns err into the message a client sees.
func ErrorResponse(err error) protocol.Error {
	var (
		decodeErr  *protocol.DecodeError
		storageErr *store.StorageError
		clipErr    *clipboard.CapabilityError
	)
	switch {
	case errors.Is(err, protocol.ErrEmptyRequest):
		return protocol.Error{Message: "Empty request"}
	case errors.Is(err, store.ErrNotFound):
		return protocol.Error{Message: "Entry not found"}
	case errors.As(err, &decodeErr):
		return protocol.Error{Message: "Invalid request payload: " + decodeErr.Err.Error()}
	case errors.As(err, &storageErr):
		return protocol.Error{Message: "Storage error: " + storageErr.Err.Error()}
	case errors.As(err, &clipErr):
		return protocol.Error{Message: "Clipboard error: " + clipErr.Error()}
	default:
		return protocol.Error{Message: err.Error()}
	}
}
