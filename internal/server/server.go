// Package server serves the history over a unix socket: one goroutine per
// connection, one request and one response per connection.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/yiblet/kopa/internal/protocol"
)

// Server accepts connections on a unix socket and hands each request to a
// Router.
type Server struct {
	socketPath string
	router     *Router
	logger     *slog.Logger

	wg sync.WaitGroup
}

// New creates a server for socketPath.
func New(socketPath string, router *Router, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		socketPath: socketPath,
		router:     router,
		logger:     logger,
	}
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Listen binds the socket. A leftover socket file from a previous run is
// removed, unless something is still answering on it.
func (s *Server) Listen() (net.Listener, error) {
	if _, err := os.Stat(s.socketPath); err == nil {
		if conn, err := net.DialTimeout("unix", s.socketPath, 200*time.Millisecond); err == nil {
			conn.Close()
			return nil, fmt.Errorf("another daemon is listening on %s", s.socketPath)
		}
		if err := os.Remove(s.socketPath); err != nil {
			return nil, fmt.Errorf("failed to remove stale socket %s: %w", s.socketPath, err)
		}
	}

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to bind socket %s: %w", s.socketPath, err)
	}
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		ln.Close()
		return nil, fmt.Errorf("failed to restrict socket permissions: %w", err)
	}
	return ln, nil
}

// ListenAndServe binds the socket and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then closes ln,
// waits for in-flight connections and removes the socket file.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("listening", "socket", s.socketPath)

	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()
	defer os.Remove(s.socketPath)
	defer s.wg.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("accept failed", "error", err)
			time.Sleep(50 * time.Millisecond)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

// handleConn reads one request, answers it and closes the connection.
// Failures end this connection only.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("connection handler panicked", "panic", p)
		}
	}()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	var resp protocol.Response
	req, err := protocol.ReadRequest(bufio.NewReader(conn))
	switch {
	case err == nil:
		resp = s.router.Handle(ctx, req)
	case errors.Is(err, protocol.ErrEmptyRequest):
		resp = ErrorResponse(err)
	default:
		var decodeErr *protocol.DecodeError
		if !errors.As(err, &decodeErr) {
			s.logger.Warn("connection read failed", "error", err)
			return
		}
		s.logger.Warn("malformed request", "error", err)
		resp = ErrorResponse(err)
	}

	if err := protocol.WriteResponse(conn, resp); err != nil {
		s.logger.Warn("failed to write response", "error", err)
	}
}
