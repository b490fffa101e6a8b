// Package watcher runs the writer loop: it polls the clipboard and appends
// every new piece of text to the history.
package watcher

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/yiblet/kopa/internal/clipboard"
)

// Defaults for Options.
const (
	DefaultPollInterval = 300 * time.Millisecond
	DefaultRetryBackoff = time.Second
)

// Appender is the part of store.HistoryStore the loop writes through.
type Appender interface {
	Append(ctx context.Context, content string, observedAt time.Time) (int64, error)
}

// Options configures a Watcher. Zero values take the defaults.
type Options struct {
	PollInterval time.Duration
	RetryBackoff time.Duration
	// Now supplies observation timestamps. Defaults to time.Now.
	Now func() time.Time
}

// Watcher is the single producer of history entries. Only one goroutine may
// call Run.
type Watcher struct {
	store   Appender
	clip    clipboard.Reader
	logger  *slog.Logger
	backoff time.Duration
	now     func() time.Time

	interval atomic.Int64

	// last is the previous observation; nil after a read with no text.
	// It survives a restart of the loop so that a retry does not re-append.
	last []byte
}

// New creates a Watcher reading clip and appending to st.
func New(st Appender, clip clipboard.Reader, opts Options, logger *slog.Logger) *Watcher {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = DefaultRetryBackoff
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}

	w := &Watcher{
		store:   st,
		clip:    clip,
		logger:  logger,
		backoff: opts.RetryBackoff,
		now:     opts.Now,
	}
	w.interval.Store(int64(opts.PollInterval))
	return w
}

// SetInterval changes the poll interval, starting with the next wait.
func (w *Watcher) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	w.interval.Store(int64(d))
}

// Interval returns the current poll interval.
func (w *Watcher) Interval() time.Duration {
	return time.Duration(w.interval.Load())
}

// Run polls until ctx is cancelled. A failed cycle is logged and the loop is
// restarted after the retry backoff; Run itself only returns on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watching clipboard", "interval", w.Interval(), "backoff", w.backoff)

	err := retry.Do(ctx, retry.NewConstant(w.backoff), func(ctx context.Context) error {
		err := w.loop(ctx)
		if err == nil || ctx.Err() != nil {
			return nil
		}
		w.logger.Error("writer loop failed, restarting", "error", err, "backoff", w.backoff)
		return retry.RetryableError(err)
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// loop polls on the interval until a cycle fails or ctx is done.
func (w *Watcher) loop(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		if err := w.Poll(ctx); err != nil {
			return err
		}
		timer.Reset(w.Interval())
	}
}

// Poll runs one cycle: read the clipboard and append it unless it repeats
// the previous observation.
func (w *Watcher) Poll(ctx context.Context) error {
	data, err := w.clip.Read(ctx)
	if errors.Is(err, clipboard.ErrNoText) || (err == nil && len(data) == 0) {
		w.last = nil
		return nil
	}
	if err != nil {
		return err
	}

	if w.last != nil && bytes.Equal(data, w.last) {
		return nil
	}

	content := strings.ToValidUTF8(string(data), "\uFFFD")
	id, err := w.store.Append(ctx, content, w.now())
	if err != nil {
		return err
	}
	w.last = bytes.Clone(data)

	w.logger.Debug("captured clipboard", "id", id, "bytes", len(data))
	return nil
}
