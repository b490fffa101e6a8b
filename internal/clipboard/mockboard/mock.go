// Package mockboard provides a scripted clipboard for testing.
package mockboard

import (
	"context"
	"sync"

	"github.com/yiblet/kopa/internal/clipboard"
)

// Read is one scripted result of MockClipboard.Read.
type Read struct {
	Data []byte
	Err  error
}

// Text is a scripted read returning s.
func Text(s string) Read { return Read{Data: []byte(s)} }

// NoText is a scripted read returning clipboard.ErrNoText.
func NoText() Read { return Read{Err: clipboard.ErrNoText} }

// Fail is a scripted read returning err.
func Fail(err error) Read { return Read{Err: err} }

// MockClipboard implements clipboard.Clipboard for tests.
//
// Reads are served from a queue; once it is drained every read returns
// clipboard.ErrNoText. Writes are recorded and can fail on demand.
type MockClipboard struct {
	mu       sync.Mutex
	reads    []Read
	readN    int
	writes   []string
	writeErr error
}

var _ clipboard.Clipboard = (*MockClipboard)(nil)

// New creates a new MockClipboard with the given reads queued.
func New(reads ...Read) *MockClipboard {
	return &MockClipboard{reads: reads}
}

// Push queues more reads.
func (m *MockClipboard) Push(reads ...Read) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads = append(m.reads, reads...)
}

// Read implements clipboard.Reader.
func (m *MockClipboard) Read(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.readN++
	if len(m.reads) == 0 {
		return nil, clipboard.ErrNoText
	}
	r := m.reads[0]
	m.reads = m.reads[1:]
	return r.Data, r.Err
}

// Write implements clipboard.Writer.
func (m *MockClipboard) Write(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writeErr != nil {
		return m.writeErr
	}
	m.writes = append(m.writes, text)
	return nil
}

// FailWrites makes every later Write return err. Pass nil to stop.
func (m *MockClipboard) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// Writes returns the texts written so far.
func (m *MockClipboard) Writes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.writes...)
}

// Pending reports how many scripted reads are left.
func (m *MockClipboard) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reads)
}

// ReadCount reports how many times Read has been called.
func (m *MockClipboard) ReadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readN
}
