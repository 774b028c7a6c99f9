package testutil

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"codeberg.org/snonux/pas2cs/internal/transpile"
)

// Call is one Submit waiting for its reply.
type Call struct {
	Source string
	reply  chan reply
}

type reply struct {
	result transpile.Result
	err    error
}

// Respond completes the call.
func (c *Call) Respond(result transpile.Result, err error) {
	c.reply <- reply{result: result, err: err}
}

// Succeed completes the call with a reported success.
func (c *Call) Succeed(text string) {
	c.Respond(transpile.Result{Text: text, Succeeded: true}, nil)
}

// Fail completes the call with a reported failure.
func (c *Call) Fail(text string) {
	c.Respond(transpile.Result{Text: text, Succeeded: false}, nil)
}

// MockTranspiler is a transpile.Client. With Fn set it answers
// immediately; otherwise every Submit blocks until the test answers the
// Call returned by Next.
type MockTranspiler struct {
	Fn func(source string) (transpile.Result, error)

	mu      sync.Mutex
	sources []string
	started chan *Call
}

// NewMockTranspiler creates a MockTranspiler in blocking mode.
func NewMockTranspiler() *MockTranspiler {
	return &MockTranspiler{started: make(chan *Call, 16)}
}

// Submit implements transpile.Client.
func (m *MockTranspiler) Submit(ctx context.Context, source string) (transpile.Result, error) {
	m.mu.Lock()
	m.sources = append(m.sources, source)
	fn := m.Fn
	m.mu.Unlock()

	if fn != nil {
		return fn(source)
	}

	call := &Call{Source: source, reply: make(chan reply, 1)}
	m.started <- call
	select {
	case r := <-call.reply:
		return r.result, r.err
	case <-ctx.Done():
		return transpile.Result{}, &transpile.TransportError{Backend: "mock", Err: ctx.Err()}
	}
}

// Next waits for the next blocked Submit.
func (m *MockTranspiler) Next(t *testing.T) *Call {
	t.Helper()
	select {
	case call := <-m.started:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("no transpile request was submitted")
		return nil
	}
}

// Sources returns the source text of every Submit so far.
func (m *MockTranspiler) Sources() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sources...)
}

// SavedFile is one recorded export.
type SavedFile struct {
	Filename string
	Content  string
}

// MockExporter records exports instead of writing files.
type MockExporter struct {
	Err error

	mu    sync.Mutex
	saved []SavedFile
}

// Save implements exporter.Exporter.
func (m *MockExporter) Save(filename, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.saved = append(m.saved, SavedFile{Filename: filename, Content: content})
	return nil
}

// Saved returns the recorded exports.
func (m *MockExporter) Saved() []SavedFile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SavedFile(nil), m.saved...)
}

// BlockingHandle is an importer.Handle whose read blocks until Release.
type BlockingHandle struct {
	FileName string
	Content  string
	Err      error

	once    sync.Once
	release chan struct{}
}

// NewBlockingHandle creates a handle that yields content once released.
func NewBlockingHandle(name, content string) *BlockingHandle {
	return &BlockingHandle{FileName: name, Content: content, release: make(chan struct{})}
}

// Name implements importer.Handle.
func (h *BlockingHandle) Name() string { return h.FileName }

// Open implements importer.Handle.
func (h *BlockingHandle) Open() (io.ReadCloser, error) {
	<-h.release
	if h.Err != nil {
		return nil, h.Err
	}
	return io.NopCloser(strings.NewReader(h.Content)), nil
}

// Release lets the pending read finish.
func (h *BlockingHandle) Release() {
	h.once.Do(func() { close(h.release) })
}

// ErrUnreadable is the error FailingHandle returns.
var ErrUnreadable = errors.New("permission denied")

// FailingHandle is an importer.Handle that cannot be opened.
type FailingHandle string

// Name implements importer.Handle.
func (h FailingHandle) Name() string { return string(h) }

// Open implements importer.Handle.
func (h FailingHandle) Open() (io.ReadCloser, error) { return nil, ErrUnreadable }
