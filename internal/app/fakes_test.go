package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/yourusername/videold-go/internal/domain"
)

// fakeBackend implements domain.Backend for testing
type fakeBackend struct {
	mu sync.Mutex

	metadata func(ctx context.Context, locator string) (*domain.Resource, error)
	stream   func(target string) (*domain.TransferStream, error) // target is the locator, or "batch"
	handle   *domain.TransferHandle

	fetches   []string
	transfers []domain.TransferRequest
	batches   []domain.BatchRequest
	handles   []domain.TransferRequest
	calls     []string
}

func (b *fakeBackend) record(call string) {
	b.calls = append(b.calls, call)
}

func (b *fakeBackend) FetchMetadata(ctx context.Context, locator string) (*domain.Resource, error) {
	b.mu.Lock()
	b.fetches = append(b.fetches, locator)
	b.record("fetch")
	fn := b.metadata
	b.mu.Unlock()
	return fn(ctx, locator)
}

func (b *fakeBackend) RequestHandle(ctx context.Context, req domain.TransferRequest) (*domain.TransferHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handles = append(b.handles, req)
	b.record("handle")
	if b.handle == nil {
		return nil, errors.New("no handle")
	}
	return b.handle, nil
}

func (b *fakeBackend) OpenTransfer(ctx context.Context, req domain.TransferRequest) (*domain.TransferStream, error) {
	b.mu.Lock()
	b.transfers = append(b.transfers, req)
	b.record("open:" + req.TransferID)
	fn := b.stream
	b.mu.Unlock()
	return fn(req.Locator)
}

func (b *fakeBackend) OpenBatch(ctx context.Context, req domain.BatchRequest) (*domain.TransferStream, error) {
	b.mu.Lock()
	b.batches = append(b.batches, req)
	b.record("batch:" + req.TransferID)
	fn := b.stream
	b.mu.Unlock()
	return fn("batch")
}

func (b *fakeBackend) FetchThumbnail(ctx context.Context, thumbnail string) ([]byte, string, error) {
	return []byte("img"), "image/jpeg", nil
}

func (b *fakeBackend) setStream(fn func(target string) (*domain.TransferStream, error)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stream = fn
}

func (b *fakeBackend) fetchCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.fetches)
}

func (b *fakeBackend) transferRequests() []domain.TransferRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.TransferRequest(nil), b.transfers...)
}

func (b *fakeBackend) batchRequests() []domain.BatchRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.BatchRequest(nil), b.batches...)
}

func (b *fakeBackend) callLog() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func staticStream(body string) func(string) (*domain.TransferStream, error) {
	return func(string) (*domain.TransferStream, error) {
		return &domain.TransferStream{
			Body:          io.NopCloser(strings.NewReader(body)),
			ContentLength: int64(len(body)),
		}, nil
	}
}

func pipeStream(r *io.PipeReader, length int64) func(string) (*domain.TransferStream, error) {
	return func(string) (*domain.TransferStream, error) {
		return &domain.TransferStream{Body: r, ContentLength: length}, nil
	}
}

func failingStream(err error) func(string) (*domain.TransferStream, error) {
	return func(string) (*domain.TransferStream, error) {
		return nil, err
	}
}

// memorySaver implements domain.Saver for testing
type memorySaver struct {
	mu        sync.Mutex
	saved     map[string][]byte
	discarded []string
}

func newMemorySaver() *memorySaver {
	return &memorySaver{saved: make(map[string][]byte)}
}

func (s *memorySaver) Begin(filename string) (domain.SaveSink, error) {
	return &memorySink{saver: s, name: filename}, nil
}

func (s *memorySaver) file(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.saved[name]
	return data, ok
}

func (s *memorySaver) discards() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.discarded...)
}

type memorySink struct {
	saver *memorySaver
	name  string
	buf   bytes.Buffer
}

func (m *memorySink) Write(p []byte) (int, error) {
	return m.buf.Write(p)
}

func (m *memorySink) Commit() (string, error) {
	m.saver.mu.Lock()
	defer m.saver.mu.Unlock()
	m.saver.saved[m.name] = m.buf.Bytes()
	return "/downloads/" + m.name, nil
}

func (m *memorySink) Discard() error {
	m.saver.mu.Lock()
	defer m.saver.mu.Unlock()
	m.saver.discarded = append(m.saver.discarded, m.name)
	return nil
}

// fakeChannel implements domain.ProgressChannel for testing
type fakeChannel struct {
	mu       sync.Mutex
	joins    []string
	handlers map[string]domain.ProgressHandler
	hooks    []func()
	backend  *fakeBackend
}

func newFakeChannel(backend *fakeBackend) *fakeChannel {
	return &fakeChannel{handlers: make(map[string]domain.ProgressHandler), backend: backend}
}

func (c *fakeChannel) Join(transferID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.joins = append(c.joins, transferID)
	if c.backend != nil {
		c.backend.mu.Lock()
		c.backend.record("join:" + transferID)
		c.backend.mu.Unlock()
	}
	return nil
}

func (c *fakeChannel) Subscribe(transferID string, handler domain.ProgressHandler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[transferID] = handler
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.handlers, transferID)
	}
}

func (c *fakeChannel) OnConnect(hook func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, hook)
}

func (c *fakeChannel) reconnect() {
	c.mu.Lock()
	hooks := append([]func(){}, c.hooks...)
	c.mu.Unlock()
	for _, h := range hooks {
		h()
	}
}

func (c *fakeChannel) emit(ev domain.ProgressEvent) bool {
	c.mu.Lock()
	h, ok := c.handlers[ev.TransferID]
	c.mu.Unlock()
	if ok {
		h(ev)
	}
	return ok
}

func (c *fakeChannel) joined() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.joins...)
}

func (c *fakeChannel) subscribed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handlers)
}

// fakeNotifier implements Notifier for testing
type fakeNotifier struct {
	mu        sync.Mutex
	completed []string
	failed    []string
	errors    []error
}

func (n *fakeNotifier) NotifyTransferCompleted(session *domain.TransferSession) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, session.Filename)
}

func (n *fakeNotifier) NotifyTransferFailed(session *domain.TransferSession) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, session.ErrorMessage)
}

func (n *fakeNotifier) NotifyError(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, err)
}

func (n *fakeNotifier) counts() (completed, failed, errs int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.completed), len(n.failed), len(n.errors)
}
