package transcribe

import (
	"context"
	"errors"
	"sync"

	"github.com/scribelab/duoscribe/internal/audio"
)

// MockDecoder returns canned text without a model.
type MockDecoder struct {
	Text string
	Err  error
}

func (m *MockDecoder) Process(samples []float32) (string, error) {
	return m.Text, m.Err
}

func (m *MockDecoder) Close() error { return nil }

// MockEngine is a scriptable StreamEngine for pipeline tests. It records
// every buffer it consumes; tests push results with Emit and script the
// drain with DrainResults.
type MockEngine struct {
	Format       audio.Format
	DrainResults []Result
	DrainErr     error
	StartErr     error

	mu       sync.Mutex
	received []*audio.Buffer
	results  chan Result
	done     chan struct{}
}

// NewMockEngine returns a mock accepting the whisper decode format.
func NewMockEngine() *MockEngine {
	return &MockEngine{Format: EngineFormat}
}

func (m *MockEngine) BestFormat() audio.Format { return m.Format }

func (m *MockEngine) Start(ctx context.Context, in <-chan *audio.Buffer) (<-chan Result, error) {
	if m.StartErr != nil {
		return nil, m.StartErr
	}

	m.mu.Lock()
	m.results = make(chan Result, 64)
	m.done = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		defer close(m.results)
		for buf := range in {
			m.mu.Lock()
			m.received = append(m.received, buf)
			m.mu.Unlock()
		}
		for _, res := range m.DrainResults {
			m.results <- res
		}
	}()
	return m.results, nil
}

func (m *MockEngine) FinalizeAndDrain(ctx context.Context) error {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()
	if done == nil {
		return errors.New("transcribe: mock engine not started")
	}
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return m.DrainErr
}

// Emit pushes a result into the live stream.
func (m *MockEngine) Emit(res Result) {
	m.mu.Lock()
	ch := m.results
	m.mu.Unlock()
	ch <- res
}

// Received returns the buffers consumed so far.
func (m *MockEngine) Received() []*audio.Buffer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*audio.Buffer(nil), m.received...)
}

// MockRecognizer is a scriptable legacy Recognizer. Calls made on its
// request are recorded in order for stop-sequence assertions.
type MockRecognizer struct {
	BeginErr error

	mu     sync.Mutex
	req    *MockRequest
	locale string
	calls  []string
}

func NewMockRecognizer() *MockRecognizer {
	return &MockRecognizer{}
}

func (m *MockRecognizer) Begin(ctx context.Context, locale string) (Request, error) {
	if m.BeginErr != nil {
		return nil, m.BeginErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locale = locale
	m.req = &MockRequest{owner: m, results: make(chan Result, 64)}
	return m.req, nil
}

// Locale returns the locale the most recent Begin was given.
func (m *MockRecognizer) Locale() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locale
}

// Request returns the most recent request, for scripting results.
func (m *MockRecognizer) Request() *MockRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.req
}

// Calls returns the recorded request call sequence.
func (m *MockRecognizer) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *MockRecognizer) record(name string) {
	m.mu.Lock()
	m.calls = append(m.calls, name)
	m.mu.Unlock()
}

// MockRequest records interactions and lets tests emit results.
type MockRequest struct {
	owner   *MockRecognizer
	results chan Result

	mu       sync.Mutex
	buffers  []*audio.Buffer
	finished bool
}

func (r *MockRequest) Append(buf *audio.Buffer) error {
	r.owner.record("append")
	r.mu.Lock()
	r.buffers = append(r.buffers, buf)
	r.mu.Unlock()
	return nil
}

func (r *MockRequest) Results() <-chan Result { return r.results }

func (r *MockRequest) End() error {
	r.owner.record("end")
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.finished {
		r.finished = true
		close(r.results)
	}
	return nil
}

func (r *MockRequest) Cancel() {
	r.owner.record("cancel")
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.finished {
		r.finished = true
		close(r.results)
	}
}

// Emit pushes a result into the request's stream.
func (r *MockRequest) Emit(res Result) {
	r.results <- res
}

// Buffers returns the appended buffers.
func (r *MockRequest) Buffers() []*audio.Buffer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*audio.Buffer(nil), r.buffers...)
}
