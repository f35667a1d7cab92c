package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/scribelab/duoscribe/internal/audio"
)

// fakeSession counts acquire/release pairs without touching hardware.
type fakeSession struct {
	acquireErr error

	mu       sync.Mutex
	held     bool
	acquires int
	releases int
}

func (s *fakeSession) Acquire(opts audio.SessionOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.acquireErr != nil {
		return s.acquireErr
	}
	s.held = true
	s.acquires++
	return nil
}

func (s *fakeSession) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held {
		s.held = false
		s.releases++
	}
	return nil
}

func (s *fakeSession) snapshot() (held bool, acquires, releases int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.held, s.acquires, s.releases
}

// fakeSource is a hand-fed audio.Source.
type fakeSource struct {
	format   audio.Format
	startErr error

	mu      sync.Mutex
	out     chan *audio.Buffer
	started bool
}

func newFakeSource(format audio.Format) *fakeSource {
	return &fakeSource{format: format}
}

func (s *fakeSource) Format() audio.Format { return s.format }

func (s *fakeSource) Start() (<-chan *audio.Buffer, error) {
	if s.startErr != nil {
		return nil, s.startErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out = make(chan *audio.Buffer, 64)
	s.started = true
	return s.out, nil
}

func (s *fakeSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.started = false
	close(s.out)
	return nil
}

func (s *fakeSource) push(buf *audio.Buffer) {
	s.mu.Lock()
	out := s.out
	s.mu.Unlock()
	out <- buf
}

func (s *fakeSource) running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// fakeLocales is a scriptable Locales catalog.
type fakeLocales struct {
	supported  bool
	installed  bool
	installErr error

	mu       sync.Mutex
	installs int
}

func (l *fakeLocales) Supported(locale string) bool { return l.supported }

func (l *fakeLocales) Installed(locale string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.installed
}

func (l *fakeLocales) Install(ctx context.Context, locale string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.installs++
	if l.installErr != nil {
		return l.installErr
	}
	l.installed = true
	return nil
}

// eventRecorder collects published events for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) notify(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *eventRecorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *eventRecorder) firstError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.events {
		if ev.Err != nil {
			return ev.Err
		}
	}
	return nil
}

// nativeBuffer is a chunk in a typical capture format.
func nativeBuffer(frames int) *audio.Buffer {
	return &audio.Buffer{
		Format:  audio.Format{SampleRate: 48000, Channels: 1},
		Samples: make([]float32, frames),
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return cond()
}
