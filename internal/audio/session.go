package audio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// ErrSessionNotHeld is returned when a capture is started without an
// acquired session.
var ErrSessionNotHeld = errors.New("audio: session not acquired")

// SessionOptions configure an acquired session.
type SessionOptions struct {
	// DuckOthers lowers other audio output while the session is held.
	// Advisory on desktop backends; recorded for parity with platforms
	// that honor it.
	DuckOthers bool
}

// SessionHandle is the narrow surface pipeline managers need. Acquire
// and Release bracket every capture lifetime; Release must run on every
// exit path and is idempotent.
type SessionHandle interface {
	Acquire(opts SessionOptions) error
	Release() error
}

// Session owns the shared backend audio context. One Session is created
// per process and passed explicitly to whichever pipeline is recording,
// making acquisition ordering visible instead of hiding it in a
// singleton.
type Session struct {
	mu   sync.Mutex
	ctx  *malgo.AllocatedContext
	held bool
	opts SessionOptions
}

// NewSession creates an unacquired session.
func NewSession() *Session {
	return &Session{}
}

// Acquire activates the audio backend. Acquiring an already-held session
// fails: sessions are exclusive to one recording pipeline at a time.
func (s *Session) Acquire(opts SessionOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.held {
		return errors.New("audio: session already acquired")
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("audio: activating session: %w", err)
	}

	s.ctx = ctx
	s.held = true
	s.opts = opts
	return nil
}

// Release deactivates the backend. Safe to call when not held.
func (s *Session) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.held {
		return nil
	}
	s.held = false

	if s.ctx != nil {
		if err := s.ctx.Uninit(); err != nil {
			s.ctx.Free()
			s.ctx = nil
			return fmt.Errorf("audio: deactivating session: %w", err)
		}
		s.ctx.Free()
		s.ctx = nil
	}
	return nil
}

// Held reports whether the session is currently acquired.
func (s *Session) Held() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.held
}

// context returns the backend context for device creation.
func (s *Session) context() (malgo.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.held || s.ctx == nil {
		return malgo.Context{}, ErrSessionNotHeld
	}
	return s.ctx.Context, nil
}
