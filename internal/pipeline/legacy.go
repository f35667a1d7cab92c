package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/scribelab/duoscribe/internal/audio"
	"github.com/scribelab/duoscribe/internal/permission"
	"github.com/scribelab/duoscribe/internal/transcribe"
)

// LegacyConfig wires a LegacyManager's collaborators.
type LegacyConfig struct {
	Session    audio.SessionHandle
	Source     audio.Source
	Recognizer transcribe.Recognizer
	Authority  permission.Authority
	Locale     string
	Logger     *slog.Logger
	Notify     func(Event)
}

// LegacyManager runs the callback-style pipeline: captured buffers go to
// the recognizer untouched, in the capture's native format, and the
// request's result stream updates the transcript.
type LegacyManager struct {
	cfg        LegacyConfig
	sm         stateMachine
	transcript Transcript

	mu  sync.Mutex
	run *legacyRun
}

type legacyRun struct {
	request     transcribe.Request
	cancel      context.CancelFunc
	feedDone    chan struct{}
	consumeDone chan struct{}
}

// NewLegacyManager returns a manager in Idle.
func NewLegacyManager(cfg LegacyConfig) *LegacyManager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &LegacyManager{cfg: cfg}
}

// State returns the manager's lifecycle state.
func (m *LegacyManager) State() State { return m.sm.current() }

// Transcript returns the current transcript snapshot.
func (m *LegacyManager) Transcript() (finalized, volatile string) {
	return m.transcript.Snapshot()
}

// Start requests permissions, opens a recognition request, and begins
// feeding it. Failures abort the session and return the manager to Idle.
func (m *LegacyManager) Start(ctx context.Context) error {
	if err := m.sm.begin(); err != nil {
		return err
	}
	m.emit(StatePreparing, nil)

	fail := func(err error) error {
		m.sm.set(StateIdle)
		m.emit(StateIdle, err)
		return err
	}

	// The legacy surface needs both grants: microphone for the tap and
	// recognition for the service itself.
	grants := []struct {
		name    string
		request func(context.Context) (bool, error)
	}{
		{"microphone", m.cfg.Authority.RequestMicrophone},
		{"recognition", m.cfg.Authority.RequestRecognition},
	}
	for _, g := range grants {
		granted, err := g.request(ctx)
		if err != nil {
			return fail(fmt.Errorf("%w: %s: %v", ErrPermissionDenied, g.name, err))
		}
		if !granted {
			return fail(fmt.Errorf("%w: %s", ErrPermissionDenied, g.name))
		}
	}

	m.transcript.Reset()

	if err := m.cfg.Session.Acquire(audio.SessionOptions{DuckOthers: true}); err != nil {
		return fail(fmt.Errorf("%w: %v", ErrAudioSession, err))
	}

	runCtx, cancel := context.WithCancel(ctx)
	request, err := m.cfg.Recognizer.Begin(runCtx, m.cfg.Locale)
	if err != nil {
		cancel()
		_ = m.cfg.Session.Release()
		return fail(fmt.Errorf("%w: %v", ErrEngineUnavailable, err))
	}

	run := &legacyRun{
		request:     request,
		cancel:      cancel,
		feedDone:    make(chan struct{}),
		consumeDone: make(chan struct{}),
	}

	go m.consumeResults(request.Results(), run)

	bufs, err := m.cfg.Source.Start()
	if err != nil {
		request.Cancel()
		cancel()
		_ = m.cfg.Session.Release()
		return fail(fmt.Errorf("%w: %v", ErrAudioStart, err))
	}

	go m.feed(bufs, run)

	m.mu.Lock()
	m.run = run
	m.mu.Unlock()

	m.sm.set(StateRecording)
	m.emit(StateRecording, nil)
	return nil
}

// feed hands every captured buffer to the outstanding request. No
// conversion: the legacy surface accepts the native hardware format.
func (m *LegacyManager) feed(bufs <-chan *audio.Buffer, run *legacyRun) {
	defer close(run.feedDone)
	for buf := range bufs {
		if err := run.request.Append(buf); err != nil {
			// The request has ended or been cancelled under us; stop
			// feeding, the stop sequence drains the rest.
			m.cfg.Logger.Debug("append after request finished", "error", err)
			return
		}
	}
}

// consumeResults marshals recognizer callbacks, which arrive on an
// arbitrary goroutine, into transcript updates.
func (m *LegacyManager) consumeResults(results <-chan transcribe.Result, run *legacyRun) {
	defer close(run.consumeDone)
	for res := range results {
		if res.Err != nil {
			m.cfg.Logger.Warn("recognition error", "error", res.Err)
			m.emit(m.sm.current(), res.Err)
			continue
		}
		m.transcript.Apply(res.Segment)
		m.emit(m.sm.current(), nil)
	}
}

// Stop tears the session down in the required order: cancel the task,
// end the audio input (a no-op on a cancelled request, but never
// skipped), deactivate the session, remove the tap.
func (m *LegacyManager) Stop(ctx context.Context) error {
	if m.sm.current() != StateRecording {
		return nil
	}
	m.sm.set(StateFinalizing)
	m.emit(StateFinalizing, nil)

	m.mu.Lock()
	run := m.run
	m.run = nil
	m.mu.Unlock()
	if run == nil {
		return nil
	}

	run.request.Cancel()
	endErr := run.request.End()

	var firstErr error
	if err := m.cfg.Session.Release(); err != nil {
		firstErr = err
	}
	if err := m.cfg.Source.Stop(); err != nil && firstErr == nil {
		firstErr = err
	}
	<-run.feedDone

	select {
	case <-run.consumeDone:
	case <-ctx.Done():
	}
	run.cancel()

	if firstErr == nil && endErr != nil {
		firstErr = endErr
	}

	m.sm.set(StateIdle)
	m.emit(StateIdle, firstErr)
	return firstErr
}

// emit publishes an event with the current transcript snapshot.
func (m *LegacyManager) emit(state State, err error) {
	if m.cfg.Notify == nil {
		return
	}
	finalized, volatile := m.transcript.Snapshot()
	m.cfg.Notify(Event{
		Pipeline:  KindLegacy,
		State:     state,
		Finalized: finalized,
		Volatile:  volatile,
		Err:       err,
	})
}
