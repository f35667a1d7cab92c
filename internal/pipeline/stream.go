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

// queueWarnDepth is where the unbounded hand-off queue starts logging.
const queueWarnDepth = 256

// StreamConfig wires a StreamManager's collaborators.
type StreamConfig struct {
	Session   audio.SessionHandle
	Source    audio.Source
	NewEngine func() transcribe.StreamEngine
	Catalog   Locales
	Authority permission.Authority
	Locale    string
	// AbortOnConvertError tears the session down on a mid-stream
	// conversion failure instead of dropping the buffer.
	AbortOnConvertError bool
	Logger              *slog.Logger
	Notify              func(Event)
}

// StreamManager runs the modern pipeline: captured buffers are adapted
// to the engine's format, published into the unbounded queue, and the
// engine's result stream updates the transcript concurrently.
type StreamManager struct {
	cfg        StreamConfig
	sm         stateMachine
	transcript Transcript

	mu  sync.Mutex
	run *streamRun
}

// streamRun is the per-session state torn down on Stop.
type streamRun struct {
	engine      transcribe.StreamEngine
	queue       *Queue
	cancel      context.CancelFunc
	feedDone    chan struct{}
	consumeDone chan struct{}
}

// NewStreamManager validates the wiring and returns a manager in Idle.
func NewStreamManager(cfg StreamConfig) *StreamManager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &StreamManager{cfg: cfg}
}

// State returns the manager's lifecycle state.
func (m *StreamManager) State() State { return m.sm.current() }

// Transcript returns the current transcript snapshot.
func (m *StreamManager) Transcript() (finalized, volatile string) {
	return m.transcript.Snapshot()
}

// Start runs Preparing and, on success, leaves the manager Recording.
// Any failure puts the manager back to Idle; nothing is retried.
func (m *StreamManager) Start(ctx context.Context) error {
	if err := m.sm.begin(); err != nil {
		return err
	}
	m.emit(StatePreparing, nil)

	fail := func(err error) error {
		m.sm.set(StateIdle)
		m.emit(StateIdle, err)
		return err
	}

	granted, err := m.cfg.Authority.RequestMicrophone(ctx)
	if err != nil {
		return fail(fmt.Errorf("%w: microphone: %v", ErrPermissionDenied, err))
	}
	if !granted {
		return fail(fmt.Errorf("%w: microphone", ErrPermissionDenied))
	}

	// The locale gate runs before any tap or session is touched: an
	// unsupported locale is terminal with zero audio side effects.
	if !m.cfg.Catalog.Supported(m.cfg.Locale) {
		return fail(fmt.Errorf("%w: %q", ErrLocaleUnsupported, m.cfg.Locale))
	}
	if !m.cfg.Catalog.Installed(m.cfg.Locale) {
		m.cfg.Logger.Info("model missing, installing", "locale", m.cfg.Locale)
		if err := m.cfg.Catalog.Install(ctx, m.cfg.Locale); err != nil {
			return fail(fmt.Errorf("%w: model install: %v", ErrEngineUnavailable, err))
		}
	}

	m.transcript.Reset()

	if err := m.cfg.Session.Acquire(audio.SessionOptions{DuckOthers: true}); err != nil {
		return fail(fmt.Errorf("%w: %v", ErrAudioSession, err))
	}

	runCtx, cancel := context.WithCancel(ctx)
	engine := m.cfg.NewEngine()
	queue := NewQueue()

	results, err := engine.Start(runCtx, queue.Out())
	if err != nil {
		cancel()
		queue.Close()
		_ = m.cfg.Session.Release()
		return fail(fmt.Errorf("%w: %v", ErrEngineUnavailable, err))
	}

	run := &streamRun{
		engine:      engine,
		queue:       queue,
		cancel:      cancel,
		feedDone:    make(chan struct{}),
		consumeDone: make(chan struct{}),
	}

	go m.consumeResults(results, run)

	bufs, err := m.cfg.Source.Start()
	if err != nil {
		queue.Close()
		cancel()
		_ = m.cfg.Session.Release()
		return fail(fmt.Errorf("%w: %v", ErrAudioStart, err))
	}

	go m.feed(bufs, run, engine.BestFormat())

	m.mu.Lock()
	m.run = run
	m.mu.Unlock()

	m.sm.set(StateRecording)
	m.emit(StateRecording, nil)
	return nil
}

// feed converts each captured buffer and publishes it. The converter is
// owned here: single producer, never shared.
func (m *StreamManager) feed(bufs <-chan *audio.Buffer, run *streamRun, target audio.Format) {
	defer close(run.feedDone)

	conv := audio.NewConverter()
	for buf := range bufs {
		out, err := conv.Convert(buf, target)
		if err != nil {
			if m.cfg.AbortOnConvertError {
				m.cfg.Logger.Error("conversion failed, aborting session", "error", err)
				m.emit(m.sm.current(), err)
				// Run the full stop sequence off this goroutine: it waits
				// on feedDone, which the deferred close releases.
				go func() {
					if serr := m.Stop(context.Background()); serr != nil {
						m.cfg.Logger.Warn("abort teardown", "error", serr)
					}
				}()
				return
			}
			m.cfg.Logger.Warn("conversion failed, dropping buffer", "error", err)
			continue
		}
		run.queue.Push(out)
		if depth := run.queue.Len(); depth > queueWarnDepth {
			m.cfg.Logger.Warn("engine intake falling behind", "queued", depth)
		}
	}
}

// consumeResults folds the engine's result stream into the transcript.
func (m *StreamManager) consumeResults(results <-chan transcribe.Result, run *streamRun) {
	defer close(run.consumeDone)

	for res := range results {
		if res.Err != nil {
			m.cfg.Logger.Warn("engine result error", "error", res.Err)
			m.emit(m.sm.current(), res.Err)
			continue
		}
		m.transcript.Apply(res.Segment)
		m.emit(m.sm.current(), nil)
	}
}

// Stop finalizes the session. Tap removal and session release are
// unconditional; the engine drain error, if any, is reported after
// cleanup has already happened.
func (m *StreamManager) Stop(ctx context.Context) error {
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
		// A concurrent stop, user-initiated or abort-initiated, already
		// owns the teardown.
		return nil
	}

	var firstErr error

	if err := m.cfg.Source.Stop(); err != nil {
		firstErr = err
	}
	<-run.feedDone

	if err := m.cfg.Session.Release(); err != nil && firstErr == nil {
		firstErr = err
	}

	// Producer side closed; the drain only returns once the engine has
	// chewed through everything still queued.
	run.queue.Close()
	if err := run.engine.FinalizeAndDrain(ctx); err != nil && firstErr == nil {
		firstErr = err
	}

	select {
	case <-run.consumeDone:
	case <-ctx.Done():
	}
	run.cancel()

	m.sm.set(StateIdle)
	m.emit(StateIdle, firstErr)
	return firstErr
}

// emit publishes an event with the current transcript snapshot.
func (m *StreamManager) emit(state State, err error) {
	if m.cfg.Notify == nil {
		return
	}
	finalized, volatile := m.transcript.Snapshot()
	m.cfg.Notify(Event{
		Pipeline:  KindStream,
		State:     state,
		Finalized: finalized,
		Volatile:  volatile,
		Err:       err,
	})
}
