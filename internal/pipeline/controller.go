package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/scribelab/duoscribe/internal/transcribe"
)

// History persists finished sessions. Satisfied by store.Store; nil
// disables persistence.
type History interface {
	SaveSession(pipeline, locale, transcript string, startedAt, endedAt time.Time) error
}

// Controller is the top-level coordinator the UI talks to. It holds one
// manager per pipeline, forwards start/stop to the selected one, rejects
// a switch while any session is live, and republishes manager events on
// a single channel.
type Controller struct {
	legacy  *LegacyManager
	stream  *StreamManager
	history History
	locale  string
	logger  *slog.Logger

	events chan Event

	mu        sync.Mutex
	selected  Kind
	startedAt time.Time
	lastText  map[Kind]string
}

// NewController wires the two managers. Their Notify hooks must already
// point at the function returned by Relay.
func NewController(legacy *LegacyManager, stream *StreamManager, history History, locale string, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		legacy:   legacy,
		stream:   stream,
		history:  history,
		locale:   locale,
		logger:   logger,
		events:   make(chan Event, 64),
		selected: KindStream,
		lastText: map[Kind]string{},
	}
}

// Relay returns the Notify hook managers publish through.
func (c *Controller) Relay() func(Event) {
	return func(ev Event) {
		select {
		case c.events <- ev:
		default:
			// UI fell behind; every event carries a full snapshot, so
			// dropping an old one loses nothing durable.
		}
	}
}

// Events is the stream the UI consumes.
func (c *Controller) Events() <-chan Event { return c.events }

// Selected returns the pipeline start/stop currently target.
func (c *Controller) Selected() Kind {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// Select switches the active pipeline. Rejected while a session is live.
func (c *Controller) Select(kind Kind) error {
	if kind != KindLegacy && kind != KindStream {
		return fmt.Errorf("pipeline: unknown pipeline %q", kind)
	}
	if c.active() {
		return ErrSessionActive
	}
	c.mu.Lock()
	c.selected = kind
	c.mu.Unlock()
	return nil
}

// Toggle flips between the two pipelines.
func (c *Controller) Toggle() error {
	if c.Selected() == KindStream {
		return c.Select(KindLegacy)
	}
	return c.Select(KindStream)
}

// active reports whether either manager has a session underway.
func (c *Controller) active() bool {
	return c.legacy.State() != StateIdle || c.stream.State() != StateIdle
}

// Recording reports whether the selected manager is mid-session.
func (c *Controller) Recording() bool {
	return c.active()
}

// Start begins a session on the selected pipeline. Only one session may
// be live across both pipelines.
func (c *Controller) Start(ctx context.Context) error {
	if c.active() {
		return ErrSessionActive
	}
	c.mu.Lock()
	c.startedAt = time.Now()
	kind := c.selected
	c.mu.Unlock()

	if kind == KindLegacy {
		return c.legacy.Start(ctx)
	}
	return c.stream.Start(ctx)
}

// Stop finalizes the live session, records its transcript, and persists
// it when a history sink is configured.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	kind := c.selected
	startedAt := c.startedAt
	c.mu.Unlock()

	var err error
	var finalized string
	switch kind {
	case KindLegacy:
		err = c.legacy.Stop(ctx)
		finalized, _ = c.legacy.Transcript()
	default:
		err = c.stream.Stop(ctx)
		finalized, _ = c.stream.Transcript()
	}

	c.mu.Lock()
	c.lastText[kind] = finalized
	c.mu.Unlock()

	if c.history != nil && finalized != "" {
		if herr := c.history.SaveSession(string(kind), c.locale, finalized, startedAt, time.Now()); herr != nil {
			c.logger.Warn("saving session failed", "error", herr)
		}
	}
	return err
}

// LastTranscript returns the finalized text of the most recent session
// on the given pipeline, or the empty string if none has run yet.
func (c *Controller) LastTranscript(kind Kind) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastText[kind]
}

// Compare reports the word error rate between the most recent legacy
// and stream transcripts, with the legacy text as reference. ok is
// false until both pipelines have produced text this run.
func (c *Controller) Compare() (transcribe.WERResult, bool) {
	c.mu.Lock()
	ref, hyp := c.lastText[KindLegacy], c.lastText[KindStream]
	c.mu.Unlock()
	if ref == "" || hyp == "" {
		return transcribe.WERResult{}, false
	}
	return transcribe.ComputeWER(ref, hyp), true
}
