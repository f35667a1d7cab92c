package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/scribelab/duoscribe/internal/audio"
	"github.com/scribelab/duoscribe/internal/transcribe"
)

// fakeHistory records persisted sessions.
type fakeHistory struct {
	saveErr error

	mu    sync.Mutex
	saved []savedSession
}

type savedSession struct {
	pipeline   string
	locale     string
	transcript string
}

func (h *fakeHistory) SaveSession(pipeline, locale, transcript string, startedAt, endedAt time.Time) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.saveErr != nil {
		return h.saveErr
	}
	h.saved = append(h.saved, savedSession{pipeline: pipeline, locale: locale, transcript: transcript})
	return nil
}

func (h *fakeHistory) all() []savedSession {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]savedSession(nil), h.saved...)
}

// controllerFixture wires a Controller over fully faked managers.
type controllerFixture struct {
	ctrl       *Controller
	engine     *transcribe.MockEngine
	recognizer *transcribe.MockRecognizer
	source     *fakeSource
	history    *fakeHistory
}

func newControllerFixture() *controllerFixture {
	f := &controllerFixture{
		engine:     transcribe.NewMockEngine(),
		recognizer: transcribe.NewMockRecognizer(),
		source:     newFakeSource(audio.Format{SampleRate: 48000, Channels: 1}),
		history:    &fakeHistory{},
	}

	var ctrl *Controller
	notify := func(ev Event) { ctrl.Relay()(ev) }

	legacy := NewLegacyManager(LegacyConfig{
		Session:    &fakeSession{},
		Source:     f.source,
		Recognizer: f.recognizer,
		Authority:  allowAll{},
		Notify:     notify,
	})
	stream := NewStreamManager(StreamConfig{
		Session:   &fakeSession{},
		Source:    f.source,
		NewEngine: func() transcribe.StreamEngine { return f.engine },
		Catalog:   &fakeLocales{supported: true, installed: true},
		Authority: allowAll{},
		Locale:    "en-US",
		Notify:    notify,
	})
	ctrl = NewController(legacy, stream, f.history, "en-US", nil)
	f.ctrl = ctrl
	return f
}

func TestControllerSelectAndToggle(t *testing.T) {
	f := newControllerFixture()

	if f.ctrl.Selected() != KindStream {
		t.Errorf("Selected() = %v, want stream default", f.ctrl.Selected())
	}
	if err := f.ctrl.Select(KindLegacy); err != nil {
		t.Fatalf("Select(legacy) error = %v", err)
	}
	if f.ctrl.Selected() != KindLegacy {
		t.Errorf("Selected() = %v, want legacy", f.ctrl.Selected())
	}
	if err := f.ctrl.Toggle(); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if f.ctrl.Selected() != KindStream {
		t.Errorf("Selected() after Toggle = %v, want stream", f.ctrl.Selected())
	}

	if err := f.ctrl.Select("hybrid"); err == nil {
		t.Error("Select() with unknown pipeline should fail")
	}
}

func TestControllerSelectRejectedWhileRecording(t *testing.T) {
	f := newControllerFixture()
	ctx := context.Background()

	if err := f.ctrl.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := f.ctrl.Select(KindLegacy); !errors.Is(err, ErrSessionActive) {
		t.Errorf("Select() while recording = %v, want ErrSessionActive", err)
	}
	if err := f.ctrl.Start(ctx); !errors.Is(err, ErrSessionActive) {
		t.Errorf("second Start() = %v, want ErrSessionActive", err)
	}
	if err := f.ctrl.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := f.ctrl.Select(KindLegacy); err != nil {
		t.Errorf("Select() after Stop error = %v", err)
	}
}

func TestControllerPersistsSessions(t *testing.T) {
	f := newControllerFixture()
	f.engine.DrainResults = []transcribe.Result{
		{Segment: transcribe.Segment{Text: "stream says hi", Final: true}},
	}
	ctx := context.Background()

	if err := f.ctrl.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := f.ctrl.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	saved := f.history.all()
	if len(saved) != 1 {
		t.Fatalf("saved %d sessions, want 1", len(saved))
	}
	if saved[0].pipeline != "stream" || saved[0].locale != "en-US" || saved[0].transcript != "stream says hi" {
		t.Errorf("saved = %+v, want stream/en-US/%q", saved[0], "stream says hi")
	}

	if got := f.ctrl.LastTranscript(KindStream); got != "stream says hi" {
		t.Errorf("LastTranscript(stream) = %q, want %q", got, "stream says hi")
	}
}

func TestControllerCompare(t *testing.T) {
	f := newControllerFixture()
	f.engine.DrainResults = []transcribe.Result{
		{Segment: transcribe.Segment{Text: "the cat sat on the mat", Final: true}},
	}
	ctx := context.Background()

	if _, ok := f.ctrl.Compare(); ok {
		t.Error("Compare() before any session should report not ready")
	}

	// One stream session, then one legacy session over the same phrase
	// with a single-word difference.
	if err := f.ctrl.Start(ctx); err != nil {
		t.Fatalf("stream Start() error = %v", err)
	}
	if err := f.ctrl.Stop(ctx); err != nil {
		t.Fatalf("stream Stop() error = %v", err)
	}

	if err := f.ctrl.Select(KindLegacy); err != nil {
		t.Fatalf("Select(legacy) error = %v", err)
	}
	if err := f.ctrl.Start(ctx); err != nil {
		t.Fatalf("legacy Start() error = %v", err)
	}
	f.recognizer.Request().Emit(transcribe.Result{
		Segment: transcribe.Segment{Text: "the cat sit on the mat", Final: true},
	})
	if err := f.ctrl.Stop(ctx); err != nil {
		t.Fatalf("legacy Stop() error = %v", err)
	}

	res, ok := f.ctrl.Compare()
	if !ok {
		t.Fatal("Compare() not ready after both pipelines ran")
	}
	want := 1.0 / 6.0
	if res.WER < want-1e-9 || res.WER > want+1e-9 {
		t.Errorf("WER = %f, want %f", res.WER, want)
	}
}
