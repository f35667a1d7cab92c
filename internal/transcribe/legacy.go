package transcribe

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/scribelab/duoscribe/internal/audio"
)

// defaultPartialInterval is how often the legacy recognizer re-decodes
// the accumulated audio to produce a partial result.
const defaultPartialInterval = 2 * time.Second

// LegacyRecognizer drives a Decoder through the legacy request shape:
// buffers arrive in the capture's native format and are converted
// internally, partial text is re-decoded on an interval, and End
// produces the final decode. One outstanding request at a time.
type LegacyRecognizer struct {
	decoder  Decoder
	interval time.Duration

	mu     sync.Mutex
	active *legacyRequest
}

// NewLegacyRecognizer wraps a decoder. partialInterval <= 0 selects the
// default cadence.
func NewLegacyRecognizer(decoder Decoder, partialInterval time.Duration) *LegacyRecognizer {
	if partialInterval <= 0 {
		partialInterval = defaultPartialInterval
	}
	return &LegacyRecognizer{decoder: decoder, interval: partialInterval}
}

// Begin opens a recognition request for the given locale. A second Begin
// while one is outstanding fails.
func (r *LegacyRecognizer) Begin(ctx context.Context, locale string) (Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil && !r.active.done() {
		return nil, errors.New("transcribe: recognition request already outstanding")
	}

	req := newLegacyRequest(ctx, decodeFunc(r.decoder, locale), r.interval, func() {
		r.mu.Lock()
		r.active = nil
		r.mu.Unlock()
	})
	r.active = req
	return req, nil
}

// languageDecoder is implemented by decoders that can bias decoding to a
// specific spoken language.
type languageDecoder interface {
	ProcessLanguage(samples []float32, lang string) (string, error)
}

// decodeFunc binds a decoder to the request's locale. Decoders without
// language selection fall back to plain Process.
func decodeFunc(d Decoder, locale string) func([]float32) (string, error) {
	ld, ok := d.(languageDecoder)
	lang := languageOf(locale)
	if !ok || lang == "" {
		return d.Process
	}
	return func(samples []float32) (string, error) {
		return ld.ProcessLanguage(samples, lang)
	}
}

// languageOf reduces a BCP 47 locale to its primary language subtag,
// lowercased: "en-US" and "en_GB" both map to "en".
func languageOf(locale string) string {
	for i := 0; i < len(locale); i++ {
		if locale[i] == '-' || locale[i] == '_' {
			locale = locale[:i]
			break
		}
	}
	return strings.ToLower(locale)
}

// legacyRequest is one recognition run. Appended buffers are converted
// to the decode format and accumulated; a ticker goroutine emits partial
// decodes while audio is flowing.
type legacyRequest struct {
	decode   func([]float32) (string, error)
	conv     *audio.Converter
	results  chan Result
	finished chan struct{}
	onDone   func()

	mu          sync.Mutex
	samples     []float32
	dirty       bool
	ended       bool
	cancelled   bool
	lastPartial string
}

func newLegacyRequest(ctx context.Context, decode func([]float32) (string, error), interval time.Duration, onDone func()) *legacyRequest {
	req := &legacyRequest{
		decode:   decode,
		conv:     audio.NewConverter(),
		results:  make(chan Result, 8),
		finished: make(chan struct{}),
		onDone:   onDone,
	}
	go req.partialLoop(ctx, interval)
	return req
}

// Append converts and accumulates one captured buffer.
func (q *legacyRequest) Append(buf *audio.Buffer) error {
	converted, err := q.conv.Convert(buf, EngineFormat)
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ended || q.cancelled {
		return errors.New("transcribe: append on finished request")
	}
	q.samples = append(q.samples, converted.Samples...)
	q.dirty = true
	return nil
}

// Results returns the result stream for this request.
func (q *legacyRequest) Results() <-chan Result {
	return q.results
}

// End closes audio input and emits the final decode. On a cancelled
// request it is a no-op.
func (q *legacyRequest) End() error {
	q.mu.Lock()
	if q.ended || q.cancelled {
		q.mu.Unlock()
		return nil
	}
	q.ended = true
	samples := q.samples
	q.mu.Unlock()

	defer q.finish()

	if len(samples) == 0 {
		return nil
	}
	text, err := q.decode(samples)
	if err != nil {
		q.results <- Result{Err: err}
		return err
	}
	if text != "" {
		q.results <- Result{Segment: Segment{Text: text, Final: true}}
	}
	return nil
}

// Cancel stops recognition. No further decode runs after this, so the
// most recent partial, when one exists, is promoted to the final result:
// the text the user last saw live is what the session keeps.
func (q *legacyRequest) Cancel() {
	q.mu.Lock()
	if q.ended || q.cancelled {
		q.mu.Unlock()
		return
	}
	q.cancelled = true
	last := q.lastPartial
	q.mu.Unlock()

	if last != "" {
		q.results <- Result{Segment: Segment{Text: last, Final: true}}
	}
	q.finish()
}

func (q *legacyRequest) finish() {
	close(q.finished)
	close(q.results)
	if q.onDone != nil {
		q.onDone()
	}
}

func (q *legacyRequest) done() bool {
	select {
	case <-q.finished:
		return true
	default:
		return false
	}
}

// partialLoop re-decodes the accumulated audio on an interval while new
// buffers keep arriving. Decode errors here are delivered as results but
// do not end the request; the final decode decides that.
func (q *legacyRequest) partialLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.finished:
			return
		case <-ticker.C:
		}

		q.mu.Lock()
		if q.ended || q.cancelled || !q.dirty {
			q.mu.Unlock()
			continue
		}
		q.dirty = false
		samples := append([]float32(nil), q.samples...)
		q.mu.Unlock()

		text, err := q.decode(samples)
		if err != nil {
			q.deliver(Result{Err: err})
			continue
		}
		if text != "" {
			q.mu.Lock()
			q.lastPartial = text
			q.mu.Unlock()
			q.deliver(Result{Segment: Segment{Text: text}})
		}
	}
}

// deliver sends a result unless the request finished meanwhile.
func (q *legacyRequest) deliver(res Result) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ended || q.cancelled {
		return
	}
	select {
	case q.results <- res:
	default:
	}
}
