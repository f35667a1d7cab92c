package transcribe

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/scribelab/duoscribe/internal/audio"
)

// Tuning for the whisper streaming engine. Volatile re-decodes happen on
// a cadence; a run of quiet input commits the window as finalized.
const (
	defaultVolatileInterval = 1500 * time.Millisecond
	silenceRMS              = 0.012
	silenceHold             = time.Second
)

// StreamWhisper adapts the batch whisper decoder into the streaming
// engine surface: it consumes converted buffers from the input sequence,
// re-decodes the open window into volatile segments while audio flows,
// and finalizes the window when speech pauses or the input closes.
type StreamWhisper struct {
	decoder  Decoder
	interval time.Duration

	mu      sync.Mutex
	started bool
	done    chan struct{}
}

// NewStreamWhisper wraps a decoder. volatileInterval <= 0 selects the
// default cadence.
func NewStreamWhisper(decoder Decoder, volatileInterval time.Duration) *StreamWhisper {
	if volatileInterval <= 0 {
		volatileInterval = defaultVolatileInterval
	}
	return &StreamWhisper{decoder: decoder, interval: volatileInterval}
}

// BestFormat returns the format input buffers must arrive in.
func (e *StreamWhisper) BestFormat() audio.Format {
	return EngineFormat
}

// Start begins consuming the input sequence. It may be called once per
// engine lifetime; a new session needs a new engine value.
func (e *StreamWhisper) Start(ctx context.Context, in <-chan *audio.Buffer) (<-chan Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return nil, errors.New("transcribe: stream engine already started")
	}
	e.started = true
	e.done = make(chan struct{})

	results := make(chan Result, 16)
	go e.consume(ctx, in, results)
	return results, nil
}

// FinalizeAndDrain blocks until the input sequence has been fully
// processed and the final segment emitted. The caller must close the
// producer side of the input first.
func (e *StreamWhisper) FinalizeAndDrain(ctx context.Context) error {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done == nil {
		return errors.New("transcribe: stream engine not started")
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// consume is the engine's intake loop. It owns the open window of
// samples since the last finalized segment.
func (e *StreamWhisper) consume(ctx context.Context, in <-chan *audio.Buffer, results chan<- Result) {
	defer close(e.done)
	defer close(results)

	var (
		window       []float32
		quiet        time.Duration
		lastVolatile time.Time
	)

	flush := func(final bool) {
		if len(window) == 0 {
			return
		}
		text, err := e.decoder.Process(window)
		if err != nil {
			results <- Result{Err: err}
			if final {
				window = nil
			}
			return
		}
		if text != "" {
			results <- Result{Segment: Segment{Text: text, Final: final}}
		}
		if final {
			window = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case buf, ok := <-in:
			if !ok {
				// End of input: decode whatever remains and finish.
				flush(true)
				return
			}

			window = append(window, buf.Samples...)

			chunkDur := time.Duration(float64(buf.Frames()) / float64(buf.Format.SampleRate) * float64(time.Second))
			if rms(buf.Samples) < silenceRMS {
				quiet += chunkDur
			} else {
				quiet = 0
			}

			switch {
			case quiet >= silenceHold:
				flush(true)
				quiet = 0
			case time.Since(lastVolatile) >= e.interval:
				flush(false)
				lastVolatile = time.Now()
			}
		}
	}
}

// rms is the root-mean-square level of a sample block.
func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
