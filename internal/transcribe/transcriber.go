// Package transcribe provides the two speech-to-text surfaces the
// pipelines run against:
//
//   - a legacy request/callback recognizer fed native-format buffers
//   - a streaming engine consuming a converted input sequence and
//     emitting volatile and finalized segments
//
// Both are backed by whisper.cpp through the same decode primitive, and
// both have in-package mocks for pipeline tests.
package transcribe

import (
	"context"

	"github.com/scribelab/duoscribe/internal/audio"
)

// Segment is a span of recognized text. Finalized segments never change;
// a non-final segment wholly replaces any previous non-final one.
type Segment struct {
	Text  string
	Final bool
}

// Result carries either a segment or a terminal error from a recognizer.
type Result struct {
	Segment Segment
	Err     error
}

// Decoder turns mono 16kHz float32 samples into text. It is the seam
// between the recognizer surfaces and the underlying model.
type Decoder interface {
	// Process transcribes mono 16kHz float32 audio samples to text.
	Process(samples []float32) (string, error)
	// Close releases backend resources.
	Close() error
}

// Recognizer is the legacy surface: one outstanding request at a time,
// buffers appended in the capture's native format, results delivered on
// a channel until End or Cancel. The locale biases decoding when the
// underlying decoder supports language selection.
type Recognizer interface {
	Begin(ctx context.Context, locale string) (Request, error)
}

// Request is a single legacy recognition run.
type Request interface {
	// Append hands one captured buffer to the recognizer.
	Append(buf *audio.Buffer) error
	// Results delivers partial and final text. Closed when the request
	// finishes or is cancelled.
	Results() <-chan Result
	// End signals end of audio and produces the final result. Calling
	// End on a cancelled request is a no-op, but cleanup paths must
	// still call it unconditionally.
	End() error
	// Cancel abandons the request without a final result.
	Cancel()
}

// StreamEngine is the modern surface. Start binds the engine to an input
// sequence; results flow until the input closes and FinalizeAndDrain
// completes.
type StreamEngine interface {
	// BestFormat is the input format the engine accepts.
	BestFormat() audio.Format
	// Start begins consuming buffers and returns the result stream.
	Start(ctx context.Context, in <-chan *audio.Buffer) (<-chan Result, error)
	// FinalizeAndDrain returns only once every buffered input item has
	// been processed and final results emitted.
	FinalizeAndDrain(ctx context.Context) error
}

// EngineFormat is the decode format whisper.cpp requires.
var EngineFormat = audio.Format{SampleRate: 16000, Channels: 1}
