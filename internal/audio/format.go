// Package audio provides microphone capture, a shared audio session
// handle, and sample format conversion between capture and recognition
// formats.
package audio

import "fmt"

// DefaultChunkFrames is the tap period: buffers are delivered in chunks
// of this many frames.
const DefaultChunkFrames = 2048

// Format describes the layout of a sample buffer. Samples are always
// float32; only rate and channel count vary.
type Format struct {
	SampleRate uint32
	Channels   uint32
}

// Equal reports whether two formats describe the same layout.
func (f Format) Equal(other Format) bool {
	return f.SampleRate == other.SampleRate && f.Channels == other.Channels
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch", f.SampleRate, f.Channels)
}

// Buffer is one chunk of PCM audio tagged with its format. Buffers are
// produced by a capture source and consumed exactly once downstream.
type Buffer struct {
	Format  Format
	Samples []float32
}

// Frames returns the number of sample frames in the buffer.
func (b *Buffer) Frames() int {
	if b.Format.Channels == 0 {
		return 0
	}
	return len(b.Samples) / int(b.Format.Channels)
}
