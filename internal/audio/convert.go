package audio

import (
	"errors"
	"fmt"
	"math"
)

// Conversion failure kinds. None of these are retried internally; the
// caller decides whether to drop the buffer or abort the session.
var (
	// ErrConverterCreate means the conversion state could not be built
	// for the requested format pair.
	ErrConverterCreate = errors.New("audio: converter construction failed")
	// ErrConvertAlloc means the output buffer could not be sized.
	ErrConvertAlloc = errors.New("audio: conversion output allocation failed")
	// ErrConvertEngine wraps a diagnostic status from the conversion loop.
	ErrConvertEngine = errors.New("audio: conversion engine failed")
)

// Diagnostic status codes reported with ErrConvertEngine.
const (
	convStatusNoInput = -50
)

// maxConvertFrames bounds a single conversion's output allocation.
const maxConvertFrames = 1 << 26

// Converter adapts buffers from a source format to a target format,
// resampling and remapping channels as needed. The conversion state is
// built lazily and cached for the exact (source, target) pair; a change
// on either side rebuilds it. Not safe for concurrent use; each pipeline
// owns its converter exclusively.
type Converter struct {
	state *convState
}

// NewConverter returns an empty converter. State is created on first use.
func NewConverter() *Converter {
	return &Converter{}
}

// Convert returns the input buffer re-encoded in the target format.
// If the input is already in the target format the same buffer is
// returned untouched.
func (c *Converter) Convert(in *Buffer, target Format) (*Buffer, error) {
	if in.Format.Equal(target) {
		return in, nil
	}

	if c.state == nil || !c.state.src.Equal(in.Format) || !c.state.dst.Equal(target) {
		st, err := newConvState(in.Format, target)
		if err != nil {
			return nil, err
		}
		c.state = st
	}

	return c.state.convert(in)
}

// convState is the cached conversion context for one (source, target)
// format pair. The fractional read position carries across calls so
// consecutive chunks resample without seams. Input priming is
// deliberately absent: the first output sample aligns exactly with the
// first input sample, trading edge fidelity for timestamp alignment.
type convState struct {
	src Format
	dst Format

	// ratio is source frames consumed per output frame.
	ratio float64
	// phase is the fractional source position carried into the next call.
	phase float64
}

func newConvState(src, dst Format) (*convState, error) {
	if src.SampleRate == 0 || dst.SampleRate == 0 {
		return nil, fmt.Errorf("%w: zero sample rate (%s -> %s)", ErrConverterCreate, src, dst)
	}
	if src.Channels == 0 || dst.Channels == 0 {
		return nil, fmt.Errorf("%w: zero channel count (%s -> %s)", ErrConverterCreate, src, dst)
	}
	if src.Channels > 1 && dst.Channels > 1 && src.Channels != dst.Channels {
		return nil, fmt.Errorf("%w: unsupported channel mapping %dch -> %dch", ErrConverterCreate, src.Channels, dst.Channels)
	}

	return &convState{
		src:   src,
		dst:   dst,
		ratio: float64(src.SampleRate) / float64(dst.SampleRate),
	}, nil
}

// convert runs one conversion call. Input is handed to the pull loop
// through a single-shot supplier: the conversion loop may ask for input
// more than once per output buffer, but only the offered buffer is ever
// delivered; later pulls report no-data-right-now rather than
// end-of-stream.
func (s *convState) convert(in *Buffer) (*Buffer, error) {
	nOut, err := s.outputFrames(in.Frames())
	if err != nil {
		return nil, err
	}

	out := &Buffer{
		Format:  s.dst,
		Samples: make([]float32, 0, nOut*int(s.dst.Channels)),
	}
	if nOut == 0 {
		return out, nil
	}

	pull := singleShotSupplier(in.Samples)
	if err := s.run(pull, nOut, out); err != nil {
		return nil, err
	}
	return out, nil
}

// outputFrames computes ceil(inFrames * dstRate / srcRate) adjusted for
// the carried phase.
func (s *convState) outputFrames(inFrames int) (int, error) {
	avail := float64(inFrames) - s.phase
	if avail <= 0 {
		return 0, nil
	}
	n := int(math.Ceil(avail * float64(s.dst.SampleRate) / float64(s.src.SampleRate)))
	if n > maxConvertFrames {
		return 0, fmt.Errorf("%w: %d frames exceeds limit", ErrConvertAlloc, n)
	}
	return n, nil
}

// run is the pull-model conversion loop. It requests source data through
// the supplier whenever the read position passes the frames it holds,
// resamples by linear interpolation, and returns once the supplier
// reports no further data.
func (s *convState) run(pull supplier, nOut int, out *Buffer) error {
	src, ok := pull()
	if !ok || len(src) == 0 {
		return fmt.Errorf("%w: status %d", ErrConvertEngine, convStatusNoInput)
	}
	frames := len(src) / int(s.src.Channels)

	pos := s.phase
	for i := 0; i < nOut; i++ {
		if pos >= float64(frames) {
			// The loop pulls again per its contract; the single-shot
			// supplier reports no more data for this call.
			if more, again := pull(); again {
				src = append(src, more...)
				frames = len(src) / int(s.src.Channels)
			} else {
				break
			}
		}
		s.writeFrame(src, frames, pos, out)
		pos += s.ratio
	}

	s.phase = pos - float64(frames)
	if s.phase < 0 {
		s.phase = 0
	}
	return nil
}

// writeFrame appends one interpolated, channel-mapped output frame.
func (s *convState) writeFrame(src []float32, frames int, pos float64, out *Buffer) {
	i0 := int(pos)
	frac := float32(pos - float64(i0))
	i1 := i0 + 1
	if i1 >= frames {
		i1 = frames - 1 // no lookahead past the chunk edge
	}

	ch := int(s.src.Channels)
	switch {
	case s.src.Channels == s.dst.Channels:
		for c := 0; c < ch; c++ {
			a := src[i0*ch+c]
			b := src[i1*ch+c]
			out.Samples = append(out.Samples, a+(b-a)*frac)
		}
	case s.dst.Channels == 1:
		// Mix all source channels down to mono.
		var a, b float32
		for c := 0; c < ch; c++ {
			a += src[i0*ch+c]
			b += src[i1*ch+c]
		}
		a /= float32(ch)
		b /= float32(ch)
		out.Samples = append(out.Samples, a+(b-a)*frac)
	default:
		// Mono source replicated across target channels.
		a := src[i0]
		b := src[i1]
		v := a + (b-a)*frac
		for c := uint32(0); c < s.dst.Channels; c++ {
			out.Samples = append(out.Samples, v)
		}
	}
}

// supplier feeds source samples to the conversion loop. The second
// return value reports whether data was delivered on this pull.
type supplier func() ([]float32, bool)

// singleShotSupplier yields the given samples on the first pull only.
// Subsequent pulls within the same conversion call report no data
// available right now, which ends the loop without error.
func singleShotSupplier(samples []float32) supplier {
	delivered := false
	return func() ([]float32, bool) {
		if delivered {
			return nil, false
		}
		delivered = true
		return samples, true
	}
}
