package audio

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/go-audio/wav"
)

// FileSource replays a WAV file through the Source interface, chunked
// the same way the microphone tap chunks live audio. The final chunk may
// be short. Useful for mic-less runs and pipeline tests.
type FileSource struct {
	format      Format
	samples     []float32
	chunkFrames int

	mu      sync.Mutex
	stop    chan struct{}
	started bool
}

// NewFileSource decodes the WAV file at path into memory.
func NewFileSource(path string, chunkFrames uint32) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio: opening wav %q: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("audio: decoding wav %q: %w", path, err)
	}
	if buf.Format == nil {
		return nil, fmt.Errorf("audio: wav %q has no format", path)
	}

	// Normalize integer PCM to [-1, 1] float32.
	bits := dec.BitDepth
	if bits == 0 {
		bits = 16
	}
	scale := float32(int64(1) << (bits - 1))
	samples := make([]float32, len(buf.Data))
	for i, s := range buf.Data {
		samples[i] = float32(s) / scale
	}

	if chunkFrames == 0 {
		chunkFrames = DefaultChunkFrames
	}

	return &FileSource{
		format: Format{
			SampleRate: uint32(buf.Format.SampleRate),
			Channels:   uint32(buf.Format.NumChannels),
		},
		samples:     samples,
		chunkFrames: int(chunkFrames),
	}, nil
}

// Format returns the file's native format.
func (fs *FileSource) Format() Format { return fs.format }

// Start emits the file's audio in chunks and closes the channel when the
// file is exhausted or Stop is called.
func (fs *FileSource) Start() (<-chan *Buffer, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.started {
		return nil, errors.New("audio: file source already started")
	}
	fs.started = true
	fs.stop = make(chan struct{})

	out := make(chan *Buffer)
	go fs.emit(out, fs.stop)
	return out, nil
}

// Stop ends emission early. Idempotent.
func (fs *FileSource) Stop() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if !fs.started {
		return nil
	}
	fs.started = false
	close(fs.stop)
	return nil
}

func (fs *FileSource) emit(out chan<- *Buffer, stop <-chan struct{}) {
	defer close(out)

	chunkSamples := fs.chunkFrames * int(fs.format.Channels)
	for off := 0; off < len(fs.samples); off += chunkSamples {
		end := off + chunkSamples
		if end > len(fs.samples) {
			end = len(fs.samples)
		}
		buf := &Buffer{
			Format:  fs.format,
			Samples: fs.samples[off:end],
		}
		select {
		case out <- buf:
		case <-stop:
			return
		}
	}
}
