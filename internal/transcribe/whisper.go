package transcribe

import (
	"fmt"
	"io"
	"strings"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// WhisperDecoder wraps a whisper.cpp model as a Decoder. Both the legacy
// recognizer and the streaming engine decode through it.
type WhisperDecoder struct {
	model whisper.Model
}

// NewWhisperDecoder loads a whisper model from the given path.
// The caller must call Close() when done.
func NewWhisperDecoder(modelPath string) (*WhisperDecoder, error) {
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("transcribe: load whisper model %q: %w", modelPath, err)
	}
	return &WhisperDecoder{model: model}, nil
}

// Close releases the whisper model resources.
func (d *WhisperDecoder) Close() error {
	if d.model != nil {
		return d.model.Close()
	}
	return nil
}

// Process transcribes mono 16kHz float32 audio samples to text.
func (d *WhisperDecoder) Process(samples []float32) (string, error) {
	return d.process(samples, "")
}

// ProcessLanguage is Process with decoding biased to the given language,
// a lowercase primary subtag like "en". An empty language leaves the
// model on auto-detect.
func (d *WhisperDecoder) ProcessLanguage(samples []float32, lang string) (string, error) {
	return d.process(samples, lang)
}

func (d *WhisperDecoder) process(samples []float32, lang string) (string, error) {
	ctx, err := d.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("transcribe: create context: %w", err)
	}
	if lang != "" {
		if err := ctx.SetLanguage(lang); err != nil {
			return "", fmt.Errorf("transcribe: set language %q: %w", lang, err)
		}
	}

	if err := ctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("transcribe: process: %w", err)
	}

	var segments []string
	for {
		seg, err := ctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("transcribe: next segment: %w", err)
		}
		segments = append(segments, seg.Text)
	}

	return strings.TrimSpace(strings.Join(segments, " ")), nil
}
