package transcribe

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-audio/wav"
)

// whisperModelPath resolves the path to the whisper model relative to the project root.
func whisperModelPath(t *testing.T) string {
	t.Helper()
	path := filepath.Join("..", "..", "models", "ggml-base.en.bin")
	if _, err := os.Stat(path); err != nil {
		t.Skipf("model not found at %s (run with -download first): %v", path, err)
	}
	return path
}

func TestNewWhisperDecoder(t *testing.T) {
	path := whisperModelPath(t)

	dec, err := NewWhisperDecoder(path)
	if err != nil {
		t.Fatalf("NewWhisperDecoder(%q) returned error: %v", path, err)
	}
	if dec == nil {
		t.Fatal("NewWhisperDecoder returned nil without error")
	}

	if err := dec.Close(); err != nil {
		t.Fatalf("Close() returned error: %v", err)
	}
}

func TestNewWhisperDecoderBadPath(t *testing.T) {
	_, err := NewWhisperDecoder("/nonexistent/model.bin")
	if err == nil {
		t.Fatal("NewWhisperDecoder with bad path should return error")
	}
}

// loadWAVSamples loads a 16-bit PCM WAV file and returns mono float32 samples
// normalized to [-1.0, 1.0]. The test is skipped if the file does not exist.
func loadWAVSamples(t *testing.T, wavPath string) []float32 {
	t.Helper()
	f, err := os.Open(wavPath)
	if err != nil {
		t.Skipf("WAV file not found at %s: %v", wavPath, err)
	}
	defer func() { _ = f.Close() }()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode WAV %s: %v", wavPath, err)
	}

	samples := make([]float32, len(buf.Data))
	for i, s := range buf.Data {
		samples[i] = float32(s) / 32768.0
	}
	return samples
}

func TestWhisperProcessSample(t *testing.T) {
	path := whisperModelPath(t)
	samples := loadWAVSamples(t, filepath.Join("testdata", "jfk.wav"))

	dec, err := NewWhisperDecoder(path)
	if err != nil {
		t.Fatalf("NewWhisperDecoder: %v", err)
	}
	defer func() { _ = dec.Close() }()

	text, err := dec.Process(samples)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	lower := strings.ToLower(text)
	if !strings.Contains(lower, "ask not what your country") {
		t.Errorf("expected transcript to contain 'ask not what your country', got: %q", text)
	}
}

func TestWhisperProcessSilence(t *testing.T) {
	path := whisperModelPath(t)

	dec, err := NewWhisperDecoder(path)
	if err != nil {
		t.Fatalf("NewWhisperDecoder: %v", err)
	}
	defer func() { _ = dec.Close() }()

	// Silent audio should not error, just return empty-ish text
	silence := make([]float32, 16000) // 1 second of silence
	if _, err := dec.Process(silence); err != nil {
		t.Fatalf("Process on silence returned error: %v", err)
	}
}
