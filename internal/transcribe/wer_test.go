package transcribe

import "testing"

// The cases mirror how the two pipelines actually diverge on the same
// audio: whisper punctuates and capitalizes the stream side, the legacy
// side can lose its tail to a cancelled final decode, and window
// boundaries occasionally duplicate or swap a word.
func TestComputeWER(t *testing.T) {
	tests := []struct {
		name     string
		legacy   string
		stream   string
		wantWER  float64
		wantSubs int
		wantIns  int
		wantDels int
		wantRef  int
	}{
		{
			name:    "identical_transcripts",
			legacy:  "switch to the modern pipeline",
			stream:  "switch to the modern pipeline",
			wantWER: 0.0,
			wantRef: 5,
		},
		{
			name:    "punctuation_and_case_normalized",
			legacy:  "hello world",
			stream:  "Hello, world.",
			wantWER: 0.0,
			wantRef: 2,
		},
		{
			name:     "homophone_substitution",
			legacy:   "write the report to disk",
			stream:   "right the report to disk",
			wantWER:  1.0 / 5.0,
			wantSubs: 1,
			wantRef:  5,
		},
		{
			name:    "boundary_word_duplicated",
			legacy:  "please save the draft now",
			stream:  "please save the the draft now",
			wantWER: 1.0 / 5.0,
			wantIns: 1,
			wantRef: 5,
		},
		{
			name:     "trailing_word_lost_to_cancel",
			legacy:   "stop recording after this sentence",
			stream:   "stop recording after this",
			wantWER:  1.0 / 5.0,
			wantDels: 1,
			wantRef:  5,
		},
		{
			name:     "tense_and_article_drift",
			legacy:   "the quick brown fox jumps over the lazy dog",
			stream:   "the quick brown fox jumped over a lazy dog",
			wantWER:  2.0 / 9.0,
			wantSubs: 2,
			wantRef:  9,
		},
		{
			name:     "stream_heard_only_silence",
			legacy:   "testing one two three",
			stream:   "",
			wantWER:  1.0,
			wantDels: 4,
			wantRef:  4,
		},
		{
			name:    "legacy_heard_only_silence",
			legacy:  "",
			stream:  "noise",
			wantWER: 0.0,
			wantRef: 0,
		},
		{
			name:    "both_silent",
			legacy:  "",
			stream:  "",
			wantWER: 0.0,
			wantRef: 0,
		},
		{
			name:    "whitespace_collapsed",
			legacy:  "  hands  free   typing ",
			stream:  "hands free typing",
			wantWER: 0.0,
			wantRef: 3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeWER(tt.legacy, tt.stream)

			if diff := got.WER - tt.wantWER; diff > 0.001 || diff < -0.001 {
				t.Errorf("WER = %f, want %f", got.WER, tt.wantWER)
			}
			if got.RefWords != tt.wantRef {
				t.Errorf("RefWords = %d, want %d", got.RefWords, tt.wantRef)
			}
			if tt.wantSubs != 0 && got.Substitutions != tt.wantSubs {
				t.Errorf("Substitutions = %d, want %d", got.Substitutions, tt.wantSubs)
			}
			if tt.wantIns != 0 && got.Insertions != tt.wantIns {
				t.Errorf("Insertions = %d, want %d", got.Insertions, tt.wantIns)
			}
			if tt.wantDels != 0 && got.Deletions != tt.wantDels {
				t.Errorf("Deletions = %d, want %d", got.Deletions, tt.wantDels)
			}
		})
	}
}

func TestComputeWERResult(t *testing.T) {
	// Full struct for one realistic session: the stream side mishears
	// the first word and drops the last.
	got := ComputeWER(
		"hands free typing makes dictation effortless",
		"hans free typing makes dictation",
	)
	if got.Substitutions != 1 {
		t.Errorf("Substitutions = %d, want 1", got.Substitutions)
	}
	if got.Deletions != 1 {
		t.Errorf("Deletions = %d, want 1", got.Deletions)
	}
	if got.RefWords != 6 {
		t.Errorf("RefWords = %d, want 6", got.RefWords)
	}
	wantWER := 2.0 / 6.0
	if diff := got.WER - wantWER; diff > 0.001 || diff < -0.001 {
		t.Errorf("WER = %f, want %f", got.WER, wantWER)
	}
}
