package pipeline

import (
	"sync"

	"github.com/scribelab/duoscribe/internal/transcribe"
)

// Transcript holds a session's two text accumulators. Finalized text
// only grows; at most one volatile span exists and it is replaced
// wholesale on every non-final segment. A final segment always clears
// the volatile span it supersedes; the two never coexist for the same
// audio.
type Transcript struct {
	mu        sync.Mutex
	finalized string
	volatile  string
}

// Reset clears both accumulators. Called at the start of every session,
// before any result can arrive.
func (t *Transcript) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finalized = ""
	t.volatile = ""
}

// Apply folds one segment into the accumulators.
func (t *Transcript) Apply(seg transcribe.Segment) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if seg.Final {
		t.finalized += seg.Text
		t.volatile = ""
		return
	}
	t.volatile = seg.Text
}

// Snapshot returns the current finalized and volatile text.
func (t *Transcript) Snapshot() (finalized, volatile string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.finalized, t.volatile
}
