package store

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.sqlite"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndRecent(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	saves := []struct {
		pipeline   string
		transcript string
		startedAt  time.Time
	}{
		{"legacy", "first run", base},
		{"stream", "second run", base.Add(time.Minute)},
		{"stream", "third run", base.Add(2 * time.Minute)},
	}
	for _, sv := range saves {
		if err := s.SaveSession(sv.pipeline, "en-US", sv.transcript, sv.startedAt, sv.startedAt.Add(10*time.Second)); err != nil {
			t.Fatalf("SaveSession(%q) error = %v", sv.transcript, err)
		}
	}

	got, err := s.Recent(10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Recent() returned %d sessions, want 3", len(got))
	}

	// Newest first.
	if got[0].Transcript != "third run" || got[2].Transcript != "first run" {
		t.Errorf("order = [%q %q %q], want newest first", got[0].Transcript, got[1].Transcript, got[2].Transcript)
	}
	if got[0].Pipeline != "stream" || got[0].Locale != "en-US" {
		t.Errorf("session = %+v, want stream/en-US", got[0])
	}
	if !got[0].StartedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("StartedAt = %v, want %v", got[0].StartedAt, base.Add(2*time.Minute))
	}
	if got[0].EndedAt.Sub(got[0].StartedAt) != 10*time.Second {
		t.Errorf("duration = %v, want 10s", got[0].EndedAt.Sub(got[0].StartedAt))
	}
}

func TestRecentLimit(t *testing.T) {
	s := openTestStore(t)

	now := time.Now()
	for i := 0; i < 5; i++ {
		if err := s.SaveSession("legacy", "en-US", "text", now.Add(time.Duration(i)*time.Minute), now.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("SaveSession() error = %v", err)
		}
	}

	got, err := s.Recent(2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Recent(2) returned %d sessions, want 2", len(got))
	}
}

func TestRecentEmpty(t *testing.T) {
	s := openTestStore(t)

	got, err := s.Recent(10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Recent() on empty store returned %d sessions", len(got))
	}
}

func TestOpenCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "history.sqlite")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	_ = s.Close()
}
