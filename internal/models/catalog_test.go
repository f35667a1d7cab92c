package models

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestSupported(t *testing.T) {
	c := NewCatalog(t.TempDir())

	tests := []struct {
		locale string
		want   bool
	}{
		{"en-US", true},
		{"en_GB", true},
		{"EN", true},
		{"de-DE", true},
		{"ja", true},
		{"xx-XX", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := c.Supported(tt.locale); got != tt.want {
			t.Errorf("Supported(%q) = %v, want %v", tt.locale, got, tt.want)
		}
	}
}

func TestPath(t *testing.T) {
	dir := t.TempDir()
	c := NewCatalog(dir)

	if got, want := c.Path("en-US"), filepath.Join(dir, "ggml-base.en.bin"); got != want {
		t.Errorf("Path(en-US) = %q, want %q", got, want)
	}
	if got, want := c.Path("fr-FR"), filepath.Join(dir, "ggml-base.bin"); got != want {
		t.Errorf("Path(fr-FR) = %q, want %q", got, want)
	}
	if got := c.Path("xx"); got != "" {
		t.Errorf("Path(xx) = %q, want empty", got)
	}
}

func TestInstalled(t *testing.T) {
	dir := t.TempDir()
	c := NewCatalog(dir)

	if c.Installed("en-US") {
		t.Error("Installed() = true before any download")
	}

	// An empty file is a torn download and does not count.
	if err := os.WriteFile(c.Path("en-US"), nil, 0644); err != nil {
		t.Fatal(err)
	}
	if c.Installed("en-US") {
		t.Error("Installed() = true for empty model file")
	}

	if err := os.WriteFile(c.Path("en-US"), []byte("model bytes"), 0644); err != nil {
		t.Fatal(err)
	}
	if !c.Installed("en-US") {
		t.Error("Installed() = false with model present")
	}
}

func TestInstallDownloadsModel(t *testing.T) {
	const body = "fake model weights"
	var requested string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		w.Write([]byte(body))
	}))
	defer srv.Close()

	dir := t.TempDir()
	c := NewCatalog(dir)
	c.BaseURL = srv.URL

	if err := c.Install(context.Background(), "en-US"); err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if requested != "/ggml-base.en.bin" {
		t.Errorf("requested path = %q, want /ggml-base.en.bin", requested)
	}

	data, err := os.ReadFile(c.Path("en-US"))
	if err != nil {
		t.Fatalf("reading installed model: %v", err)
	}
	if string(data) != body {
		t.Errorf("installed content = %q, want %q", data, body)
	}
	if !c.Installed("en-US") {
		t.Error("Installed() = false after Install")
	}

	// No leftover temp file.
	if _, err := os.Stat(c.Path("en-US") + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind after successful install")
	}
}

func TestInstallSkipsWhenPresent(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("weights"))
	}))
	defer srv.Close()

	c := NewCatalog(t.TempDir())
	c.BaseURL = srv.URL

	if err := c.Install(context.Background(), "en"); err != nil {
		t.Fatalf("first Install() error = %v", err)
	}
	if err := c.Install(context.Background(), "en"); err != nil {
		t.Fatalf("second Install() error = %v", err)
	}
	if hits != 1 {
		t.Errorf("server hit %d times, want 1 (second install should be a no-op)", hits)
	}
}

func TestInstallHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewCatalog(t.TempDir())
	c.BaseURL = srv.URL

	if err := c.Install(context.Background(), "en"); err == nil {
		t.Fatal("Install() should fail on HTTP 404")
	}
	if c.Installed("en") {
		t.Error("failed install must not look installed")
	}
}

func TestInstallUnknownLocale(t *testing.T) {
	c := NewCatalog(t.TempDir())
	if err := c.Install(context.Background(), "xx-XX"); err == nil {
		t.Error("Install() for unsupported locale should fail")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"en-US", "en"},
		{"en_GB", "en"},
		{"EN", "en"},
		{"pt", "pt"},
		{"zh-Hans-CN", "zh"},
	}
	for _, tt := range tests {
		if got := normalize(tt.in); got != tt.want {
			t.Errorf("normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
