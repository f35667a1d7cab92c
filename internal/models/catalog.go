// Package models maps recognition locales to whisper model assets and
// installs missing ones. The locale check and install run synchronously
// before a recording session starts.
package models

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// defaultBaseURL hosts the ggml whisper models.
const defaultBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"

// modelFiles maps a normalized language code to its model asset.
// English gets the dedicated English model; the rest share the
// multilingual base model.
var modelFiles = map[string]string{
	"en": "ggml-base.en.bin",
	"de": "ggml-base.bin",
	"es": "ggml-base.bin",
	"fr": "ggml-base.bin",
	"it": "ggml-base.bin",
	"ja": "ggml-base.bin",
	"ko": "ggml-base.bin",
	"nl": "ggml-base.bin",
	"pl": "ggml-base.bin",
	"pt": "ggml-base.bin",
	"ru": "ggml-base.bin",
	"uk": "ggml-base.bin",
	"zh": "ggml-base.bin",
}

// Catalog resolves locales against the models directory.
type Catalog struct {
	dir string

	// BaseURL overrides the download host. Tests point it at a local
	// server.
	BaseURL string
	// Progress receives human-readable download progress. Nil silences it.
	Progress io.Writer
}

// NewCatalog creates a catalog rooted at dir.
func NewCatalog(dir string) *Catalog {
	return &Catalog{dir: dir, BaseURL: defaultBaseURL}
}

// normalize reduces a BCP-47-ish tag ("en-US", "en_US", "EN") to its
// language code.
func normalize(locale string) string {
	locale = strings.ToLower(locale)
	if i := strings.IndexAny(locale, "-_"); i >= 0 {
		locale = locale[:i]
	}
	return locale
}

// Supported reports whether the locale has a model asset at all.
func (c *Catalog) Supported(locale string) bool {
	_, ok := modelFiles[normalize(locale)]
	return ok
}

// Path returns where the locale's model lives (or would live) on disk.
func (c *Catalog) Path(locale string) string {
	name, ok := modelFiles[normalize(locale)]
	if !ok {
		return ""
	}
	return filepath.Join(c.dir, name)
}

// Installed reports whether the locale's model is present on disk.
func (c *Catalog) Installed(locale string) bool {
	path := c.Path(locale)
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

// Install downloads the locale's model if missing. The write goes to a
// temp file first and is renamed into place so a torn download never
// looks installed.
func (c *Catalog) Install(ctx context.Context, locale string) error {
	name, ok := modelFiles[normalize(locale)]
	if !ok {
		return fmt.Errorf("models: no model asset for locale %q", locale)
	}
	if c.Installed(locale) {
		return nil
	}

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("models: creating models dir: %w", err)
	}

	url := c.BaseURL + "/" + name
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("models: building request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("models: downloading %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("models: download %s: HTTP %d", name, resp.StatusCode)
	}

	destPath := filepath.Join(c.dir, name)
	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("models: creating temp file: %w", err)
	}

	var w io.Writer = f
	if c.Progress != nil {
		w = &progressWriter{
			writer: f,
			out:    c.Progress,
			total:  resp.ContentLength,
			label:  name,
		}
	}

	_, err = io.Copy(w, resp.Body)
	f.Close()
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("models: writing model file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("models: moving model file: %w", err)
	}
	return nil
}

// progressWriter wraps the destination file and reports progress.
type progressWriter struct {
	writer  io.Writer
	out     io.Writer
	total   int64
	written int64
	label   string
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.writer.Write(p)
	pw.written += int64(n)
	if pw.total > 0 {
		pct := float64(pw.written) / float64(pw.total) * 100
		fmt.Fprintf(pw.out, "\r  %s: %.1f MB / %.1f MB (%.0f%%)",
			pw.label,
			float64(pw.written)/(1024*1024),
			float64(pw.total)/(1024*1024),
			pct)
	} else {
		fmt.Fprintf(pw.out, "\r  %s: %.1f MB downloaded",
			pw.label,
			float64(pw.written)/(1024*1024))
	}
	return n, err
}
