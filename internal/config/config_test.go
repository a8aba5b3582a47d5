package config

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gompdf/rasterpdf/internal/geometry"
	"github.com/gompdf/rasterpdf/pkg/errors"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n")

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rasterpdf.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if c.Browser.Backend != BackendChrome || c.Capture.Scale != 1.5 || c.Capture.Quality != 0.95 {
		t.Errorf("defaults = %+v", c)
	}
	f, err := c.PageFormat()
	if err != nil {
		t.Fatal(err)
	}
	if f != geometry.A4 {
		t.Errorf("PageFormat() = %+v, want A4", f)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
browser:
  backend: rod
  remote: ws://chrome:9222
  timeout: 45s
page:
  format: letter
  orientation: landscape
  margin: 12.5
  fit: page
capture:
  scale: 2
  quality: 0.8
  background: "#fafafa"
  class: pdf-export-mode
  font: "'Sarabun', sans-serif"
  hide: [".no-print", "#toolbar"]
output:
  dir: exports
  verify: true
  s3:
    endpoint: minio:9000
    bucket: plans
`)
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Browser.Backend != BackendRod || c.Browser.Remote != "ws://chrome:9222" || c.Browser.Timeout != 45*time.Second {
		t.Errorf("browser = %+v", c.Browser)
	}
	f, err := c.PageFormat()
	if err != nil {
		t.Fatal(err)
	}
	if f.Name != "Letter" || f.Width != 279.4 || f.Margin != 12.5 {
		t.Errorf("format = %+v", f)
	}
	o := c.Capture.Override()
	if o.Class != "pdf-export-mode" || len(o.HideSelectors) != 2 {
		t.Errorf("override = %+v", o)
	}
	bg, err := c.Capture.BackgroundColor()
	if err != nil {
		t.Fatal(err)
	}
	if bg != (color.RGBA{0xfa, 0xfa, 0xfa, 0xff}) {
		t.Errorf("background = %v", bg)
	}
	if !c.Output.Verify || !c.Output.S3.Enabled() {
		t.Errorf("output = %+v", c.Output)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "capture:\n  scale: 2\n")
	t.Setenv("RASTERPDF_SCALE", "3")
	t.Setenv("RASTERPDF_BACKEND", "image")
	t.Setenv("RASTERPDF_QUALITY", "not-a-number")
	t.Setenv("RASTERPDF_NO_SANDBOX", "true")
	t.Setenv("RASTERPDF_TIMEOUT", "1m")

	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Capture.Scale != 3 {
		t.Errorf("Scale = %v, want env value", c.Capture.Scale)
	}
	if c.Capture.Quality != 0.95 {
		t.Errorf("Quality = %v, want default after bad env", c.Capture.Quality)
	}
	if c.Browser.Backend != BackendImage || !c.Browser.NoSandbox || c.Browser.Timeout != time.Minute {
		t.Errorf("browser = %+v", c.Browser)
	}
}

func TestSearchPaths(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "week1.png"), pngHeader, 0o644); err != nil {
		t.Fatal(err)
	}
	envDir := t.TempDir()
	path := writeConfig(t, "capture:\n  search_paths: [\"/nonexistent\", \""+filepath.ToSlash(dir)+"\"]\n")
	t.Setenv("RASTERPDF_SEARCH_PATH", envDir)

	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"/nonexistent", filepath.ToSlash(dir), envDir}
	if len(c.Capture.SearchPaths) != len(want) {
		t.Fatalf("SearchPaths = %v, want %v", c.Capture.SearchPaths, want)
	}
	for i := range want {
		if c.Capture.SearchPaths[i] != want[i] {
			t.Errorf("SearchPaths[%d] = %q, want %q", i, c.Capture.SearchPaths[i], want[i])
		}
	}

	r, err := c.Capture.Loader().Load(context.Background(), "images/week1.png")
	if err != nil {
		t.Fatal(err)
	}
	if r.MimeType != "image/png" {
		t.Errorf("MimeType = %q", r.MimeType)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"backend", "browser:\n  backend: firefox\n"},
		{"format", "page:\n  format: B5\n"},
		{"orientation", "page:\n  orientation: sideways\n"},
		{"fit", "page:\n  fit: stretch\n"},
		{"quality", "capture:\n  quality: 1.5\n"},
		{"background", "capture:\n  background: white\n"},
		{"css", "capture:\n  css: \"h1 { color: red\"\n"},
		{"yaml", "page: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("err = %v, want INVALID_INPUT", err)
			}
		})
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("missing file: err = %v", err)
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in      string
		r, g, b int
		ok      bool
	}{
		{"#fff", 255, 255, 255, true},
		{"#102030", 16, 32, 48, true},
		{"abc", 0xaa, 0xbb, 0xcc, true},
		{"#12345", 0, 0, 0, false},
		{"#zzzzzz", 0, 0, 0, false},
	}
	for _, tt := range tests {
		r, g, b, ok := parseHexColor(tt.in)
		if ok != tt.ok || (ok && (r != tt.r || g != tt.g || b != tt.b)) {
			t.Errorf("parseHexColor(%q) = %d,%d,%d,%v", tt.in, r, g, b, ok)
		}
	}
}
