package res

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gompdf/rasterpdf/pkg/errors"
)

func TestParseDataURL(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantData string
		wantMime string
		wantKind Kind
		wantErr  bool
	}{
		{"base64 png", "data:image/png;base64,aGVsbG8=", "hello", "image/png", KindImage, false},
		{"escaped html", "data:text/html,%3Cp%3Ehi%3C%2Fp%3E", "<p>hi</p>", "text/html", KindHTML, false},
		{"default mime", "data:,plain", "plain", "text/plain", KindOther, false},
		{"no comma", "data:image/png;base64", "", "", KindOther, true},
		{"bad base64", "data:image/png;base64,***", "", "", KindOther, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := parseDataURL(tt.in)
			if tt.wantErr {
				if !errors.Is(err, errors.ErrCodeInvalidInput) {
					t.Fatalf("err = %v, want INVALID_INPUT", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if string(r.Data) != tt.wantData || r.MimeType != tt.wantMime || r.Kind != tt.wantKind {
				t.Errorf("got (%q, %q, %v), want (%q, %q, %v)", r.Data, r.MimeType, r.Kind, tt.wantData, tt.wantMime, tt.wantKind)
			}
		})
	}
}

func TestLoadLocalAndSearchPaths(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "plan.html")
	if err := os.WriteFile(doc, []byte("<html></html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	assets := t.TempDir()
	if err := os.WriteFile(filepath.Join(assets, "logo.png"), []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(doc)
	l.AddSearchPath(assets)
	ctx := context.Background()

	r, err := l.LoadHTML(ctx, "plan.html")
	if err != nil {
		t.Fatal(err)
	}
	if r.URL != doc {
		t.Errorf("URL = %q, want %q", r.URL, doc)
	}

	img, err := l.LoadImage(ctx, "missing/logo.png")
	if err != nil {
		t.Fatalf("search path fallback: %v", err)
	}
	if img.URL != filepath.Join(assets, "logo.png") {
		t.Errorf("URL = %q", img.URL)
	}

	if _, err := l.LoadImage(ctx, "plan.html"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("html as image: err = %v", err)
	}
	if _, err := l.Load(ctx, "nope.png"); !errors.Is(err, errors.ErrCodeCapture) {
		t.Errorf("missing file: err = %v", err)
	}
	if _, err := l.Load(ctx, ""); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("empty ref: err = %v", err)
	}
}

func TestLoadFileURL(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "a.html")
	if err := os.WriteFile(doc, []byte("<title>x</title>"), 0o644); err != nil {
		t.Fatal(err)
	}
	u, err := NavigableURL(doc)
	if err != nil {
		t.Fatal(err)
	}
	r, err := NewLoader("").LoadHTML(context.Background(), u)
	if err != nil {
		t.Fatal(err)
	}
	if string(r.Data) != "<title>x</title>" {
		t.Errorf("data = %q", r.Data)
	}
}

func TestLoadRemote(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		switch r.URL.Path {
		case "/plan":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	l := NewLoader(srv.URL + "/lessons/")
	ctx := context.Background()

	r, err := l.LoadHTML(ctx, srv.URL+"/plan")
	if err != nil {
		t.Fatal(err)
	}
	if r.MimeType != "text/html" {
		t.Errorf("mime = %q", r.MimeType)
	}
	if _, err := l.Load(ctx, srv.URL+"/plan"); err != nil {
		t.Fatal(err)
	}
	if hits != 1 {
		t.Errorf("hits = %d, want 1 (cached)", hits)
	}

	if _, err := l.Load(ctx, "../missing"); !errors.Is(err, errors.ErrCodeCapture) {
		t.Errorf("404: err = %v", err)
	}
}

func TestLoadRemoteCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewLoader("").Load(ctx, srv.URL); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestNavigableURL(t *testing.T) {
	for _, in := range []string{"https://example.com/a", "file:///tmp/a.html", "data:text/html,hi"} {
		got, err := NavigableURL(in)
		if err != nil || got != in {
			t.Errorf("NavigableURL(%q) = %q, %v", in, got, err)
		}
	}

	got, err := NavigableURL("plan.html")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, "file://") || !strings.HasSuffix(got, "/plan.html") {
		t.Errorf("NavigableURL(plan.html) = %q", got)
	}

	if _, err := NavigableURL(""); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("empty: err = %v", err)
	}
}

func TestIsLocal(t *testing.T) {
	tests := []struct {
		ref  string
		want bool
	}{
		{"plan.html", true},
		{"/srv/plans/week1.html", true},
		{"file:///tmp/a.html", true},
		{"https://example.com/a", false},
		{"http://example.com/a", false},
		{"data:text/html,hi", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsLocal(tt.ref); got != tt.want {
			t.Errorf("IsLocal(%q) = %v, want %v", tt.ref, got, tt.want)
		}
	}
}
