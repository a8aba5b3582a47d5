package api

import (
	"bytes"
	"context"
	stderrors "errors"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gompdf/rasterpdf/internal/capture"
	"github.com/gompdf/rasterpdf/internal/filename"
	"github.com/gompdf/rasterpdf/internal/store"
	"github.com/gompdf/rasterpdf/internal/verify"
	"github.com/gompdf/rasterpdf/pkg/errors"
)

var planRef = capture.ElementRef("file:///plans/week1.html", "lesson-plan-content")

func stripes(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		c := color.RGBA{uint8(y), uint8(y * 3), 0x40, 0xff}
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// fixedRenderer returns a w x h raster and records the options it saw.
func fixedRenderer(w, h int, seen *capture.Options) capture.Renderer {
	return capture.RendererFunc(func(_ context.Context, _ capture.ContentRef, opts capture.Options) (*capture.Raster, error) {
		if seen != nil {
			*seen = opts
		}
		return capture.NewRaster(stripes(w, h), opts.Background)
	})
}

func testResolver() filename.Resolver {
	return filename.Resolver{
		Prefix: filename.DefaultPrefix,
		Now:    func() time.Time { return time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC) },
	}
}

func newTestExporter(t *testing.T, r capture.Renderer, opts ...Option) (*Exporter, string) {
	t.Helper()
	dir := t.TempDir()
	base := []Option{
		WithRenderer(r),
		WithSink(store.NewFileSink(dir)),
		WithFilenameResolver(testResolver()),
		WithLogger(log.New(&bytes.Buffer{})),
	}
	return New(append(base, opts...)...), dir
}

func TestExportSixPages(t *testing.T) {
	// 380 px fill the 190 mm printable width at 0.5 mm/px, so 3000 rows
	// span 1500 mm: five full pages of 554 rows and a 230 row remainder.
	exp, dir := newTestExporter(t, fixedRenderer(380, 3000, nil), WithVerify(true))

	res, err := exp.Export(context.Background(), ExportRequest{
		Content: planRef,
		Title:   "Intro: Science/Math",
		Subject: "Physics",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Pages != 6 {
		t.Errorf("Pages = %d, want 6", res.Pages)
	}
	if res.Geometry.ScaleRatio != 0.5 {
		t.Errorf("ScaleRatio = %v", res.Geometry.ScaleRatio)
	}
	wantName := "lesson-plan-Intro- Science-Math-Physics-2024-01-15.pdf"
	if res.Filename != wantName {
		t.Errorf("Filename = %q, want %q", res.Filename, wantName)
	}
	if res.Location != filepath.Join(dir, wantName) {
		t.Errorf("Location = %q", res.Location)
	}

	rep, err := verify.InspectFile(res.Location)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Pages != 6 || rep.Title != "Intro: Science/Math" || rep.Subject != "Physics" {
		t.Errorf("stored document = %+v", rep)
	}
}

func TestExportSinglePage(t *testing.T) {
	exp, _ := newTestExporter(t, fixedRenderer(380, 500, nil))
	res, err := exp.Export(context.Background(), ExportRequest{Content: planRef, OutputName: "week1"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Pages != 1 || res.Filename != "week1.pdf" {
		t.Errorf("result = %d pages, %q", res.Pages, res.Filename)
	}
}

func TestExportDefaultName(t *testing.T) {
	exp, dir := newTestExporter(t, fixedRenderer(100, 100, nil))
	res, err := exp.Export(context.Background(), ExportRequest{Content: planRef})
	if err != nil {
		t.Fatal(err)
	}
	if res.Location != filepath.Join(dir, filename.Fallback) {
		t.Errorf("Location = %q", res.Location)
	}
}

func TestExportMissingContent(t *testing.T) {
	missing := capture.RendererFunc(func(context.Context, capture.ContentRef, capture.Options) (*capture.Raster, error) {
		return nil, errors.New(errors.ErrCodeCapture, "no element matches %q", "#lesson-plan-content")
	})
	exp, dir := newTestExporter(t, missing)

	_, err := exp.Export(context.Background(), ExportRequest{Content: planRef, Title: "Plan"})
	if !errors.IsCapture(err) {
		t.Fatalf("err = %v, want CAPTURE_FAILED", err)
	}
	assertEmpty(t, dir)
}

func TestExportWrapsRendererErrors(t *testing.T) {
	broken := capture.RendererFunc(func(context.Context, capture.ContentRef, capture.Options) (*capture.Raster, error) {
		return nil, stderrors.New("chrome crashed")
	})
	exp, _ := newTestExporter(t, broken)
	if _, err := exp.Export(context.Background(), ExportRequest{Content: planRef}); !errors.IsCapture(err) {
		t.Errorf("err = %v, want CAPTURE_FAILED", err)
	}
}

func TestExportInvalidRequests(t *testing.T) {
	exp, dir := newTestExporter(t, fixedRenderer(10, 10, nil))
	tests := []struct {
		name string
		req  ExportRequest
	}{
		{"no content", ExportRequest{}},
		{"negative magnification", ExportRequest{Content: planRef, Magnification: -1}},
		{"quality above one", ExportRequest{Content: planRef, ImageQuality: 1.5}},
		{"negative quality", ExportRequest{Content: planRef, ImageQuality: -0.1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := exp.Export(context.Background(), tt.req); !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("err = %v, want INVALID_INPUT", err)
			}
		})
	}
	assertEmpty(t, dir)
}

func TestExportPassesCaptureOptions(t *testing.T) {
	var seen capture.Options
	override := LessonPlanOverride()
	exp, _ := newTestExporter(t, fixedRenderer(50, 50, &seen), WithStyleOverride(override), WithCrossOrigin(true))

	if _, err := exp.ExportTo(context.Background(), ExportRequest{Content: planRef}, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	if seen.Magnification != DefaultMagnification || !seen.AllowCrossOrigin || seen.Override.Class != capture.ExportModeClass {
		t.Errorf("capture options = %+v", seen)
	}

	if _, err := exp.ExportTo(context.Background(), ExportRequest{Content: planRef, Magnification: 2}, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	if seen.Magnification != 2 {
		t.Errorf("Magnification = %v, want 2", seen.Magnification)
	}
}

func TestExportCancelledAfterCapture(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := capture.RendererFunc(func(_ context.Context, _ capture.ContentRef, opts capture.Options) (*capture.Raster, error) {
		cancel()
		return capture.NewRaster(stripes(10, 10), opts.Background)
	})
	exp, dir := newTestExporter(t, r)

	if _, err := exp.Export(ctx, ExportRequest{Content: planRef}); !stderrors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	assertEmpty(t, dir)
}

func TestExportBusy(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	r := capture.RendererFunc(func(_ context.Context, ref capture.ContentRef, opts capture.Options) (*capture.Raster, error) {
		if ref == planRef {
			once.Do(func() { close(entered) })
			<-release
		}
		return capture.NewRaster(stripes(20, 20), opts.Background)
	})
	exp, _ := newTestExporter(t, r)

	done := make(chan error, 1)
	go func() {
		_, err := exp.ExportTo(context.Background(), ExportRequest{Content: planRef}, &bytes.Buffer{})
		done <- err
	}()
	<-entered

	if _, err := exp.ExportTo(context.Background(), ExportRequest{Content: planRef}, &bytes.Buffer{}); !errors.Is(err, errors.ErrCodeBusy) {
		t.Errorf("second export err = %v, want BUSY", err)
	}
	other := capture.ElementRef("file:///plans/week2.html", "lesson-plan-content")
	if _, err := exp.ExportTo(context.Background(), ExportRequest{Content: other}, &bytes.Buffer{}); err != nil {
		t.Errorf("other content err = %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first export err = %v", err)
	}
	if _, err := exp.ExportTo(context.Background(), ExportRequest{Content: planRef}, &bytes.Buffer{}); err != nil {
		t.Errorf("export after release err = %v", err)
	}
}

func TestExportToWritesDocument(t *testing.T) {
	exp, dir := newTestExporter(t, fixedRenderer(380, 1200, nil))
	var buf bytes.Buffer
	res, err := exp.ExportTo(context.Background(), ExportRequest{Content: planRef, Title: "Plan"}, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if res.Location != "" {
		t.Errorf("Location = %q", res.Location)
	}
	if _, err := verify.Pages(buf.Bytes(), res.Pages); err != nil {
		t.Error(err)
	}
	assertEmpty(t, dir)
}

func TestPlan(t *testing.T) {
	exp, dir := newTestExporter(t, fixedRenderer(380, 3000, nil))
	p, err := exp.Plan(context.Background(), ExportRequest{Content: planRef, Title: "Plan"})
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Slices) != 6 || p.RasterWidth != 380 || p.RasterHeight != 3000 {
		t.Errorf("plan = %d slices, %dx%d", len(p.Slices), p.RasterWidth, p.RasterHeight)
	}
	if p.Filename != "lesson-plan-Plan-2024-01-15.pdf" {
		t.Errorf("Filename = %q", p.Filename)
	}
	assertEmpty(t, dir)
}

func TestLandscapeOrientation(t *testing.T) {
	exp, _ := newTestExporter(t, fixedRenderer(277, 100, nil), WithOrientation(PageOrientationLandscape))
	res, err := exp.ExportTo(context.Background(), ExportRequest{Content: planRef}, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Geometry.PageWidth != 297 || res.Geometry.ScaleRatio != 1 {
		t.Errorf("geometry = %s", res.Geometry)
	}
}

type failingSink struct{}

func (failingSink) Put(context.Context, string, io.Reader, int64) (string, error) {
	return "", stderrors.New("bucket unreachable")
}

func TestExportSinkFailure(t *testing.T) {
	exp, _ := newTestExporter(t, fixedRenderer(10, 10, nil), WithSink(failingSink{}))
	if _, err := exp.Export(context.Background(), ExportRequest{Content: planRef}); !errors.IsAssembly(err) {
		t.Errorf("err = %v, want ASSEMBLY_FAILED", err)
	}
}

func assertEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("directory holds %d entries, want none", len(entries))
	}
}
