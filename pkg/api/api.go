// Package api exports a rendered visual subtree as a paginated PDF.
//
// An export captures the subtree into one raster, computes a page geometry
// once, slices the raster into page-height bands and places one band per
// page:
//
//	exp := api.New(api.WithStyleOverride(api.LessonPlanOverride()))
//	res, err := exp.Export(ctx, api.ExportRequest{
//	    Content: capture.ElementRef("file:///plans/week1.html", "lesson-plan-content"),
//	    Title:   "Intro: Science/Math",
//	    Subject: "Physics",
//	})
//
// Exports are all-or-nothing: on failure no document is stored.
package api

import (
	"bytes"
	"context"
	"io"
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gompdf/rasterpdf/internal/capture"
	"github.com/gompdf/rasterpdf/internal/geometry"
	"github.com/gompdf/rasterpdf/internal/pagination"
	"github.com/gompdf/rasterpdf/internal/render/pdf"
	"github.com/gompdf/rasterpdf/internal/store"
	"github.com/gompdf/rasterpdf/internal/verify"
	"github.com/gompdf/rasterpdf/pkg/errors"
)

// ExportRequest describes one export. Zero Magnification and ImageQuality
// take the exporter's defaults; empty Title and Subject likewise.
type ExportRequest struct {
	Content    capture.ContentRef
	OutputName string
	Title      string
	Subject    string

	Magnification float64
	ImageQuality  float64
}

// Result describes a finished document.
type Result struct {
	Filename string
	// Location is where the sink stored the document ("" for ExportTo).
	Location string
	Title    string
	Pages    int
	Geometry geometry.Geometry
	Size     int64
	Data     []byte
}

// Plan is the page layout an export would produce, without the document.
type Plan struct {
	Filename     string
	RasterWidth  int
	RasterHeight int
	Format       geometry.PageFormat
	Geometry     geometry.Geometry
	Slices       []pagination.Slice
}

// Exporter runs exports. It is safe for concurrent use; concurrent exports
// of the same content are rejected with BUSY.
type Exporter struct {
	options Options

	mu   sync.Mutex
	busy map[string]struct{}
}

// New creates an exporter with the default options modified by opts.
func New(opts ...Option) *Exporter {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return NewWithOptions(o)
}

// NewWithOptions creates an exporter with the given options.
func NewWithOptions(o Options) *Exporter {
	d := DefaultOptions()
	if o.Logger == nil {
		o.Logger = d.Logger
	}
	if o.Format.Width <= 0 || o.Format.Height <= 0 {
		o.Format = d.Format
	}
	if o.Fit == "" {
		o.Fit = d.Fit
	}
	if o.Magnification == 0 {
		o.Magnification = d.Magnification
	}
	if o.ImageQuality == 0 {
		o.ImageQuality = d.ImageQuality
	}
	if o.Background == nil {
		o.Background = d.Background
	}
	if f := o.Filenames; f.Prefix == "" && f.Extension == "" && f.Now == nil {
		o.Filenames = d.Filenames
	}
	if o.Renderer == nil {
		o.Renderer = capture.NewChromeRenderer(capture.BrowserConfig{Logger: o.Logger})
	}
	if o.Sink == nil {
		o.Sink = store.NewFileSink(".")
	}
	return &Exporter{options: o, busy: make(map[string]struct{})}
}

// Options returns a copy of the exporter's options.
func (e *Exporter) Options() Options { return e.options }

// Export produces the document and stores it through the configured sink
// under the resolved file name.
func (e *Exporter) Export(ctx context.Context, req ExportRequest) (*Result, error) {
	res, err := e.run(ctx, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	// Once pagination has started the export runs to completion.
	loc, err := e.options.Sink.Put(context.WithoutCancel(ctx), res.Filename, bytes.NewReader(res.Data), res.Size)
	if err != nil {
		return nil, asCode(err, errors.ErrCodeAssembly, "store %s", res.Filename)
	}
	res.Location = loc
	e.options.Logger.Debug("stored", "location", loc, "bytes", res.Size, "took", time.Since(start))
	return res, nil
}

// ExportTo produces the document and writes it to w. Nothing is written
// when the export fails.
func (e *Exporter) ExportTo(ctx context.Context, req ExportRequest, w io.Writer) (*Result, error) {
	res, err := e.run(ctx, req)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(res.Data); err != nil {
		return nil, errors.Wrap(errors.ErrCodeAssembly, err, "write %s", res.Filename)
	}
	return res, nil
}

// Plan captures the content and computes the page layout without
// assembling a document.
func (e *Exporter) Plan(ctx context.Context, req ExportRequest) (*Plan, error) {
	req, err := e.normalize(req)
	if err != nil {
		return nil, err
	}
	release, err := e.acquire(req.Content)
	if err != nil {
		return nil, err
	}
	defer release()

	raster, err := e.capture(ctx, req)
	if err != nil {
		return nil, err
	}
	format := e.format()
	g, err := geometry.Compute(raster.Width, raster.Height, format, e.options.Fit)
	if err != nil {
		return nil, err
	}
	slices, err := pagination.Paginate(raster.Height, g)
	if err != nil {
		return nil, err
	}
	return &Plan{
		Filename:     e.filename(req),
		RasterWidth:  raster.Width,
		RasterHeight: raster.Height,
		Format:       format,
		Geometry:     g,
		Slices:       slices,
	}, nil
}

func (e *Exporter) run(ctx context.Context, req ExportRequest) (*Result, error) {
	req, err := e.normalize(req)
	if err != nil {
		return nil, err
	}
	release, err := e.acquire(req.Content)
	if err != nil {
		return nil, err
	}
	defer release()

	logger := e.options.Logger
	name := e.filename(req)

	raster, err := e.capture(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	format := e.format()
	g, err := geometry.Compute(raster.Width, raster.Height, format, e.options.Fit)
	if err != nil {
		return nil, err
	}
	pager, err := pagination.NewPager(raster.Height, g)
	if err != nil {
		return nil, err
	}
	logger.Debug("paginate", "geometry", g.String(), "pages", pager.Count(), "took", time.Since(start))

	start = time.Now()
	asm, err := pdf.NewAssembler(pdf.AssemblerOptions{
		Format:   format,
		Geometry: g,
		Quality:  req.ImageQuality,
		Title:    req.Title,
		Subject:  req.Subject,
		Author:   e.options.Author,
		Keywords: e.options.Keywords,
		Creator:  e.options.Creator,
	})
	if err != nil {
		return nil, err
	}
	for s := range pager.All() {
		page, err := pagination.Extract(raster.Image, s)
		if err != nil {
			return nil, err
		}
		if err := asm.AddPage(page, s); err != nil {
			return nil, err
		}
	}
	data, err := asm.Finish()
	if err != nil {
		return nil, err
	}
	logger.Debug("assemble", "pages", asm.Pages(), "bytes", len(data), "took", time.Since(start))

	if e.options.Verify {
		if _, err := verify.Pages(data, asm.Pages()); err != nil {
			return nil, err
		}
	}

	return &Result{
		Filename: name,
		Title:    req.Title,
		Pages:    asm.Pages(),
		Geometry: g,
		Size:     int64(len(data)),
		Data:     data,
	}, nil
}

func (e *Exporter) capture(ctx context.Context, req ExportRequest) (*capture.Raster, error) {
	start := time.Now()
	raster, err := e.options.Renderer.Capture(ctx, req.Content, capture.Options{
		Magnification:    req.Magnification,
		Background:       e.options.Background,
		AllowCrossOrigin: e.options.AllowCrossOrigin,
		Override:         e.options.Override,
	})
	if err != nil {
		return nil, asCode(err, errors.ErrCodeCapture, "capture %s", req.Content)
	}
	if raster == nil || raster.Image == nil || raster.Width <= 0 || raster.Height <= 0 {
		return nil, errors.New(errors.ErrCodeCapture, "capture of %s produced no pixels", req.Content)
	}
	e.options.Logger.Debug("capture", "content", req.Content.String(), "px", [2]int{raster.Width, raster.Height}, "took", time.Since(start))
	return raster, nil
}

// normalize fills defaults and validates the request.
func (e *Exporter) normalize(req ExportRequest) (ExportRequest, error) {
	if req.Content.URL == "" {
		return req, errors.New(errors.ErrCodeInvalidInput, "no content to export")
	}
	if req.Magnification == 0 {
		req.Magnification = e.options.Magnification
	}
	if !(req.Magnification > 0) || math.IsInf(req.Magnification, 0) {
		return req, errors.New(errors.ErrCodeInvalidInput, "magnification must be positive, got %v", req.Magnification)
	}
	if req.ImageQuality == 0 {
		req.ImageQuality = e.options.ImageQuality
	}
	if !(req.ImageQuality > 0 && req.ImageQuality <= 1) {
		return req, errors.New(errors.ErrCodeInvalidInput, "image quality must be in (0, 1], got %v", req.ImageQuality)
	}
	if err := e.options.Override.Validate(); err != nil {
		return req, err
	}
	if req.Title == "" {
		req.Title = e.options.Title
	}
	if req.Subject == "" {
		req.Subject = e.options.Subject
	}
	return req, nil
}

func (e *Exporter) filename(req ExportRequest) string {
	return e.options.Filenames.Pick(req.OutputName, req.Title, req.Subject)
}

func (e *Exporter) format() geometry.PageFormat {
	o := e.options.Orientation
	if o == "" {
		o = PageOrientationPortrait
	}
	return e.options.Format.Oriented(o)
}

// acquire marks ref as being exported.
func (e *Exporter) acquire(ref capture.ContentRef) (func(), error) {
	key := ref.Key()
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.busy[key]; ok {
		return nil, errors.New(errors.ErrCodeBusy, "%s is already being exported", ref)
	}
	e.busy[key] = struct{}{}
	return func() {
		e.mu.Lock()
		delete(e.busy, key)
		e.mu.Unlock()
	}, nil
}

// asCode keeps coded errors and wraps the rest with code.
func asCode(err error, code errors.Code, format string, args ...any) error {
	if errors.GetCode(err) != "" {
		return err
	}
	return errors.Wrap(code, err, format, args...)
}

// Logger returns the exporter's logger.
func (e *Exporter) Logger() *log.Logger { return e.options.Logger }
