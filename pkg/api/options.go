package api

import (
	"image/color"
	"os"

	"github.com/charmbracelet/log"

	"github.com/gompdf/rasterpdf/internal/capture"
	"github.com/gompdf/rasterpdf/internal/filename"
	"github.com/gompdf/rasterpdf/internal/geometry"
	"github.com/gompdf/rasterpdf/internal/store"
)

// Options configures an Exporter.
type Options struct {
	// Page layout
	Format      geometry.PageFormat
	Orientation PageOrientation
	Fit         geometry.FitMode

	// Capture
	Magnification    float64
	ImageQuality     float64
	Background       color.Color
	AllowCrossOrigin bool
	Override         capture.StyleOverride
	Renderer         capture.Renderer

	// Output
	Sink      store.Sink
	Filenames filename.Resolver
	// Verify reads every document back and checks its page count before
	// it is stored.
	Verify bool

	// Document metadata
	Title    string
	Author   string
	Subject  string
	Keywords string
	Creator  string

	Logger *log.Logger
}

// Option is a function that modifies Options
type Option func(*Options)

// PageOrientation represents page orientation
type PageOrientation = geometry.Orientation

const (
	// PageOrientationPortrait sets the page to portrait orientation
	PageOrientationPortrait = geometry.Portrait
	// PageOrientationLandscape sets the page to landscape orientation
	PageOrientationLandscape = geometry.Landscape
)

// Defaults used by DefaultOptions and for zero request fields.
const (
	DefaultMagnification = capture.DefaultMagnification
	DefaultImageQuality  = 0.95
)

// DefaultOptions returns the default options: A4 portrait with 10 mm
// margins, width fit, 1.5x capture at JPEG quality 0.95, headless Chrome,
// files written to the working directory.
func DefaultOptions() Options {
	return Options{
		Format:        geometry.A4,
		Orientation:   PageOrientationPortrait,
		Fit:           geometry.FitWidth,
		Magnification: DefaultMagnification,
		ImageQuality:  DefaultImageQuality,
		Background:    color.White,
		Filenames:     filename.Default(),
		Creator:       "rasterpdf",
		Logger: log.NewWithOptions(os.Stderr, log.Options{
			Level: log.WarnLevel,
		}),
	}
}

// LessonPlanOverride is the export styling of the lesson plan pages: the
// pdf-export-mode class, the Thai font stack and hidden .no-print elements.
func LessonPlanOverride() capture.StyleOverride {
	return capture.StyleOverride{
		Class:         capture.ExportModeClass,
		FontFamily:    capture.ThaiFontStack,
		HideSelectors: []string{".no-print"},
	}
}

// WithPageFormat sets the page format
func WithPageFormat(f geometry.PageFormat) Option {
	return func(o *Options) {
		o.Format = f
	}
}

// WithOrientation sets the page orientation
func WithOrientation(orientation PageOrientation) Option {
	return func(o *Options) {
		o.Orientation = orientation
	}
}

// WithMargin sets the margin on every side, in millimetres
func WithMargin(mm float64) Option {
	return func(o *Options) {
		o.Format = o.Format.WithMargin(mm)
	}
}

// WithFit sets how the capture is scaled onto the page
func WithFit(fit geometry.FitMode) Option {
	return func(o *Options) {
		o.Fit = fit
	}
}

// WithMagnification sets the default capture scale
func WithMagnification(m float64) Option {
	return func(o *Options) {
		o.Magnification = m
	}
}

// WithImageQuality sets the default JPEG quality in (0, 1]
func WithImageQuality(q float64) Option {
	return func(o *Options) {
		o.ImageQuality = q
	}
}

// WithRenderer sets the capture backend
func WithRenderer(r capture.Renderer) Option {
	return func(o *Options) {
		o.Renderer = r
	}
}

// WithSink sets where Export stores documents
func WithSink(s store.Sink) Option {
	return func(o *Options) {
		o.Sink = s
	}
}

// WithLogger sets the logger
func WithLogger(l *log.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithTitle sets the default document title
func WithTitle(title string) Option {
	return func(o *Options) {
		o.Title = title
	}
}

// WithAuthor sets the document author
func WithAuthor(author string) Option {
	return func(o *Options) {
		o.Author = author
	}
}

// WithCreator sets the application recorded as the document creator
func WithCreator(creator string) Option {
	return func(o *Options) {
		o.Creator = creator
	}
}

// WithSubject sets the default document subject
func WithSubject(subject string) Option {
	return func(o *Options) {
		o.Subject = subject
	}
}

// WithKeywords sets the document keywords
func WithKeywords(keywords string) Option {
	return func(o *Options) {
		o.Keywords = keywords
	}
}

// WithStyleOverride sets the styling applied while capturing
func WithStyleOverride(s capture.StyleOverride) Option {
	return func(o *Options) {
		o.Override = s
	}
}

// WithBackground sets the color transparent pixels are flattened onto
func WithBackground(c color.Color) Option {
	return func(o *Options) {
		o.Background = c
	}
}

// WithCrossOrigin lets cross-origin images paint into captures
func WithCrossOrigin(allow bool) Option {
	return func(o *Options) {
		o.AllowCrossOrigin = allow
	}
}

// WithVerify enables read-back verification of every document
func WithVerify(verify bool) Option {
	return func(o *Options) {
		o.Verify = verify
	}
}

// WithFilenameResolver sets how default file names are built
func WithFilenameResolver(r filename.Resolver) Option {
	return func(o *Options) {
		o.Filenames = r
	}
}
