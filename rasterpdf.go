// Package rasterpdf exports a rendered element of a web page as a
// paginated PDF. The element is captured as one image, scaled to the page
// width and cut into page-height bands.
package rasterpdf

import (
	"github.com/gompdf/rasterpdf/internal/capture"
	"github.com/gompdf/rasterpdf/internal/geometry"
	"github.com/gompdf/rasterpdf/pkg/api"
)

type Exporter = api.Exporter
type ExportRequest = api.ExportRequest
type Result = api.Result
type Plan = api.Plan
type Options = api.Options
type Option = api.Option
type PageOrientation = api.PageOrientation

type ContentRef = capture.ContentRef
type StyleOverride = capture.StyleOverride
type Renderer = capture.Renderer
type BrowserConfig = capture.BrowserConfig
type PageFormat = geometry.PageFormat
type FitMode = geometry.FitMode

func New(opts ...Option) *Exporter              { return api.New(opts...) }
func NewWithOptions(options Options) *Exporter { return api.NewWithOptions(options) }
func DefaultOptions() Options                  { return api.DefaultOptions() }
func LessonPlanOverride() StyleOverride        { return api.LessonPlanOverride() }

// ElementRef refers to the element with the given id in the page at url.
func ElementRef(url, id string) ContentRef { return capture.ElementRef(url, id) }

// NewChromeRenderer captures with chromedp.
func NewChromeRenderer(cfg BrowserConfig) Renderer { return capture.NewChromeRenderer(cfg) }

// NewRodRenderer captures with go-rod.
func NewRodRenderer(cfg BrowserConfig) Renderer { return capture.NewRodRenderer(cfg) }

var (
	WithPageFormat       = api.WithPageFormat
	WithOrientation      = api.WithOrientation
	WithMargin           = api.WithMargin
	WithFit              = api.WithFit
	WithMagnification    = api.WithMagnification
	WithImageQuality     = api.WithImageQuality
	WithRenderer         = api.WithRenderer
	WithSink             = api.WithSink
	WithLogger           = api.WithLogger
	WithTitle            = api.WithTitle
	WithAuthor           = api.WithAuthor
	WithSubject          = api.WithSubject
	WithKeywords         = api.WithKeywords
	WithCreator          = api.WithCreator
	WithStyleOverride    = api.WithStyleOverride
	WithBackground       = api.WithBackground
	WithCrossOrigin      = api.WithCrossOrigin
	WithVerify           = api.WithVerify
	WithFilenameResolver = api.WithFilenameResolver
)

var (
	A3     = geometry.A3
	A4     = geometry.A4
	A5     = geometry.A5
	Letter = geometry.Letter
	Legal  = geometry.Legal
)

const (
	PageOrientationPortrait  = api.PageOrientationPortrait
	PageOrientationLandscape = api.PageOrientationLandscape

	FitWidth = geometry.FitWidth
	FitPage  = geometry.FitPage
)
