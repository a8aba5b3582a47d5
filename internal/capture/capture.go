// Package capture rasterizes a visual subtree into a single image.
//
// A Renderer loads the page named by a ContentRef, locates the subtree
// selected by its CSS selector, and captures it at a magnification factor.
// Three renderers are provided:
//
//   - ChromeRenderer drives headless Chrome through chromedp
//   - RodRenderer drives Chrome through go-rod
//   - ImageRenderer reads an already rendered image (file, URL or data URL)
//
// Browser renderers can apply a StyleOverride for the duration of the
// capture. The override is always removed again, including when the
// capture fails.
package capture

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"math"
	"strings"

	"golang.org/x/image/draw"

	"github.com/gompdf/rasterpdf/pkg/errors"
)

// DefaultMagnification is the capture scale used when none is given.
const DefaultMagnification = 1.5

// Renderer produces a raster from a content reference.
type Renderer interface {
	Capture(ctx context.Context, ref ContentRef, opts Options) (*Raster, error)
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(ctx context.Context, ref ContentRef, opts Options) (*Raster, error)

// Capture calls f.
func (f RendererFunc) Capture(ctx context.Context, ref ContentRef, opts Options) (*Raster, error) {
	return f(ctx, ref, opts)
}

// ContentRef points at a visual subtree: the document that holds it and a
// CSS selector inside that document.
type ContentRef struct {
	URL      string
	Selector string
}

// ElementRef references the element with the given id in the document at url.
func ElementRef(url, id string) ContentRef {
	return ContentRef{URL: url, Selector: "#" + cssEscapeIdent(id)}
}

// Key identifies the subtree for exclusive access.
func (r ContentRef) Key() string {
	return r.URL + "\x00" + r.Selector
}

func (r ContentRef) String() string {
	if r.Selector == "" {
		return r.URL
	}
	return r.URL + " " + r.Selector
}

// Options control a single capture.
type Options struct {
	// Magnification multiplies the pixel density relative to CSS pixels.
	Magnification float64
	// Background fills transparent areas of the capture.
	Background color.Color
	// AllowCrossOrigin lets cross-origin images paint into the capture.
	AllowCrossOrigin bool
	// Override is applied to the document while capturing.
	Override StyleOverride
}

func (o Options) withDefaults() Options {
	if o.Magnification <= 0 || math.IsNaN(o.Magnification) {
		o.Magnification = DefaultMagnification
	}
	if o.Background == nil {
		o.Background = color.White
	}
	return o
}

// Raster is a captured pixel grid. It is never modified after capture.
type Raster struct {
	Image  image.Image
	Width  int
	Height int
}

// NewRaster flattens img onto bg and wraps the result. The returned raster
// is opaque and its bounds start at (0, 0).
func NewRaster(img image.Image, bg color.Color) (*Raster, error) {
	if img == nil {
		return nil, errors.New(errors.ErrCodeCapture, "renderer returned no image")
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, errors.New(errors.ErrCodeCapture, "captured image has zero area (%dx%d)", b.Dx(), b.Dy())
	}
	if bg == nil {
		bg = color.White
	}

	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)

	return &Raster{Image: dst, Width: b.Dx(), Height: b.Dy()}, nil
}

// decodeRaster decodes encoded image bytes into a flattened raster.
func decodeRaster(data []byte, bg color.Color) (*Raster, error) {
	if len(data) == 0 {
		return nil, errors.New(errors.ErrCodeCapture, "renderer returned an empty image")
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCapture, err, "decode capture")
	}
	return NewRaster(img, bg)
}

// scaledSize converts a CSS box size to device pixels.
func scaledSize(width, height, magnification float64) (int, int) {
	return int(math.Round(width * magnification)), int(math.Round(height * magnification))
}

// asCaptureError keeps typed errors and wraps anything else as a
// CaptureError.
func asCaptureError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if errors.GetCode(err) != "" {
		return err
	}
	return errors.Wrap(errors.ErrCodeCapture, err, format, args...)
}

// cssEscapeIdent escapes characters that would end a CSS identifier.
func cssEscapeIdent(id string) string {
	var b strings.Builder
	for i, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '-', r == '_', r >= 0x80:
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteString(`\3`)
				b.WriteRune(r)
				b.WriteByte(' ')
				continue
			}
			b.WriteRune(r)
		default:
			b.WriteByte('\\')
			b.WriteRune(r)
		}
	}
	return b.String()
}
