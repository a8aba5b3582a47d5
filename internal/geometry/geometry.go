// Package geometry maps a captured raster onto a physical page.
//
// All lengths are millimetres except the raster dimensions, which are
// device pixels. A Geometry is computed once per export and shared by
// every page, so the scale ratio and horizontal placement never vary
// between pages.
package geometry

import (
	"fmt"
	"math"

	"github.com/gompdf/rasterpdf/pkg/errors"
)

// FitMode selects how the scale ratio is derived from the raster.
type FitMode string

const (
	// FitWidth scales the raster to fill the available page width. Tall
	// content then spans several pages.
	FitWidth FitMode = "width"
	// FitPage scales the raster so the whole of it fits one page
	// (the smaller of the width and height ratios).
	FitPage FitMode = "page"
)

// ParseFitMode converts a user-supplied name into a FitMode.
func ParseFitMode(s string) (FitMode, error) {
	switch FitMode(s) {
	case FitWidth, "":
		return FitWidth, nil
	case FitPage:
		return FitPage, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unknown fit mode %q (want %q or %q)", s, FitWidth, FitPage)
}

// Geometry holds the layout constants of one export.
type Geometry struct {
	PageWidth  float64
	PageHeight float64
	Margin     float64

	AvailableWidth  float64
	AvailableHeight float64

	// ScaleRatio converts raster pixels to millimetres.
	ScaleRatio float64

	PlacedWidth  float64
	PlacedHeight float64

	XOffset float64
	YOffset float64
}

// Compute derives the page geometry for a raster of the given pixel size.
func Compute(rasterWidth, rasterHeight int, format PageFormat, fit FitMode) (Geometry, error) {
	if rasterWidth <= 0 || rasterHeight <= 0 {
		return Geometry{}, errors.New(errors.ErrCodeGeometry,
			"raster must have positive dimensions, got %dx%d", rasterWidth, rasterHeight)
	}
	availW := format.AvailableWidth()
	availH := format.AvailableHeight()
	if availW <= 0 || availH <= 0 || math.IsNaN(availW) || math.IsNaN(availH) {
		return Geometry{}, errors.New(errors.ErrCodeGeometry,
			"page %s (%.2fx%.2fmm, margin %.2fmm) leaves no printable area",
			format.Name, format.Width, format.Height, format.Margin)
	}

	widthRatio := availW / float64(rasterWidth)
	heightRatio := availH / float64(rasterHeight)

	ratio := widthRatio
	if fit == FitPage {
		ratio = math.Min(widthRatio, heightRatio)
	}

	placedW := float64(rasterWidth) * ratio
	placedH := float64(rasterHeight) * ratio

	return Geometry{
		PageWidth:       format.Width,
		PageHeight:      format.Height,
		Margin:          format.Margin,
		AvailableWidth:  availW,
		AvailableHeight: availH,
		ScaleRatio:      ratio,
		PlacedWidth:     placedW,
		PlacedHeight:    placedH,
		XOffset:         (format.Width - placedW) / 2,
		YOffset:         format.Margin,
	}, nil
}

// PixelsPerPage is the number of raster rows one page can hold.
func (g Geometry) PixelsPerPage() float64 {
	return g.AvailableHeight / g.ScaleRatio
}

// String renders the geometry for logs and dry runs.
func (g Geometry) String() string {
	return fmt.Sprintf("page %.1fx%.1fmm margin %.1fmm scale %.4fmm/px placed %.1fx%.1fmm at (%.2f, %.2f)",
		g.PageWidth, g.PageHeight, g.Margin, g.ScaleRatio, g.PlacedWidth, g.PlacedHeight, g.XOffset, g.YOffset)
}
