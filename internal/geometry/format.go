package geometry

import "strings"

// PageFormat is a physical page size in millimetres with a uniform margin.
type PageFormat struct {
	Name   string
	Width  float64
	Height float64
	Margin float64
}

// DefaultMargin is the margin applied on every side of a page, in millimetres.
const DefaultMargin = 10.0

// Standard page sizes in millimetres (portrait)
var (
	A3     = PageFormat{Name: "A3", Width: 297, Height: 420, Margin: DefaultMargin}
	A4     = PageFormat{Name: "A4", Width: 210, Height: 297, Margin: DefaultMargin}
	A5     = PageFormat{Name: "A5", Width: 148, Height: 210, Margin: DefaultMargin}
	Letter = PageFormat{Name: "Letter", Width: 215.9, Height: 279.4, Margin: DefaultMargin}
	Legal  = PageFormat{Name: "Legal", Width: 215.9, Height: 355.6, Margin: DefaultMargin}
)

var formats = map[string]PageFormat{
	"a3":     A3,
	"a4":     A4,
	"a5":     A5,
	"letter": Letter,
	"legal":  Legal,
}

// Lookup returns the standard format with the given name (case-insensitive).
func Lookup(name string) (PageFormat, bool) {
	f, ok := formats[strings.ToLower(strings.TrimSpace(name))]
	return f, ok
}

// Orientation represents page orientation
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

// Oriented returns f with its sides swapped to match o.
func (f PageFormat) Oriented(o Orientation) PageFormat {
	switch o {
	case Landscape:
		if f.Width < f.Height {
			f.Width, f.Height = f.Height, f.Width
		}
	default:
		if f.Width > f.Height {
			f.Width, f.Height = f.Height, f.Width
		}
	}
	return f
}

// Orientation reports the orientation f is in. Square pages are portrait.
func (f PageFormat) Orientation() Orientation {
	if f.Width > f.Height {
		return Landscape
	}
	return Portrait
}

// WithMargin returns a copy of f using margin on every side.
func (f PageFormat) WithMargin(margin float64) PageFormat {
	f.Margin = margin
	return f
}

// AvailableWidth is the page width minus both margins.
func (f PageFormat) AvailableWidth() float64 { return f.Width - 2*f.Margin }

// AvailableHeight is the page height minus both margins.
func (f PageFormat) AvailableHeight() float64 { return f.Height - 2*f.Margin }
