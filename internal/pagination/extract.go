package pagination

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/gompdf/rasterpdf/pkg/errors"
)

// Extract copies the rows of s out of src into a new image whose origin is
// (0, 0). src is only read.
func Extract(src image.Image, s Slice) (*image.RGBA, error) {
	b := src.Bounds()
	r := image.Rect(b.Min.X, b.Min.Y+s.SourceY, b.Max.X, b.Min.Y+s.End())
	if s.Height <= 0 || s.SourceY < 0 || !r.In(b) {
		return nil, errors.New(errors.ErrCodeGeometry,
			"slice %d rows [%d,%d) outside raster of height %d", s.Index, s.SourceY, s.End(), b.Dy())
	}

	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), src, r.Min, draw.Src)
	return dst, nil
}
