package capture

import (
	"context"
	"image"

	"golang.org/x/image/draw"

	"github.com/gompdf/rasterpdf/internal/res"
	"github.com/gompdf/rasterpdf/pkg/errors"
)

// ImageRenderer treats ContentRef.URL as an already rendered image of the
// subtree. The selector is not used. The image is taken to be at 1x and is
// resampled by the magnification.
type ImageRenderer struct {
	loader *res.Loader
}

// NewImageRenderer creates an ImageRenderer reading through loader. A nil
// loader resolves relative to the working directory.
func NewImageRenderer(loader *res.Loader) *ImageRenderer {
	if loader == nil {
		loader = res.NewLoader("")
	}
	return &ImageRenderer{loader: loader}
}

// Capture implements Renderer.
func (r *ImageRenderer) Capture(ctx context.Context, ref ContentRef, opts Options) (*Raster, error) {
	opts = opts.withDefaults()
	if ref.URL == "" {
		return nil, errors.New(errors.ErrCodeCapture, "no image to capture")
	}

	rs, err := r.loader.LoadImage(ctx, ref.URL)
	if err != nil {
		return nil, asCaptureError(err, "load %s", ref.URL)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCapture, err, "capture %s", ref.URL)
	}

	src, _, err := image.Decode(rs.Reader())
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCapture, err, "decode %s", ref.URL)
	}
	b := src.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, errors.New(errors.ErrCodeCapture, "image %s has zero area", ref.URL)
	}

	w, h := scaledSize(float64(b.Dx()), float64(b.Dy()), opts.Magnification)
	if w <= 0 || h <= 0 {
		return nil, errors.New(errors.ErrCodeCapture, "image %s has zero area at magnification %g", ref.URL, opts.Magnification)
	}
	if w == b.Dx() && h == b.Dy() {
		return NewRaster(src, opts.Background)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return NewRaster(dst, opts.Background)
}
