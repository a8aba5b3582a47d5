// Package pdf assembles page images into a PDF document with fpdf.
package pdf

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"math"
	"time"

	"codeberg.org/go-pdf/fpdf"

	"github.com/gompdf/rasterpdf/internal/geometry"
	"github.com/gompdf/rasterpdf/internal/pagination"
	"github.com/gompdf/rasterpdf/pkg/errors"
)

// DefaultQuality is the JPEG quality used when none is given.
const DefaultQuality = 0.95

// AssemblerOptions configures a document.
type AssemblerOptions struct {
	Format   geometry.PageFormat
	Geometry geometry.Geometry
	// Quality is the JPEG quality in (0, 1].
	Quality float64

	Title    string
	Author   string
	Subject  string
	Keywords string
	Creator  string
	Producer string
	// CreationDate is stamped into the document info. Zero means now.
	CreationDate time.Time
}

// Assembler builds a PDF with one image per page. Pages are appended in
// the order AddPage is called.
type Assembler struct {
	opts  AssemblerOptions
	doc   *fpdf.Fpdf
	pages int
	err   error
}

// NewAssembler starts an empty document.
func NewAssembler(opts AssemblerOptions) (*Assembler, error) {
	f := opts.Format
	if f.Width <= 0 || f.Height <= 0 {
		return nil, errors.New(errors.ErrCodeAssembly, "page format %q has no size", f.Name)
	}
	g := opts.Geometry
	if g.ScaleRatio <= 0 || g.PlacedWidth <= 0 {
		return nil, errors.New(errors.ErrCodeAssembly, "page geometry has no placed width")
	}
	if opts.Quality == 0 {
		opts.Quality = DefaultQuality
	}
	if opts.Quality < 0 || opts.Quality > 1 || math.IsNaN(opts.Quality) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "image quality %v outside (0, 1]", opts.Quality)
	}
	if opts.Creator == "" {
		opts.Creator = "rasterpdf"
	}
	if opts.Producer == "" {
		opts.Producer = "rasterpdf (fpdf)"
	}

	doc := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: f.Width, Ht: f.Height},
	})
	doc.SetMargins(f.Margin, f.Margin, f.Margin)
	doc.SetAutoPageBreak(false, 0)
	doc.SetCompression(true)
	doc.SetTitle(opts.Title, true)
	doc.SetAuthor(opts.Author, true)
	doc.SetSubject(opts.Subject, true)
	doc.SetKeywords(opts.Keywords, true)
	doc.SetCreator(opts.Creator, true)
	doc.SetProducer(opts.Producer, true)
	if !opts.CreationDate.IsZero() {
		doc.SetCreationDate(opts.CreationDate)
		doc.SetModificationDate(opts.CreationDate)
	}

	return &Assembler{opts: opts, doc: doc}, nil
}

// JPEGQuality maps a quality in (0, 1] to the encoder's 1..100 scale.
func JPEGQuality(q float64) int {
	n := int(math.Round(q * 100))
	return min(max(n, 1), 100)
}

// AddPage appends a page showing img, the pixels of slice s. The image is
// drawn at the geometry's offsets, PlacedWidth wide and s.PlacedHeight tall.
func (a *Assembler) AddPage(img image.Image, s pagination.Slice) error {
	if a.err != nil {
		return a.err
	}
	if img == nil {
		return a.fail(errors.New(errors.ErrCodeAssembly, "page %d has no image", s.Index+1))
	}
	if b := img.Bounds(); b.Dy() != s.Height || b.Dx() <= 0 {
		return a.fail(errors.New(errors.ErrCodeAssembly, "page %d image is %dx%d, slice is %d rows", s.Index+1, b.Dx(), b.Dy(), s.Height))
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality(a.opts.Quality)}); err != nil {
		return a.fail(errors.Wrap(errors.ErrCodeAssembly, err, "encode page %d", s.Index+1))
	}

	name := fmt.Sprintf("page-%04d", a.pages)
	imgOpts := fpdf.ImageOptions{ImageType: "JPG"}
	a.doc.RegisterImageOptionsReader(name, imgOpts, &buf)
	a.doc.AddPage()
	g := a.opts.Geometry
	a.doc.ImageOptions(name, g.XOffset, g.YOffset, g.PlacedWidth, s.PlacedHeight, false, imgOpts, 0, "")
	if err := a.doc.Error(); err != nil {
		return a.fail(errors.Wrap(errors.ErrCodeAssembly, err, "place page %d", s.Index+1))
	}
	a.pages++
	return nil
}

// Pages returns the number of pages added so far.
func (a *Assembler) Pages() int { return a.pages }

// Finish serializes the document. It fails if no page was added or if any
// earlier step failed; a failed assembler never yields bytes.
func (a *Assembler) Finish() ([]byte, error) {
	if a.err != nil {
		return nil, a.err
	}
	if a.pages == 0 {
		return nil, a.fail(errors.New(errors.ErrCodeAssembly, "document has no pages"))
	}
	var out bytes.Buffer
	if err := a.doc.Output(&out); err != nil {
		return nil, a.fail(errors.Wrap(errors.ErrCodeAssembly, err, "serialize document"))
	}
	return out.Bytes(), nil
}

func (a *Assembler) fail(err error) error {
	a.err = err
	return err
}
