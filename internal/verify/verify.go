// Package verify reads generated PDFs back with pdfcpu and checks them.
package verify

import (
	"bytes"
	"io"
	"os"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/gompdf/rasterpdf/pkg/errors"
)

// pointsPerMM converts PDF user space units to millimetres.
const pointsPerMM = 72 / 25.4

var configOnce sync.Once

func config() *model.Configuration {
	configOnce.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// PageSize is the media box of a page in millimetres.
type PageSize struct {
	Width  float64
	Height float64
}

// Report describes a PDF document.
type Report struct {
	Pages    int
	Sizes    []PageSize
	Title    string
	Subject  string
	Author   string
	Creator  string
	Producer string
	Bytes    int64
}

// Inspect parses and validates the PDF read from rs.
func Inspect(rs io.ReadSeeker) (*Report, error) {
	size, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeAssembly, err, "size document")
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(errors.ErrCodeAssembly, err, "rewind document")
	}

	ctx, err := api.ReadValidateAndOptimize(rs, config())
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeAssembly, err, "read pdf")
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeAssembly, err, "count pages")
	}
	dims, err := ctx.PageDims()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeAssembly, err, "read page sizes")
	}

	r := &Report{
		Pages:    ctx.PageCount,
		Title:    ctx.Title,
		Subject:  ctx.Subject,
		Author:   ctx.Author,
		Creator:  ctx.Creator,
		Producer: ctx.Producer,
		Bytes:    size,
	}
	for _, d := range dims {
		r.Sizes = append(r.Sizes, PageSize{Width: d.Width / pointsPerMM, Height: d.Height / pointsPerMM})
	}
	return r, nil
}

// InspectBytes inspects an in-memory PDF.
func InspectBytes(data []byte) (*Report, error) {
	return Inspect(bytes.NewReader(data))
}

// InspectFile inspects the PDF at path.
func InspectFile(path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "open %s", path)
	}
	defer f.Close()
	return Inspect(f)
}

// Pages checks that data is a readable PDF with exactly want pages.
func Pages(data []byte, want int) (*Report, error) {
	r, err := InspectBytes(data)
	if err != nil {
		return nil, err
	}
	if r.Pages != want {
		return r, errors.New(errors.ErrCodeAssembly, "document has %d pages, expected %d", r.Pages, want)
	}
	return r, nil
}
