// Package pagination partitions a tall raster into page-sized bands.
//
// A Pager walks the raster top to bottom and hands out one Slice per
// output page. Slices tile the raster exactly: the first starts at row 0,
// each next one starts where the previous ended, and the last one ends at
// the raster height.
package pagination

import (
	"iter"
	"math"

	"github.com/gompdf/rasterpdf/internal/geometry"
	"github.com/gompdf/rasterpdf/pkg/errors"
)

// countTolerance absorbs floating point noise when the content height is an
// exact multiple of the page height.
const countTolerance = 1e-9

// Slice is one horizontal band of the raster, placed on one page.
type Slice struct {
	// Index is the 0-based page number.
	Index int
	// SourceY is the first raster row of the band.
	SourceY int
	// Height is the number of raster rows in the band.
	Height int
	// PlacedHeight is the band height on the page, in millimetres.
	PlacedHeight float64
}

// End returns the row just below the band.
func (s Slice) End() int { return s.SourceY + s.Height }

// Pager hands out the slices of one raster in order. It is lazy and
// cannot be rewound; create a new Pager to paginate again.
type Pager struct {
	rasterHeight int
	ratio        float64
	perPage      float64
	count        int
	next         int
}

// NewPager prepares the pagination of a raster of the given pixel height
// laid out with g.
func NewPager(rasterHeight int, g geometry.Geometry) (*Pager, error) {
	if rasterHeight <= 0 {
		return nil, errors.New(errors.ErrCodeGeometry, "raster height must be positive, got %d", rasterHeight)
	}
	if !(g.ScaleRatio > 0) || math.IsInf(g.ScaleRatio, 0) {
		return nil, errors.New(errors.ErrCodeGeometry, "invalid scale ratio %v", g.ScaleRatio)
	}
	if !(g.AvailableHeight > 0) {
		return nil, errors.New(errors.ErrCodeGeometry, "invalid available height %v", g.AvailableHeight)
	}

	p := &Pager{
		rasterHeight: rasterHeight,
		ratio:        g.ScaleRatio,
		count:        1,
	}

	total := float64(rasterHeight) * g.ScaleRatio
	if total <= g.AvailableHeight {
		return p, nil
	}

	p.perPage = g.PixelsPerPage()
	if p.perPage < 1 {
		return nil, errors.New(errors.ErrCodeGeometry,
			"a page holds %.3f raster rows; scale ratio %v is too large", p.perPage, g.ScaleRatio)
	}

	n := int(math.Ceil(float64(rasterHeight)/p.perPage - countTolerance))
	if n < 1 {
		n = 1
	}
	for n > 1 && p.start(n-1) >= rasterHeight {
		n--
	}
	p.count = n

	// Floored boundaries make some bands one row taller than perPage.
	// Such a band must still end on the page.
	if bottom := g.YOffset + float64(p.maxRows())*g.ScaleRatio; bottom > g.PageHeight+countTolerance {
		return nil, errors.New(errors.ErrCodeGeometry,
			"a %d row band ends at %.2fmm, below the %.2fmm page; scale ratio %v is too large",
			p.maxRows(), bottom, g.PageHeight, g.ScaleRatio)
	}
	return p, nil
}

// maxRows returns the height of the tallest slice.
func (p *Pager) maxRows() int {
	m := 0
	for i := 0; i < p.count; i++ {
		end := p.rasterHeight
		if i < p.count-1 {
			end = p.start(i + 1)
		}
		m = max(m, end-p.start(i))
	}
	return m
}

// start returns the first row of page i. Boundaries are floored so that a
// fractional remainder always lands on the last page.
func (p *Pager) start(i int) int {
	if i == 0 {
		return 0
	}
	return int(math.Floor(float64(i) * p.perPage))
}

// Count returns the total number of slices the pager produces.
func (p *Pager) Count() int { return p.count }

// Remaining returns the number of slices not yet handed out.
func (p *Pager) Remaining() int { return p.count - p.next }

// Next returns the next slice, or false once the raster is exhausted.
func (p *Pager) Next() (Slice, bool) {
	if p.next >= p.count {
		return Slice{}, false
	}
	i := p.next
	p.next++

	start := p.start(i)
	end := p.rasterHeight
	if i < p.count-1 {
		end = p.start(i + 1)
	}
	h := end - start
	return Slice{
		Index:        i,
		SourceY:      start,
		Height:       h,
		PlacedHeight: float64(h) * p.ratio,
	}, true
}

// All returns an iterator over the remaining slices. Breaking out of the
// loop leaves the rest of the slices unconsumed.
func (p *Pager) All() iter.Seq[Slice] {
	return func(yield func(Slice) bool) {
		for {
			s, ok := p.Next()
			if !ok || !yield(s) {
				return
			}
		}
	}
}

// Paginate returns every slice of a raster at once.
func Paginate(rasterHeight int, g geometry.Geometry) ([]Slice, error) {
	p, err := NewPager(rasterHeight, g)
	if err != nil {
		return nil, err
	}
	slices := make([]Slice, 0, p.Count())
	for s := range p.All() {
		slices = append(slices, s)
	}
	return slices, nil
}
