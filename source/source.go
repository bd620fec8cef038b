// Package source defines the boundary between the extraction pipeline and
// whatever supplies paginated page descriptions. The pipeline only ever
// sees these interfaces; hosts plug in real page-description readers, and
// tests use the in-memory implementation in this package.
package source

import (
	"image"

	"github.com/tsawler/replica/model"
)

// Source is a paginated page-description document.
type Source interface {
	// PageCount returns the number of pages.
	PageCount() int
	// Page returns the 1-based page n.
	Page(n int) (Page, error)
	// Title returns the document title, empty when unknown.
	Title() string
	// Close releases the underlying resources.
	Close() error
}

// Page exposes one page's geometry and content primitives.
type Page interface {
	// Size returns the page width and height in page units.
	Size() (w, h float64)
	// Blocks returns the page's positioned glyph runs, pre-grouped by the
	// source into blocks of lines of spans.
	Blocks() ([]GlyphBlock, error)
	// Rules returns the page's ruling-line segments.
	Rules() ([]Rule, error)
	// Images returns the page's embedded raster images.
	Images() ([]PlacedImage, error)
	// Render rasterizes the page, or the clip region when non-nil, at the
	// given scale (1.0 = one pixel per page unit).
	Render(scale float64, clip *model.BBox) (image.Image, error)
}

// GlyphBlock is a source-level grouping of lines. The grouping reflects the
// source's own layout analysis; the assembler refines it but trusts the
// span geometry inside it.
type GlyphBlock struct {
	Lines []model.Line
}

// BBox derives the block's bounding box as the union of its lines' boxes.
func (b GlyphBlock) BBox() model.BBox {
	var box model.BBox
	first := true
	for _, l := range b.Lines {
		lb := l.BBox()
		if first {
			box = lb
			first = false
			continue
		}
		box = box.Union(lb)
	}
	return box
}

// Rule is a straight ruling-line segment in page coordinates. Rules are the
// raw material for table grid detection; they may be drawn as strokes or as
// thin filled rectangles, both arrive here as segments.
type Rule struct {
	X0, Y0, X1, Y1 float64
}

// IsHorizontal reports whether the segment runs mostly along the x axis.
func (r Rule) IsHorizontal() bool {
	dx := r.X1 - r.X0
	dy := r.Y1 - r.Y0
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return dx >= dy
}

// Length returns the segment length.
func (r Rule) Length() float64 {
	return model.Point{X: r.X0, Y: r.Y0}.Distance(model.Point{X: r.X1, Y: r.Y1})
}

// PlacedImage is an embedded raster image positioned on the page.
type PlacedImage struct {
	BBox  model.BBox
	Image image.Image
}
