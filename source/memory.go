package source

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/tsawler/replica/model"
)

// MemSource is an in-memory Source. Tests and embedding hosts build pages
// directly from spans, rules and images without any backing file.
type MemSource struct {
	DocTitle string
	MemPages []*MemPage
}

// NewMemSource creates an empty in-memory source.
func NewMemSource(title string) *MemSource {
	return &MemSource{DocTitle: title}
}

// AddPage appends a page and returns it for population.
func (s *MemSource) AddPage(width, height float64) *MemPage {
	p := &MemPage{W: width, H: height}
	s.MemPages = append(s.MemPages, p)
	return p
}

func (s *MemSource) PageCount() int { return len(s.MemPages) }

func (s *MemSource) Page(n int) (Page, error) {
	if n < 1 || n > len(s.MemPages) {
		return nil, fmt.Errorf("page %d out of range 1..%d", n, len(s.MemPages))
	}
	return s.MemPages[n-1], nil
}

func (s *MemSource) Title() string { return s.DocTitle }

func (s *MemSource) Close() error { return nil }

// MemPage is an in-memory Page. Render paints span and rule geometry as
// filled dark rectangles on a white background, so pages with content never
// rasterize blank.
type MemPage struct {
	W, H        float64
	GlyphBlocks []GlyphBlock
	RuleSegs    []Rule
	Placed      []PlacedImage

	// BlockErr, RuleErr force the corresponding accessor to fail; tests use
	// them to drive the fallback paths.
	BlockErr error
	RuleErr  error
}

// AddSpanLine appends a block holding a single line of spans.
func (p *MemPage) AddSpanLine(spans ...model.Span) {
	p.GlyphBlocks = append(p.GlyphBlocks, GlyphBlock{Lines: []model.Line{{Spans: spans}}})
}

// AddBlock appends a pre-grouped block.
func (p *MemPage) AddBlock(b GlyphBlock) {
	p.GlyphBlocks = append(p.GlyphBlocks, b)
}

// AddRule appends a ruling-line segment.
func (p *MemPage) AddRule(x0, y0, x1, y1 float64) {
	p.RuleSegs = append(p.RuleSegs, Rule{X0: x0, Y0: y0, X1: x1, Y1: y1})
}

// AddRect appends the four ruling segments of a rectangle's border.
func (p *MemPage) AddRect(box model.BBox) {
	p.AddRule(box.X0, box.Y0, box.X1, box.Y0)
	p.AddRule(box.X0, box.Y1, box.X1, box.Y1)
	p.AddRule(box.X0, box.Y0, box.X0, box.Y1)
	p.AddRule(box.X1, box.Y0, box.X1, box.Y1)
}

// AddImage places a raster image on the page.
func (p *MemPage) AddImage(box model.BBox, img image.Image) {
	p.Placed = append(p.Placed, PlacedImage{BBox: box, Image: img})
}

func (p *MemPage) Size() (float64, float64) { return p.W, p.H }

func (p *MemPage) Blocks() ([]GlyphBlock, error) {
	if p.BlockErr != nil {
		return nil, p.BlockErr
	}
	return p.GlyphBlocks, nil
}

func (p *MemPage) Rules() ([]Rule, error) {
	if p.RuleErr != nil {
		return nil, p.RuleErr
	}
	return p.RuleSegs, nil
}

func (p *MemPage) Images() ([]PlacedImage, error) {
	return p.Placed, nil
}

// Render rasterizes the page region. Spans and rules are drawn as filled
// dark rectangles; placed images are copied in scaled to their boxes.
func (p *MemPage) Render(scale float64, clip *model.BBox) (image.Image, error) {
	if scale <= 0 {
		return nil, fmt.Errorf("render scale %v must be positive", scale)
	}
	region := model.BBox{X1: p.W, Y1: p.H}
	if clip != nil {
		region = clip.Normalized()
	}
	w := int(region.Width()*scale + 0.5)
	h := int(region.Height()*scale + 0.5)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	toPixels := func(box model.BBox) image.Rectangle {
		return image.Rect(
			int((box.X0-region.X0)*scale),
			int((box.Y0-region.Y0)*scale),
			int((box.X1-region.X0)*scale+0.5),
			int((box.Y1-region.Y0)*scale+0.5),
		)
	}

	ink := image.NewUniform(color.Gray{Y: 30})
	for _, b := range p.GlyphBlocks {
		for _, line := range b.Lines {
			for _, s := range line.Spans {
				if s.Text == "" {
					continue
				}
				r := toPixels(s.BBox).Intersect(img.Bounds())
				draw.Draw(img, r, ink, image.Point{}, draw.Src)
			}
		}
	}
	for _, rule := range p.RuleSegs {
		box := model.NewBBox(rule.X0, rule.Y0, rule.X1, rule.Y1).ClampMin(1)
		r := toPixels(box).Intersect(img.Bounds())
		draw.Draw(img, r, ink, image.Point{}, draw.Src)
	}
	for _, pl := range p.Placed {
		r := toPixels(pl.BBox).Intersect(img.Bounds())
		draw.Draw(img, r, pl.Image, pl.Image.Bounds().Min, draw.Src)
	}
	return img, nil
}
