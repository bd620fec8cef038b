// Package render reconstructs a document into raster pages. Each page is
// drawn in a fixed order: table artifacts, table cell text, embedded
// images, then free text blocks with overlap suppression, so re-rendered
// content never doubles up.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/tsawler/replica/model"
)

// Config holds the reconstruction parameters.
type Config struct {
	// Scale is the raster density in pixels per page unit.
	Scale float64
	// TextMargin widens occupied regions when testing free text blocks for
	// suppression.
	TextMargin float64
	// ImageMargin widens table regions when testing whether an image lies
	// inside one and should be skipped.
	ImageMargin float64
	// MinDimension replaces degenerate target boxes.
	MinDimension float64
	// WrapHeightFactor is the overflow ratio that triggers the one-shot
	// font reduction.
	WrapHeightFactor float64
	// FontShrink is the one-shot reduction factor.
	FontShrink float64
	// FontPaths overrides the Unicode font fallback list; nil keeps the
	// default list.
	FontPaths []string
}

// DefaultConfig returns the reconstruction defaults.
func DefaultConfig() Config {
	return Config{
		Scale:            2.0,
		TextMargin:       1.0,
		ImageMargin:      2.0,
		MinDimension:     10.0,
		WrapHeightFactor: 1.5,
		FontShrink:       0.9,
	}
}

// Renderer reconstructs pages from a document. It holds the font set and
// is safe to reuse across documents from one goroutine.
type Renderer struct {
	cfg   Config
	fonts *FontSet
	log   *zap.Logger
}

// NewRenderer creates a renderer. A nil logger disables logging.
func NewRenderer(cfg Config, log *zap.Logger) (*Renderer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	fonts, err := LoadFontSet(cfg.FontPaths, log)
	if err != nil {
		return nil, fmt.Errorf("loading fonts: %w", err)
	}
	return &Renderer{cfg: cfg, fonts: fonts, log: log}, nil
}

// WritePages renders every page of the document and writes one PNG per
// page under dir as page_001.png onward. The written paths are returned in
// page order.
func (r *Renderer) WritePages(doc *model.Document, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir %s: %w", dir, err)
	}

	paths := make([]string, 0, len(doc.Pages))
	for i := range doc.Pages {
		img := r.RenderPage(&doc.Pages[i])
		path := filepath.Join(dir, fmt.Sprintf("page_%03d.png", i+1))
		if err := writePNG(path, img); err != nil {
			return paths, fmt.Errorf("writing page %d: %w", i+1, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// RenderPage reconstructs one page. Per-item failures are logged and the
// item skipped; the page always comes back drawable.
func (r *Renderer) RenderPage(p *model.Page) *image.RGBA {
	w := int(p.Width*r.cfg.Scale + 0.5)
	h := int(p.Height*r.cfg.Scale + 0.5)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	pageBox := p.Bounds()
	var tableBoxes, occupied []model.BBox

	for i := range p.Tables {
		t := &p.Tables[i]
		box := r.targetBox(t.Bounds(), pageBox)
		if err := r.drawTable(canvas, t, box); err != nil {
			r.log.Warn("drawing table failed",
				zap.Int("page", p.Number), zap.String("table", t.ID), zap.Error(err))
			continue
		}
		tableBoxes = append(tableBoxes, box)
		occupied = append(occupied, box)
	}

	for i := range p.Images {
		im := &p.Images[i]
		box := r.targetBox(im.Bounds(), pageBox)
		if overlapsAny(box, tableBoxes, r.cfg.ImageMargin) {
			continue
		}
		if err := r.drawImage(canvas, im, box); err != nil {
			r.log.Warn("drawing image failed",
				zap.Int("page", p.Number), zap.String("image", im.ID), zap.Error(err))
			continue
		}
		occupied = append(occupied, box)
	}

	for i := range p.TextBlocks {
		b := &p.TextBlocks[i]
		box := b.BBox().Normalized()
		if overlapsAny(box, occupied, r.cfg.TextMargin) {
			continue
		}
		if err := r.drawTextBlock(canvas, b, box); err != nil {
			r.log.Warn("drawing text block failed",
				zap.Int("page", p.Number), zap.String("block", b.ID), zap.Error(err))
		}
	}

	return canvas
}

// targetBox normalizes a stored box, substitutes the minimum dimension for
// degenerate ones and clamps the result to the page.
func (r *Renderer) targetBox(box, page model.BBox) model.BBox {
	box = box.Normalized().ClampMin(r.cfg.MinDimension)
	if box.X0 < page.X0 {
		box.X0 = page.X0
	}
	if box.Y0 < page.Y0 {
		box.Y0 = page.Y0
	}
	if box.X1 > page.X1 {
		box.X1 = page.X1
	}
	if box.Y1 > page.Y1 {
		box.Y1 = page.Y1
	}
	return box
}

// drawTable places the table's raster artifact and overlays cell text.
func (r *Renderer) drawTable(canvas *image.RGBA, t *model.Table, box model.BBox) error {
	raster, err := r.loadArtifact(t.Image, t.ImagePath)
	if err != nil {
		return err
	}
	if raster != nil {
		r.drawFitted(canvas, raster, box)
	}
	for i := range t.Cells {
		if t.Cells[i].Text == "" {
			continue
		}
		r.drawCell(canvas, &t.Cells[i])
	}
	return nil
}

// drawCell centers the cell's text within its box, with the one-shot font
// reduction when the wrapped text overflows the cell.
func (r *Renderer) drawCell(canvas *image.RGBA, c *model.Cell) {
	box := model.BBoxFromCoords(c.BBox)
	if box.IsEmpty() {
		return
	}
	size := 10.0 * r.cfg.Scale
	text := c.Text

	face, lines := r.fitText(text, size, false, box)
	if face == nil {
		return
	}
	defer face.Close()

	totalH := wrappedHeight(face, lines)
	startY := box.Y0*r.cfg.Scale + (box.Height()*r.cfg.Scale-totalH)/2
	r.drawLines(canvas, face, lines, box, startY, true)
}

// drawImage places the image artifact fitted into its box.
func (r *Renderer) drawImage(canvas *image.RGBA, im *model.Image, box model.BBox) error {
	raster, err := r.loadArtifact(im.Data, im.FilePath)
	if err != nil {
		return err
	}
	if raster == nil {
		return fmt.Errorf("image %s has no raster data", im.ID)
	}
	r.drawFitted(canvas, raster, box)
	return nil
}

// drawTextBlock wraps and draws a free text block from its top left.
func (r *Renderer) drawTextBlock(canvas *image.RGBA, b *model.TextBlock, box model.BBox) error {
	if b.Text == "" {
		return nil
	}
	size := b.Size * r.cfg.Scale
	if size <= 0 {
		size = 10 * r.cfg.Scale
	}

	face, lines := r.fitText(b.Text, size, b.Bold, box)
	if face == nil {
		return fmt.Errorf("no usable face for block %s", b.ID)
	}
	defer face.Close()

	r.drawLines(canvas, face, lines, box, box.Y0*r.cfg.Scale, false)
	return nil
}

// fitText wraps text at the box width and applies the one-shot reduction
// when the wrapped height overflows the box. Falls back to the bitmap face
// with safe substitution when no face can be built.
func (r *Renderer) fitText(text string, size float64, bold bool, box model.BBox) (font.Face, []string) {
	maxWidth := box.Width() * r.cfg.Scale

	face, err := r.fonts.Face(text, size, bold)
	if err != nil {
		face = r.fonts.BasicFace()
		text = SafeText(text)
	} else if !covers(face, text) {
		text = SafeText(text)
		if !covers(face, text) {
			face.Close()
			face = r.fonts.BasicFace()
		}
	}

	lines := wrapText(face, text, maxWidth)
	boxH := box.Height() * r.cfg.Scale
	if wrappedHeight(face, lines) > boxH*r.cfg.WrapHeightFactor {
		reduced, err := r.fonts.Face(text, size*r.cfg.FontShrink, bold)
		if err == nil {
			face.Close()
			face = reduced
			lines = wrapText(face, text, maxWidth)
		}
	}
	return face, lines
}

// drawLines paints wrapped lines starting at startY canvas pixels, left
// aligned at the box edge or centered when center is set.
func (r *Renderer) drawLines(canvas *image.RGBA, face font.Face, lines []string, box model.BBox, startY float64, center bool) {
	metrics := face.Metrics()
	lh := lineHeight(face)
	y := startY + float64(metrics.Ascent)/64

	for _, line := range lines {
		if line != "" {
			x := box.X0 * r.cfg.Scale
			if center {
				lw := float64(font.MeasureString(face, line)) / 64
				x += (box.Width()*r.cfg.Scale - lw) / 2
			}
			d := font.Drawer{
				Dst:  canvas,
				Src:  image.Black,
				Face: face,
				Dot:  fixed.Point26_6{X: floatToFixed(x), Y: floatToFixed(y)},
			}
			d.DrawString(line)
		}
		y += lh
	}
}

func floatToFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(v * 64)
}

// drawFitted scales src into box preserving aspect ratio, centered on the
// unused axis.
func (r *Renderer) drawFitted(canvas *image.RGBA, src image.Image, box model.BBox) {
	dstW := box.Width() * r.cfg.Scale
	dstH := box.Height() * r.cfg.Scale
	srcB := src.Bounds()
	if srcB.Dx() == 0 || srcB.Dy() == 0 || dstW <= 0 || dstH <= 0 {
		return
	}

	ratio := dstW / float64(srcB.Dx())
	if hr := dstH / float64(srcB.Dy()); hr < ratio {
		ratio = hr
	}
	w := float64(srcB.Dx()) * ratio
	h := float64(srcB.Dy()) * ratio

	x0 := box.X0*r.cfg.Scale + (dstW-w)/2
	y0 := box.Y0*r.cfg.Scale + (dstH-h)/2
	rect := image.Rect(int(x0), int(y0), int(x0+w+0.5), int(y0+h+0.5))

	draw.ApproxBiLinear.Scale(canvas, rect, src, srcB, draw.Over, nil)
}

// loadArtifact decodes the embedded raster bytes, falling back to the file
// path. Both absent is not an error for tables, whose cells still render.
func (r *Renderer) loadArtifact(data []byte, path string) (image.Image, error) {
	if len(data) > 0 {
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding embedded raster: %w", err)
		}
		return img, nil
	}
	if path == "" {
		return nil, nil
	}
	fileData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading artifact %s: %w", path, err)
	}
	img, _, err := image.Decode(bytes.NewReader(fileData))
	if err != nil {
		return nil, fmt.Errorf("decoding artifact %s: %w", path, err)
	}
	return img, nil
}

func overlapsAny(box model.BBox, regions []model.BBox, margin float64) bool {
	for _, reg := range regions {
		if box.Overlaps(reg, margin) {
			return true
		}
	}
	return false
}
