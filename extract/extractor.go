// Package extract orchestrates the extraction direction of the pipeline:
// tables, text, images, captions, hierarchy and metadata, one page at a
// time, into a single document.
package extract

import (
	"bytes"
	"fmt"
	"image/png"

	"go.uber.org/zap"

	"github.com/tsawler/replica/artifact"
	"github.com/tsawler/replica/caption"
	"github.com/tsawler/replica/layout"
	"github.com/tsawler/replica/model"
	"github.com/tsawler/replica/ocr"
	"github.com/tsawler/replica/source"
	"github.com/tsawler/replica/tables"
	"github.com/tsawler/replica/text"
)

// ImageMinDimension is the minimum width and height an embedded image's
// bbox is clamped to.
const ImageMinDimension = 10.0

// ImageRasterScale is the render scale for embedded image artifacts.
const ImageRasterScale = 2.0

// Config aggregates the per-component settings.
type Config struct {
	Text    text.Config
	Tables  tables.Settings
	Caption caption.Config
	OCR     ocr.Settings
}

// DefaultConfig returns the defaults of every component.
func DefaultConfig() Config {
	return Config{
		Text:    text.DefaultConfig(),
		Tables:  tables.DefaultSettings(),
		Caption: caption.DefaultConfig(),
		OCR:     ocr.DefaultSettings(),
	}
}

// Extractor runs the extraction pipeline. Pages are processed strictly in
// order by a single goroutine; the document is the only accumulating state.
type Extractor struct {
	cfg       Config
	store     *artifact.Store
	assembler *text.Assembler
	tables    *tables.Extractor
	captions  *caption.Resolver
	hierarchy *layout.Inferencer
	fallback  *ocr.Fallback
	log       *zap.Logger
}

// New creates an extractor. The store may be nil, in which case artifacts
// stay embedded in the document and no files are written. The OCR engine
// may be nil, in which case empty pages stay empty. A nil logger disables
// logging.
func New(cfg Config, store *artifact.Store, engine ocr.Engine, log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{
		cfg:       cfg,
		store:     store,
		assembler: text.NewAssembler(cfg.Text, log),
		tables:    tables.NewExtractor(cfg.Tables, log),
		captions:  caption.NewResolver(cfg.Caption, log),
		hierarchy: layout.NewInferencer(log),
		fallback:  ocr.NewFallback(cfg.OCR, engine, log),
		log:       log,
	}
}

// Extract runs the full pipeline over the source and returns the document.
// A page that cannot be opened is logged and skipped; everything below a
// page degrades per unit. The only fatal condition is a source with no
// pages at all being unreadable, which the caller sees as an empty
// document.
func (e *Extractor) Extract(src source.Source) (*model.Document, error) {
	doc := model.NewDocument()
	total := src.PageCount()

	for n := 1; n <= total; n++ {
		page, err := src.Page(n)
		if err != nil {
			e.log.Warn("opening page failed", zap.Int("page", n), zap.Error(err))
			continue
		}
		doc.AddPage(e.extractPage(n, page))
	}

	if len(doc.Pages) > 0 {
		md := scanMetadata(&doc.Pages[0])
		doc.Metadata.CMName = md.CMName
		doc.Metadata.Version = md.Version
		doc.Metadata.Date = md.Date
		doc.Metadata.TestOrganization = md.TestOrganization
	}
	doc.Metadata.PageCount = total
	return doc, nil
}

func (e *Extractor) extractPage(n int, page source.Page) model.Page {
	w, h := page.Size()
	p := model.Page{Number: n, Width: w, Height: h}

	// Tables first, so the assembler can exclude their regions.
	tabs := e.tables.Extract(n, page)
	tableBoxes := make([]model.BBox, len(tabs))
	for i := range tabs {
		tableBoxes[i] = tabs[i].Bounds()
	}

	blocks := e.assembler.Assemble(n, page, tableBoxes)
	if len(blocks) == 0 {
		blocks = e.fallback.Run(n, page)
	}

	for i := range tabs {
		tabs[i].Caption = e.captions.ForTable(tabs[i].Bounds(), blocks, h)
		e.persistTable(n, &tabs[i], i+1)
	}

	p.Images = e.collectImages(n, page, blocks, tableBoxes, h)

	e.hierarchy.Infer(blocks)
	p.TextBlocks = blocks
	p.Tables = tabs
	p.Text = p.FlattenText()
	return p
}

// persistTable writes the table's raster under a caption-derived name, or a
// positional one when no caption resolved. Persistence failure keeps the
// raster embedded.
func (e *Extractor) persistTable(n int, t *model.Table, idx int) {
	if e.store == nil || len(t.Image) == 0 {
		return
	}
	stem := fmt.Sprintf("table_p%d_%d", n, idx)
	if t.Caption != nil && *t.Caption != "" {
		stem = *t.Caption
	}
	path, err := e.store.SaveBytes(stem, ".png", t.Image)
	if err != nil {
		e.log.Warn("persisting table raster failed",
			zap.Int("page", n), zap.String("table", t.ID), zap.Error(err))
		return
	}
	t.ImagePath = path
}

// collectImages gathers the page's embedded images: normalized and clamped
// boxes, a 2x raster artifact, and a caption that avoids table content.
// A single image's failure is logged and that image skipped.
func (e *Extractor) collectImages(n int, page source.Page, blocks []model.TextBlock, tableBoxes []model.BBox, pageHeight float64) []model.Image {
	placed, err := page.Images()
	if err != nil {
		e.log.Warn("reading page images failed", zap.Int("page", n), zap.Error(err))
		return nil
	}

	w, _ := page.Size()
	pageBox := model.BBox{X1: w, Y1: pageHeight}

	var out []model.Image
	for i, pl := range placed {
		box := pl.BBox.Normalized().ClampMin(ImageMinDimension)
		box = clampToPage(box, pageBox)

		img := model.Image{
			ID:      fmt.Sprintf("image_%d_%d", n, i+1),
			BBox:    box.Coords(),
			Caption: e.captions.ForImage(box, blocks, tableBoxes, pageHeight),
		}

		raster, err := page.Render(ImageRasterScale, &box)
		if err != nil {
			e.log.Warn("rasterizing image failed",
				zap.Int("page", n), zap.String("image", img.ID), zap.Error(err))
			continue
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, raster); err != nil {
			e.log.Warn("encoding image raster failed",
				zap.Int("page", n), zap.String("image", img.ID), zap.Error(err))
			continue
		}
		img.Data = buf.Bytes()

		if e.store != nil {
			stem := img.ID
			if img.Caption != nil && *img.Caption != "" {
				stem = *img.Caption
			}
			path, err := e.store.SaveBytes(stem, ".png", img.Data)
			if err != nil {
				e.log.Warn("persisting image raster failed",
					zap.Int("page", n), zap.String("image", img.ID), zap.Error(err))
			} else {
				img.FilePath = path
			}
		}
		out = append(out, img)
	}
	return out
}

func clampToPage(box, page model.BBox) model.BBox {
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
