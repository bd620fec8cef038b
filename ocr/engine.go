// Package ocr recovers text from pages whose glyph extraction produced
// nothing, by rasterizing the page and running it through Tesseract.
//
// Recognition requires the "ocr" build tag and a system Tesseract install;
// without the tag the engine constructor returns ErrOCRNotEnabled and the
// fallback degrades to empty pages. Preprocessing and block synthesis are
// tag-free and always available.
package ocr

import (
	"bytes"
	"fmt"
	"image/png"
	"strings"

	"go.uber.org/zap"

	"github.com/tsawler/replica/model"
	"github.com/tsawler/replica/source"
)

// Settings holds the recognition parameters.
type Settings struct {
	// DPI is the rasterization density for recognition.
	DPI float64
	// Languages is the Tesseract language pair.
	Languages string
}

// DefaultSettings returns the recognition defaults.
func DefaultSettings() Settings {
	return Settings{
		DPI:       300,
		Languages: "eng+kor",
	}
}

// Engine recognizes text in an encoded PNG image.
type Engine interface {
	Recognize(pngData []byte) (string, error)
	Close() error
}

// Synthesized block geometry. Recognized text has no positions, so blocks
// get placeholder boxes centered on the page.
const (
	placeholderHalfWidth = 100.0
	placeholderHeight    = 12.0
	placeholderFont      = "Unknown"
	placeholderSize      = 10.0
)

// Fallback runs OCR for pages with no extracted blocks.
type Fallback struct {
	settings Settings
	engine   Engine
	log      *zap.Logger
}

// NewFallback creates a fallback around an engine. A nil engine disables
// recognition, which makes Run return no blocks; a nil logger disables
// logging.
func NewFallback(settings Settings, engine Engine, log *zap.Logger) *Fallback {
	if log == nil {
		log = zap.NewNop()
	}
	return &Fallback{settings: settings, engine: engine, log: log}
}

// Run rasterizes the page, preprocesses the raster and recognizes it.
// Any failure is logged and yields no blocks; an unreadable page is an
// empty page, never a pipeline error.
func (f *Fallback) Run(pageNum int, page source.Page) []model.TextBlock {
	if f.engine == nil {
		f.log.Debug("ocr engine unavailable, leaving page empty", zap.Int("page", pageNum))
		return nil
	}

	data, err := f.renderForOCR(page)
	if err != nil {
		f.log.Warn("ocr rasterization failed", zap.Int("page", pageNum), zap.Error(err))
		return nil
	}

	text, err := f.engine.Recognize(data)
	if err != nil {
		f.log.Warn("ocr recognition failed", zap.Int("page", pageNum), zap.Error(err))
		return nil
	}

	w, h := page.Size()
	blocks := SynthesizeBlocks(pageNum, text, w, h)
	f.log.Info("ocr fallback recovered text",
		zap.Int("page", pageNum), zap.Int("blocks", len(blocks)))
	return blocks
}

func (f *Fallback) renderForOCR(page source.Page) ([]byte, error) {
	img, err := page.Render(f.settings.DPI/72.0, nil)
	if err != nil {
		return nil, fmt.Errorf("rendering page: %w", err)
	}
	prepared := Preprocess(img)

	var buf bytes.Buffer
	if err := png.Encode(&buf, prepared); err != nil {
		return nil, fmt.Errorf("encoding prepared raster: %w", err)
	}
	return buf.Bytes(), nil
}

// SynthesizeBlocks turns recognized text into placeholder text blocks, one
// per non-empty line, spaced evenly down the page and centered on its
// vertical axis. Positions are synthetic; only the text carries meaning.
func SynthesizeBlocks(pageNum int, text string, pageWidth, pageHeight float64) []model.TextBlock {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if t := strings.TrimSpace(l); t != "" {
			lines = append(lines, t)
		}
	}
	if len(lines) == 0 {
		return nil
	}

	cx := pageWidth / 2
	blocks := make([]model.TextBlock, len(lines))
	for i, line := range lines {
		y := pageHeight * float64(i+1) / float64(len(lines)+1)
		b := model.TextBlock{
			ID:         fmt.Sprintf("p%d_b%d", pageNum, i+1),
			Text:       line,
			Font:       placeholderFont,
			Size:       placeholderSize,
			Whitespace: []model.WhitespaceMark{},
		}
		b.SetBBox(model.BBox{
			X0: cx - placeholderHalfWidth, Y0: y,
			X1: cx + placeholderHalfWidth, Y1: y + placeholderHeight,
		})
		blocks[i] = b
	}
	return blocks
}
