// Package text assembles ordered text blocks from a page's positioned glyph
// runs. It has a primary span-preserving path and a line-based fallback;
// when both yield nothing the caller is expected to fall through to OCR.
package text

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/tsawler/replica/model"
	"github.com/tsawler/replica/source"
)

// Config holds the assembler's geometric thresholds.
type Config struct {
	// LineGap is the vertical gap above which consecutive lines inside one
	// block are separated by a newline instead of joined.
	LineGap float64
	// YTolerance is the maximum y0 difference for two blocks to count as
	// sitting on the same visual row during the merge pass.
	YTolerance float64
	// CharWidthFactor estimates average glyph width as a fraction of font
	// size when judging horizontal adjacency.
	CharWidthFactor float64
	// GapFactor scales the estimated glyph width into the maximum
	// horizontal gap bridged by the merge pass.
	GapFactor float64
}

// DefaultConfig returns the assembler defaults.
func DefaultConfig() Config {
	return Config{
		LineGap:         2.0,
		YTolerance:      2.0,
		CharWidthFactor: 0.5,
		GapFactor:       1.5,
	}
}

// Assembler builds text blocks for one page at a time. It is stateless
// between pages and safe to reuse.
type Assembler struct {
	cfg Config
	log *zap.Logger
}

// NewAssembler creates an assembler. A nil logger disables logging.
func NewAssembler(cfg Config, log *zap.Logger) *Assembler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Assembler{cfg: cfg, log: log}
}

// Assemble extracts ordered text blocks from the page, excluding any line
// lying fully inside one of the given table regions. When the primary path
// errors or yields no blocks, the line-based fallback runs; an empty result
// from both paths is returned as an empty slice, never an error, so the
// caller can decide on OCR.
func (a *Assembler) Assemble(pageNum int, page source.Page, tableBoxes []model.BBox) []model.TextBlock {
	blocks, err := a.assembleSpans(pageNum, page, tableBoxes)
	if err != nil {
		a.log.Warn("span assembly failed, falling back to lines",
			zap.Int("page", pageNum), zap.Error(err))
		blocks = nil
	}
	if len(blocks) == 0 {
		fallback, err := a.assembleLines(pageNum, page, tableBoxes)
		if err != nil {
			a.log.Warn("line assembly failed", zap.Int("page", pageNum), zap.Error(err))
			return []model.TextBlock{}
		}
		blocks = fallback
	}
	sortReadingOrder(blocks)
	for i := range blocks {
		blocks[i].ID = fmt.Sprintf("p%d_b%d", pageNum, i+1)
	}
	return blocks
}

// assembleSpans is the primary path: spans are concatenated verbatim with
// whitespace positions recorded, lines separated by newlines when their
// vertical gap exceeds LineGap, and same-row blocks merged afterwards.
func (a *Assembler) assembleSpans(pageNum int, page source.Page, tableBoxes []model.BBox) ([]model.TextBlock, error) {
	glyphBlocks, err := page.Blocks()
	if err != nil {
		return nil, fmt.Errorf("reading page %d blocks: %w", pageNum, err)
	}

	var blocks []model.TextBlock
	for _, gb := range glyphBlocks {
		b, ok := a.buildBlock(gb, tableBoxes)
		if ok {
			blocks = append(blocks, b)
		}
	}
	return a.mergeSameRow(blocks), nil
}

// buildBlock converts one glyph block, skipping lines inside table regions.
// Line text is concatenated verbatim; a newline separates lines whose
// vertical gap exceeds LineGap. The block's size is the character-weighted
// average of its spans' sizes and its font the character-weighted majority
// font, so a stray oversized glyph cannot change the block's prominence.
func (a *Assembler) buildBlock(gb source.GlyphBlock, tableBoxes []model.BBox) (model.TextBlock, bool) {
	var (
		sb     strings.Builder
		box    model.BBox
		haveBB bool
		bold   bool
		prevY1 float64
		lines  int
		stats  fontStats
	)

	for _, line := range gb.Lines {
		lb := line.BBox()
		if insideAny(lb, tableBoxes) {
			continue
		}
		text := line.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}

		if lines > 0 && lb.Y0-prevY1 > a.cfg.LineGap {
			sb.WriteString("\n")
		}
		sb.WriteString(text)

		if !haveBB {
			box = lb
			haveBB = true
		} else {
			box = box.Union(lb)
		}
		for _, s := range line.Spans {
			stats.add(s)
			bold = bold || s.Bold
		}
		prevY1 = lb.Y1
		lines++
	}

	if lines == 0 {
		return model.TextBlock{}, false
	}
	b := model.TextBlock{
		Text:       sb.String(),
		Font:       stats.mainFont(),
		Size:       stats.averageSize(),
		Bold:       bold,
		Whitespace: markSpaces(sb.String()),
	}
	b.SetBBox(box)
	return b, true
}

// fontStats accumulates character-weighted font facts across spans.
type fontStats struct {
	fonts     map[string]int
	order     []string
	sizeTotal float64
	chars     int
}

func (fs *fontStats) add(s model.Span) {
	n := len([]rune(s.Text))
	if n == 0 {
		return
	}
	font := s.Font
	if font == "" {
		font = "Unknown"
	}
	if fs.fonts == nil {
		fs.fonts = make(map[string]int)
	}
	if _, ok := fs.fonts[font]; !ok {
		fs.order = append(fs.order, font)
	}
	fs.fonts[font] += n
	fs.sizeTotal += s.Size * float64(n)
	fs.chars += n
}

// mainFont returns the font carrying the most characters. Ties keep the
// font seen first.
func (fs *fontStats) mainFont() string {
	best, bestCount := "Unknown", 0
	for _, f := range fs.order {
		if fs.fonts[f] > bestCount {
			best, bestCount = f, fs.fonts[f]
		}
	}
	return best
}

// averageSize returns the character-weighted mean span size, or 10 for a
// block with no characters.
func (fs *fontStats) averageSize() float64 {
	if fs.chars == 0 {
		return 10
	}
	return fs.sizeTotal / float64(fs.chars)
}

// mergeSameRow joins blocks sharing a visual row when their horizontal gap
// is within the glyph-width estimate. The pass runs once over blocks in
// reading order, so chains of adjacent fragments collapse left to right.
func (a *Assembler) mergeSameRow(blocks []model.TextBlock) []model.TextBlock {
	if len(blocks) < 2 {
		return blocks
	}
	sortReadingOrder(blocks)

	merged := blocks[:1]
	for _, b := range blocks[1:] {
		last := &merged[len(merged)-1]
		size := math.Max(last.Size, 1)
		maxGap := size * a.cfg.CharWidthFactor * a.cfg.GapFactor
		// A slightly negative gap (overlapping fragments) still merges.
		if math.Abs(b.Y0-last.Y0) <= a.cfg.YTolerance && b.X0-last.X1 <= maxGap {
			last.Text += " " + b.Text
			last.Whitespace = markSpaces(last.Text)
			last.SetBBox(last.BBox().Union(b.BBox()))
			continue
		}
		merged = append(merged, b)
	}
	return merged
}

// assembleLines is the fallback path: one block per line, span text joined
// with single spaces, duplicates removed by rounded position.
func (a *Assembler) assembleLines(pageNum int, page source.Page, tableBoxes []model.BBox) ([]model.TextBlock, error) {
	glyphBlocks, err := page.Blocks()
	if err != nil {
		return nil, fmt.Errorf("reading page %d blocks: %w", pageNum, err)
	}

	seen := make(map[string]bool)
	var blocks []model.TextBlock
	for _, gb := range glyphBlocks {
		for _, line := range gb.Lines {
			lb := line.BBox()
			if insideAny(lb, tableBoxes) {
				continue
			}
			parts := make([]string, 0, len(line.Spans))
			var size float64
			var font string
			var bold bool
			for _, s := range line.Spans {
				if t := strings.TrimSpace(s.Text); t != "" {
					parts = append(parts, t)
				}
				if font == "" {
					font = s.Font
				}
				if s.Size > size {
					size = s.Size
				}
				bold = bold || s.Bold
			}
			text := strings.Join(parts, " ")
			if text == "" {
				continue
			}
			key := fmt.Sprintf("%s|%.1f|%.1f", text, round1(lb.X0), round1(lb.Y0))
			if seen[key] {
				continue
			}
			seen[key] = true

			b := model.TextBlock{
				Text:       text,
				Font:       font,
				Size:       size,
				Bold:       bold,
				Whitespace: markSpaces(text),
			}
			b.SetBBox(lb)
			blocks = append(blocks, b)
		}
	}
	return blocks, nil
}

// markSpaces records the rune position of every space and tab in text.
func markSpaces(text string) []model.WhitespaceMark {
	var marks []model.WhitespaceMark
	pos := 0
	for _, r := range text {
		switch r {
		case ' ':
			marks = append(marks, model.WhitespaceMark{Position: pos, Kind: model.WhitespaceSpace})
		case '\t':
			marks = append(marks, model.WhitespaceMark{Position: pos, Kind: model.WhitespaceTab})
		}
		pos++
	}
	return marks
}

func insideAny(box model.BBox, regions []model.BBox) bool {
	for _, r := range regions {
		if r.ContainsBox(box) {
			return true
		}
	}
	return false
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// sortReadingOrder orders blocks top to bottom then left to right, with
// coordinates rounded to one decimal so jitter below a tenth of a unit
// cannot reorder a row. The sort is stable so equal positions keep their
// input order.
func sortReadingOrder(blocks []model.TextBlock) {
	sort.SliceStable(blocks, func(i, j int) bool {
		ay, by := round1(blocks[i].Y0), round1(blocks[j].Y0)
		if ay != by {
			return ay < by
		}
		return round1(blocks[i].X0) < round1(blocks[j].X0)
	})
}
