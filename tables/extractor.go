// Package tables detects bordered tables from ruling-line geometry and
// extracts their cell contents. Each detected region is rasterized as an
// artifact image and its cell grid classified into a structured form.
package tables

import (
	"bytes"
	"fmt"
	"image/png"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/tsawler/replica/model"
	"github.com/tsawler/replica/source"
)

// Settings holds the table detection thresholds.
type Settings struct {
	// SnapTolerance clusters nearly collinear segments onto one boundary.
	SnapTolerance float64
	// JoinTolerance bridges gaps between collinear segments on a boundary.
	JoinTolerance float64
	// EdgeMinLength discards stray short segments.
	EdgeMinLength float64
	// RasterScale is the render scale for table artifact images.
	RasterScale float64
	// ClipMargin pads the table bbox when rasterizing.
	ClipMargin float64
}

// DefaultSettings returns the detection defaults.
func DefaultSettings() Settings {
	return Settings{
		SnapTolerance: 5,
		JoinTolerance: 5,
		EdgeMinLength: 5,
		RasterScale:   6,
		ClipMargin:    5,
	}
}

// Extractor turns a page's ruling lines and glyph runs into tables.
type Extractor struct {
	settings Settings
	detector *GridDetector
	log      *zap.Logger
}

// NewExtractor creates an extractor. A nil logger disables logging.
func NewExtractor(settings Settings, log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{
		settings: settings,
		detector: NewGridDetector(settings),
		log:      log,
	}
}

// Extract detects and extracts the page's tables. A single table's failure
// (rasterization, cell extraction) is logged and that table skipped; it
// never aborts the remaining tables. The returned tables carry their PNG
// raster in Image; persisting it is the caller's concern, since artifact
// names derive from captions resolved later.
func (e *Extractor) Extract(pageNum int, page source.Page) []model.Table {
	rules, err := page.Rules()
	if err != nil {
		e.log.Warn("reading ruling lines failed", zap.Int("page", pageNum), zap.Error(err))
		return nil
	}
	grids := e.detector.Detect(rules)
	if len(grids) == 0 {
		return nil
	}

	spans := collectSpans(page)

	var tables []model.Table
	for i, grid := range grids {
		t, err := e.extractOne(pageNum, page, &grid, spans, i+1)
		if err != nil {
			e.log.Warn("table extraction failed",
				zap.Int("page", pageNum), zap.Int("table", i+1), zap.Error(err))
			continue
		}
		tables = append(tables, t)
	}
	return tables
}

func (e *Extractor) extractOne(pageNum int, page source.Page, grid *Grid, spans []model.Span, idx int) (model.Table, error) {
	w, h := page.Size()
	pageBox := model.BBox{X1: w, Y1: h}

	clip := grid.BBox.Expand(e.settings.ClipMargin)
	clip = clampToPage(clip, pageBox)

	img, err := page.Render(e.settings.RasterScale, &clip)
	if err != nil {
		return model.Table{}, fmt.Errorf("rasterizing table region: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return model.Table{}, fmt.Errorf("encoding table raster: %w", err)
	}

	cells, grid2d := e.fillCells(grid, spans)
	cleaned := cleanGrid(grid2d)

	return model.Table{
		ID:         fmt.Sprintf("table_%d_%d", pageNum, idx),
		BBox:       grid.BBox.Coords(),
		Image:      buf.Bytes(),
		Cells:      cells,
		RawData:    cleaned,
		Structured: model.Classify(cleaned),
	}, nil
}

// fillCells assigns spans to cells by span center and joins each cell's
// text fragments in reading order.
func (e *Extractor) fillCells(grid *Grid, spans []model.Span) ([]model.Cell, [][]string) {
	rows, cols := grid.Rows(), grid.Cols()

	type frag struct {
		text string
		x, y float64
	}
	frags := make([][][]frag, rows)
	for r := range frags {
		frags[r] = make([][]frag, cols)
	}

	for _, s := range spans {
		c := s.BBox.Center()
		if !grid.BBox.Contains(c) {
			continue
		}
		r := locate(grid.RowBounds, c.Y)
		col := locate(grid.ColBounds, c.X)
		if r < 0 || col < 0 {
			continue
		}
		if t := strings.TrimSpace(s.Text); t != "" {
			frags[r][col] = append(frags[r][col], frag{text: t, x: s.BBox.X0, y: s.BBox.Y0})
		}
	}

	var cells []model.Cell
	grid2d := make([][]string, rows)
	for r := 0; r < rows; r++ {
		grid2d[r] = make([]string, cols)
		for c := 0; c < cols; c++ {
			fs := frags[r][c]
			sort.SliceStable(fs, func(i, j int) bool {
				if fs[i].y != fs[j].y {
					return fs[i].y < fs[j].y
				}
				return fs[i].x < fs[j].x
			})
			parts := make([]string, len(fs))
			for i, f := range fs {
				parts[i] = f.text
			}
			text := strings.Join(parts, " ")
			grid2d[r][c] = text
			cells = append(cells, model.Cell{
				Row: r, Col: c, Text: text,
				BBox:    grid.CellBox(r, c).Coords(),
				RowSpan: 1, ColSpan: 1,
			})
		}
	}
	return cells, grid2d
}

// locate returns the interval index of v within ascending bounds, or -1
// when v falls outside.
func locate(bounds []float64, v float64) int {
	for i := 0; i < len(bounds)-1; i++ {
		if v >= bounds[i] && v <= bounds[i+1] {
			return i
		}
	}
	return -1
}

// cleanGrid trims cell text, drops empty cells from each row and drops rows
// with no content. The cleaned, possibly ragged grid is what classification
// and the wire form carry.
func cleanGrid(grid [][]string) [][]string {
	var out [][]string
	for _, row := range grid {
		kept := make([]string, 0, len(row))
		for _, c := range row {
			if t := strings.TrimSpace(c); t != "" {
				kept = append(kept, t)
			}
		}
		if len(kept) > 0 {
			out = append(out, kept)
		}
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

// collectSpans flattens the page's glyph runs. A failure here is tolerable;
// tables then extract with geometry but empty cells.
func collectSpans(page source.Page) []model.Span {
	blocks, err := page.Blocks()
	if err != nil {
		return nil
	}
	var spans []model.Span
	for _, b := range blocks {
		for _, line := range b.Lines {
			spans = append(spans, line.Spans...)
		}
	}
	return spans
}
