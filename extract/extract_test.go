package extract

import (
	"image"
	"image/color"
	"os"
	"strings"
	"testing"

	"github.com/tsawler/replica/artifact"
	"github.com/tsawler/replica/model"
	"github.com/tsawler/replica/source"
)

// ============================================================================
// Metadata Tests
// ============================================================================

func metaPage(blocks ...model.TextBlock) *model.Page {
	return &model.Page{Number: 1, Width: 595, Height: 842, TextBlocks: blocks}
}

func metaBlock(text string, y0 float64) model.TextBlock {
	b := model.TextBlock{Text: text, Size: 10}
	b.SetBBox(model.BBox{X0: 50, Y0: y0, X1: 400, Y1: y0 + 12})
	return b
}

func TestScanMetadataLabeled(t *testing.T) {
	page := metaPage(
		metaBlock("암호모듈명: SampleCrypto Module", 100),
		metaBlock("Version 2.1.3", 130),
		metaBlock("작성일: 2024-03-05", 160),
		metaBlock("시험기관: 한국정보보안연구소", 190),
	)

	md := scanMetadata(page)
	if md.CMName != "SampleCrypto Module" {
		t.Errorf("CMName = %q", md.CMName)
	}
	if md.Version != "V2.1.3" {
		t.Errorf("Version = %q", md.Version)
	}
	if md.Date != "2024-03-05" {
		t.Errorf("Date = %q", md.Date)
	}
	if md.TestOrganization != "한국정보보안연구소" {
		t.Errorf("TestOrganization = %q", md.TestOrganization)
	}
}

func TestScanMetadataDateForms(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"korean units", "발행: 2024년 3월 5일", "2024-03-05"},
		{"dashes", "2024-03-05", "2024-03-05"},
		{"slashes", "2024/3/5", "2024-03-05"},
		{"day first", "05/03/2024", "2024-05-03"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := scanMetadata(metaPage(metaBlock(tt.in, 100)))
			if md.Date != tt.want {
				t.Errorf("Date = %q, want %q", md.Date, tt.want)
			}
		})
	}
}

func TestScanMetadataFallbacks(t *testing.T) {
	page := metaPage(
		metaBlock("시험결과보고서", 80),
		metaBlock("42", 100),
		metaBlock("SafeCipher Device Edition", 130),
		metaBlock("Korea Testing Center", 700),
	)

	md := scanMetadata(page)
	if md.CMName != "SafeCipher Device Edition" {
		t.Errorf("CMName fallback = %q", md.CMName)
	}
	if md.TestOrganization != "Korea Testing Center" {
		t.Errorf("TestOrganization fallback = %q", md.TestOrganization)
	}
}

func TestScanMetadataEmptyPage(t *testing.T) {
	md := scanMetadata(metaPage())
	if md.CMName != "" || md.Version != "" || md.Date != "" || md.TestOrganization != "" {
		t.Errorf("scanMetadata() on empty page = %+v, want zero fields", md)
	}
}

// ============================================================================
// Pipeline Tests
// ============================================================================

func span(text string, x0, y0, x1, y1 float64) model.Span {
	return model.Span{Text: text, BBox: model.BBox{X0: x0, Y0: y0, X1: x1, Y1: y1}, Font: "Helvetica", Size: 10}
}

// reportSource builds a one-page document with a caption, a 2x2 bordered
// table and a placed image.
func reportSource() *source.MemSource {
	src := source.NewMemSource("report")
	p := src.AddPage(595, 842)

	p.AddSpanLine(span("SampleCrypto Module V1.0", 50, 60, 300, 72))
	p.AddSpanLine(span("Table 1 Result summary", 120, 180, 330, 192))

	p.AddRect(model.BBox{X0: 100, Y0: 200, X1: 400, Y1: 280})
	p.AddRule(100, 240, 400, 240)
	p.AddRule(250, 200, 250, 280)
	p.AddSpanLine(span("ID", 110, 210, 170, 222))
	p.AddSpanLine(span("TE02.03.01", 260, 210, 350, 222))
	p.AddSpanLine(span("Status", 110, 250, 170, 262))
	p.AddSpanLine(span("Pass", 260, 250, 320, 262))

	icon := image.NewRGBA(image.Rect(0, 0, 8, 8))
	icon.Set(4, 4, color.Black)
	p.AddImage(model.BBox{X0: 150, Y0: 500, X1: 350, Y1: 600}, icon)
	p.AddSpanLine(span("Figure 1 Interface overview", 150, 610, 360, 622))

	return src
}

func TestExtractEndToEnd(t *testing.T) {
	store, err := artifact.NewStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	e := New(DefaultConfig(), store, nil, nil)

	doc, err := e.Extract(reportSource())
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if err := doc.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if doc.Metadata.PageCount != 1 || len(doc.Pages) != 1 {
		t.Fatalf("page count = %d/%d, want 1", doc.Metadata.PageCount, len(doc.Pages))
	}
	page := doc.Pages[0]

	if len(page.Tables) != 1 {
		t.Fatalf("tables = %d, want 1", len(page.Tables))
	}
	tab := page.Tables[0]
	if tab.Structured.Kind != model.KindKeyValue {
		t.Fatalf("structured kind = %q, want key_value", tab.Structured.Kind)
	}
	wantPairs := []model.KeyValue{{Key: "ID", Value: "TE02.03.01"}, {Key: "Status", Value: "Pass"}}
	for i, p := range wantPairs {
		if tab.Structured.Pairs[i] != p {
			t.Errorf("Pairs[%d] = %+v, want %+v", i, tab.Structured.Pairs[i], p)
		}
	}
	if tab.Caption == nil || *tab.Caption != "Table 1 Result summary" {
		t.Errorf("table caption = %v", tab.Caption)
	}
	if tab.ImagePath == "" {
		t.Error("table raster not persisted")
	} else if _, err := os.Stat(tab.ImagePath); err != nil {
		t.Errorf("table raster missing on disk: %v", err)
	}

	// Cell text must not leak into the page's free text blocks.
	for _, b := range page.TextBlocks {
		if strings.Contains(b.Text, "TE02.03.01") || b.Text == "Pass" {
			t.Errorf("table content leaked into text blocks: %q", b.Text)
		}
	}

	if len(page.Images) != 1 {
		t.Fatalf("images = %d, want 1", len(page.Images))
	}
	img := page.Images[0]
	if img.Caption == nil || *img.Caption != "Figure 1 Interface overview" {
		t.Errorf("image caption = %v", img.Caption)
	}
	if img.FilePath == "" || len(img.Data) == 0 {
		t.Error("image artifact not persisted")
	}

	if page.Text == "" || !strings.Contains(page.Text, "SampleCrypto Module V1.0") {
		t.Errorf("flattened page text = %q", page.Text)
	}
	if doc.Metadata.CMName == "" {
		t.Error("metadata CMName not extracted")
	}
}

type fixedEngine struct{ text string }

func (f fixedEngine) Recognize([]byte) (string, error) { return f.text, nil }
func (f fixedEngine) Close() error                     { return nil }

func TestExtractOCRFallback(t *testing.T) {
	src := source.NewMemSource("scan")
	p := src.AddPage(595, 842)
	// Ink without any glyph text, the shape of a scanned page.
	p.AddRule(100, 300, 500, 300)

	e := New(DefaultConfig(), nil, fixedEngine{text: "recovered line"}, nil)
	doc, err := e.Extract(src)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	blocks := doc.Pages[0].TextBlocks
	if len(blocks) == 0 {
		t.Fatal("OCR fallback produced no blocks")
	}
	if blocks[0].Text != "recovered line" {
		t.Errorf("block text = %q", blocks[0].Text)
	}
	if blocks[0].Font != "Unknown" {
		t.Errorf("block font = %q, want Unknown", blocks[0].Font)
	}
}

func TestExtractWithoutStoreOrEngine(t *testing.T) {
	e := New(DefaultConfig(), nil, nil, nil)
	doc, err := e.Extract(reportSource())
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	tab := doc.Pages[0].Tables[0]
	if tab.ImagePath != "" {
		t.Errorf("ImagePath = %q, want empty without store", tab.ImagePath)
	}
	if len(tab.Image) == 0 {
		t.Error("raster bytes missing when store is nil")
	}
}
