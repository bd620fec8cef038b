package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/tsawler/replica/model"
)

// ============================================================================
// Font Tests
// ============================================================================

func TestNeedsUnicodeFont(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"ascii", "Status: Pass", false},
		{"latin punctuation", "it's a “quote”", false},
		{"hangul", "암호모듈 시험결과", true},
		{"cjk punctuation", "제목〔부록〕", true},
		{"reference mark", "주의 ※ 참고", true},
		{"geometric shape", "item ○ done", true},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NeedsUnicodeFont(tt.in); got != tt.want {
				t.Errorf("NeedsUnicodeFont(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSafeText(t *testing.T) {
	in := "a·b ○ fine □ end"
	want := "a•b O fine [] end"
	if got := SafeText(in); got != want {
		t.Errorf("SafeText(%q) = %q, want %q", in, got, want)
	}
	if got := SafeText("untouched"); got != "untouched" {
		t.Errorf("SafeText passthrough = %q", got)
	}
}

func TestLoadFontSetSkipsMissingPaths(t *testing.T) {
	fs, err := LoadFontSet([]string{"/nonexistent/font.ttf"}, nil)
	if err != nil {
		t.Fatalf("LoadFontSet() error: %v", err)
	}
	face, err := fs.Face("plain latin", 12, false)
	if err != nil {
		t.Fatalf("Face() error: %v", err)
	}
	defer face.Close()
	if !covers(face, "plain latin") {
		t.Error("latin face does not cover plain text")
	}
}

func TestFontSetBoldFace(t *testing.T) {
	fs, err := LoadFontSet([]string{}, nil)
	if err != nil {
		t.Fatalf("LoadFontSet() error: %v", err)
	}
	face, err := fs.Face("Heading", 14, true)
	if err != nil {
		t.Fatalf("Face(bold) error: %v", err)
	}
	face.Close()
}

// ============================================================================
// Wrapping Tests
// ============================================================================

func TestWrapText(t *testing.T) {
	fs, _ := LoadFontSet([]string{}, nil)
	face, err := fs.Face("measure", 12, false)
	if err != nil {
		t.Fatalf("Face() error: %v", err)
	}
	defer face.Close()

	short := wrapText(face, "one two", 10000)
	if len(short) != 1 || short[0] != "one two" {
		t.Errorf("wrapText(wide) = %v, want single line", short)
	}

	narrow := wrapText(face, "alpha beta gamma delta", 40)
	if len(narrow) < 2 {
		t.Errorf("wrapText(narrow) = %v, want multiple lines", narrow)
	}
	for _, l := range narrow {
		if l == "" {
			t.Errorf("wrapText produced empty middle line: %v", narrow)
		}
	}

	kept := wrapText(face, "first\nsecond", 10000)
	if len(kept) != 2 {
		t.Errorf("wrapText newline = %v, want 2 lines", kept)
	}

	split := wrapText(face, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", 30)
	joined := ""
	for _, l := range split {
		joined += l
	}
	if joined != "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" {
		t.Errorf("wrapText dropped characters from an over-wide word: %v", split)
	}
}

// ============================================================================
// Renderer Tests
// ============================================================================

func countDarkIn(img *image.RGBA, x0, y0, x1, y1 int) int {
	n := 0
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			c := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			if c.Y < 128 {
				n++
			}
		}
	}
	return n
}

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("NewRenderer() error: %v", err)
	}
	return r
}

func textBlock(id, text string, x0, y0, x1, y1 float64) model.TextBlock {
	b := model.TextBlock{ID: id, Text: text, Size: 10}
	b.SetBBox(model.BBox{X0: x0, Y0: y0, X1: x1, Y1: y1})
	return b
}

func whitePNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

func TestRenderPageSizeAndBlank(t *testing.T) {
	r := newTestRenderer(t)
	p := &model.Page{Number: 1, Width: 300, Height: 400}

	img := r.RenderPage(p)
	if img.Bounds().Dx() != 600 || img.Bounds().Dy() != 800 {
		t.Errorf("canvas = %v, want 600x800", img.Bounds())
	}
	if countDarkIn(img, 0, 0, 600, 800) != 0 {
		t.Error("blank page rendered dark pixels")
	}
}

func TestRenderPageDrawsText(t *testing.T) {
	r := newTestRenderer(t)
	p := &model.Page{
		Number: 1, Width: 300, Height: 400,
		TextBlocks: []model.TextBlock{textBlock("b1", "Hello render", 20, 50, 280, 70)},
	}

	img := r.RenderPage(p)
	if countDarkIn(img, 40, 100, 560, 160) == 0 {
		t.Error("text block not drawn")
	}
}

func TestRenderPageSuppressesOverlappedText(t *testing.T) {
	r := newTestRenderer(t)
	table := model.Table{
		ID:    "t1",
		BBox:  []float64{50, 100, 250, 200},
		Image: whitePNG(40, 20),
	}
	p := &model.Page{
		Number: 1, Width: 300, Height: 400,
		Tables: []model.Table{table},
		TextBlocks: []model.TextBlock{
			textBlock("in", "duplicate cell text", 60, 120, 240, 140),
			textBlock("out", "legend", 20, 300, 200, 320),
		},
	}

	img := r.RenderPage(p)
	// Inside the table region nothing but the white artifact may appear.
	if n := countDarkIn(img, 100, 200, 500, 400); n != 0 {
		t.Errorf("suppressed block drew %d dark pixels inside table region", n)
	}
	if countDarkIn(img, 40, 600, 500, 660) == 0 {
		t.Error("block outside table region not drawn")
	}
}

func TestRenderPageDrawsCellText(t *testing.T) {
	r := newTestRenderer(t)
	table := model.Table{
		ID:    "t1",
		BBox:  []float64{50, 100, 250, 200},
		Image: whitePNG(40, 20),
		Cells: []model.Cell{
			{Row: 0, Col: 0, Text: "Pass", BBox: []float64{50, 100, 150, 150}},
		},
	}
	p := &model.Page{Number: 1, Width: 300, Height: 400, Tables: []model.Table{table}}

	img := r.RenderPage(p)
	if countDarkIn(img, 100, 200, 300, 300) == 0 {
		t.Error("cell text not drawn")
	}
}

func TestRenderPageSkipsImageInsideTable(t *testing.T) {
	r := newTestRenderer(t)

	dark := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			dark.Set(x, y, color.Black)
		}
	}
	var buf bytes.Buffer
	png.Encode(&buf, dark)

	p := &model.Page{
		Number: 1, Width: 300, Height: 400,
		Tables: []model.Table{{ID: "t1", BBox: []float64{50, 100, 250, 200}, Image: whitePNG(40, 20)}},
		Images: []model.Image{{ID: "i1", BBox: []float64{60, 110, 120, 160}, Data: buf.Bytes()}},
	}

	img := r.RenderPage(p)
	if n := countDarkIn(img, 100, 200, 500, 400); n != 0 {
		t.Errorf("image inside table drew %d dark pixels", n)
	}
}

func TestRenderPageDegenerateBoxes(t *testing.T) {
	r := newTestRenderer(t)
	p := &model.Page{
		Number: 1, Width: 300, Height: 400,
		Tables: []model.Table{{ID: "t1", BBox: []float64{50, 100, 50, 100}, Image: whitePNG(4, 4)}},
	}
	// Must not panic; the degenerate box is clamped to the minimum size.
	img := r.RenderPage(p)
	if img == nil {
		t.Fatal("RenderPage returned nil")
	}
}

func TestWritePages(t *testing.T) {
	r := newTestRenderer(t)
	doc := model.NewDocument()
	doc.AddPage(model.Page{Number: 1, Width: 100, Height: 100})
	doc.AddPage(model.Page{
		Number: 2, Width: 100, Height: 100,
		TextBlocks: []model.TextBlock{textBlock("b1", "page two", 10, 20, 90, 40)},
	})

	dir := filepath.Join(t.TempDir(), "out")
	paths, err := r.WritePages(doc, dir)
	if err != nil {
		t.Fatalf("WritePages() error: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("WritePages() = %d paths, want 2", len(paths))
	}
	for i, p := range paths {
		want := filepath.Join(dir, []string{"page_001.png", "page_002.png"}[i])
		if p != want {
			t.Errorf("paths[%d] = %q, want %q", i, p, want)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("reading %s: %v", p, err)
		}
		if _, err := png.Decode(bytes.NewReader(data)); err != nil {
			t.Errorf("%s is not valid PNG: %v", p, err)
		}
	}
}
