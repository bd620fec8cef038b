package source

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/tsawler/replica/model"
)

func TestMemSourcePaging(t *testing.T) {
	src := NewMemSource("doc")
	src.AddPage(595, 842)
	src.AddPage(595, 842)

	if src.PageCount() != 2 {
		t.Errorf("PageCount() = %d, want 2", src.PageCount())
	}
	if _, err := src.Page(1); err != nil {
		t.Errorf("Page(1) error: %v", err)
	}
	for _, n := range []int{0, 3, -1} {
		if _, err := src.Page(n); err == nil {
			t.Errorf("Page(%d) = nil error, want out of range", n)
		}
	}
	if src.Title() != "doc" {
		t.Errorf("Title() = %q", src.Title())
	}
}

func TestMemPageAccessorErrors(t *testing.T) {
	p := &MemPage{W: 100, H: 100, BlockErr: errors.New("boom"), RuleErr: errors.New("boom")}
	if _, err := p.Blocks(); err == nil {
		t.Error("Blocks() = nil error, want forced failure")
	}
	if _, err := p.Rules(); err == nil {
		t.Error("Rules() = nil error, want forced failure")
	}
}

func TestGlyphBlockBBox(t *testing.T) {
	b := GlyphBlock{Lines: []model.Line{
		{Spans: []model.Span{{Text: "a", BBox: model.BBox{X0: 10, Y0: 10, X1: 30, Y1: 20}}}},
		{Spans: []model.Span{{Text: "b", BBox: model.BBox{X0: 12, Y0: 25, X1: 60, Y1: 35}}}},
	}}
	want := model.BBox{X0: 10, Y0: 10, X1: 60, Y1: 35}
	if got := b.BBox(); got != want {
		t.Errorf("BBox() = %+v, want %+v", got, want)
	}
}

func TestRuleOrientation(t *testing.T) {
	if !(Rule{0, 10, 100, 10}).IsHorizontal() {
		t.Error("horizontal rule not detected")
	}
	if (Rule{10, 0, 10, 100}).IsHorizontal() {
		t.Error("vertical rule reported horizontal")
	}
	if got := (Rule{0, 0, 3, 4}).Length(); got != 5 {
		t.Errorf("Length() = %v, want 5", got)
	}
}

func countDark(img image.Image) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if c := color.GrayModel.Convert(img.At(x, y)).(color.Gray); c.Y < 128 {
				n++
			}
		}
	}
	return n
}

func TestMemPageRenderPaintsContent(t *testing.T) {
	p := &MemPage{W: 200, H: 100}
	if img, err := p.Render(1, nil); err != nil {
		t.Fatalf("Render() error: %v", err)
	} else if countDark(img) != 0 {
		t.Error("blank page rendered non-white pixels")
	}

	p.AddSpanLine(model.Span{Text: "hello", BBox: model.BBox{X0: 10, Y0: 10, X1: 60, Y1: 20}})
	p.AddRule(10, 40, 190, 40)
	img, err := p.Render(2, nil)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if img.Bounds().Dx() != 400 || img.Bounds().Dy() != 200 {
		t.Errorf("Render(2) size = %v, want 400x200", img.Bounds())
	}
	if countDark(img) == 0 {
		t.Error("page with spans and rules rendered blank")
	}
}

func TestMemPageRenderClip(t *testing.T) {
	p := &MemPage{W: 200, H: 100}
	p.AddSpanLine(model.Span{Text: "x", BBox: model.BBox{X0: 150, Y0: 50, X1: 190, Y1: 60}})

	clip := model.BBox{X0: 0, Y0: 0, X1: 100, Y1: 100}
	img, err := p.Render(1, &clip)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if img.Bounds().Dx() != 100 {
		t.Errorf("clip width = %d, want 100", img.Bounds().Dx())
	}
	if countDark(img) != 0 {
		t.Error("span outside clip leaked into the clipped render")
	}

	if _, err := p.Render(0, nil); err == nil {
		t.Error("Render(0) = nil error, want invalid scale")
	}
}
