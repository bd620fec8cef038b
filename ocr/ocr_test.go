package ocr

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/tsawler/replica/model"
	"github.com/tsawler/replica/source"
)

// ============================================================================
// Preprocessing Tests
// ============================================================================

func TestPreprocessBinarizes(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			if x < 10 {
				img.Set(x, y, color.RGBA{20, 20, 20, 255})
			} else {
				img.Set(x, y, color.RGBA{230, 230, 230, 255})
			}
		}
	}

	out := Preprocess(img)
	// Away from the boundary the two halves must be pure black and white.
	if got := out.GrayAt(2, 10).Y; got != 0 {
		t.Errorf("dark half = %d, want 0", got)
	}
	if got := out.GrayAt(17, 10).Y; got != 255 {
		t.Errorf("light half = %d, want 255", got)
	}
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			if v := out.GrayAt(x, y).Y; v != 0 && v != 255 {
				t.Fatalf("pixel (%d,%d) = %d, want binary output", x, y, v)
			}
		}
	}
}

func TestOtsuThresholdSeparatesModes(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			if (x+y)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 40})
			} else {
				img.SetGray(x, y, color.Gray{Y: 200})
			}
		}
	}
	th := otsuThreshold(img)
	if th < 40 || th >= 200 {
		t.Errorf("otsuThreshold() = %d, want between the modes", th)
	}
}

func TestGaussianPreservesFlatRegions(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetGray(x, y, color.Gray{Y: 97})
		}
	}
	out := gaussian3x3(img)
	if got := out.GrayAt(4, 4).Y; got != 97 {
		t.Errorf("flat region blurred to %d, want 97", got)
	}
}

// ============================================================================
// Block Synthesis Tests
// ============================================================================

func TestSynthesizeBlocks(t *testing.T) {
	blocks := SynthesizeBlocks(3, "first line\n\n  second line  \n", 600, 800)

	if len(blocks) != 2 {
		t.Fatalf("SynthesizeBlocks() = %d blocks, want 2", len(blocks))
	}
	if blocks[0].Text != "first line" || blocks[1].Text != "second line" {
		t.Errorf("texts = %q, %q", blocks[0].Text, blocks[1].Text)
	}
	if blocks[0].ID != "p3_b1" || blocks[1].ID != "p3_b2" {
		t.Errorf("ids = %q, %q", blocks[0].ID, blocks[1].ID)
	}
	for i, b := range blocks {
		if b.Font != "Unknown" || b.Size != 10 {
			t.Errorf("blocks[%d] font facts = %q/%v", i, b.Font, b.Size)
		}
		if b.X0 != 200 || b.X1 != 400 {
			t.Errorf("blocks[%d] x range = %v..%v, want centered 200..400", i, b.X0, b.X1)
		}
	}
	if !(blocks[0].Y0 < blocks[1].Y0) {
		t.Error("blocks not spaced down the page")
	}

	if got := SynthesizeBlocks(1, "  \n\n ", 600, 800); got != nil {
		t.Errorf("SynthesizeBlocks() on blank text = %v, want nil", got)
	}
}

// ============================================================================
// Fallback Tests
// ============================================================================

type fakeEngine struct {
	text    string
	err     error
	gotData []byte
}

func (f *fakeEngine) Recognize(pngData []byte) (string, error) {
	f.gotData = pngData
	return f.text, f.err
}

func (f *fakeEngine) Close() error { return nil }

func scannedPage() *source.MemPage {
	p := &source.MemPage{W: 300, H: 400}
	// Inked geometry with no extractable text, as a scanned page presents.
	p.AddSpanLine(model.Span{Text: "x", BBox: model.BBox{X0: 40, Y0: 50, X1: 260, Y1: 70}})
	return p
}

func TestFallbackRun(t *testing.T) {
	engine := &fakeEngine{text: "Recovered heading\nRecovered body"}
	f := NewFallback(DefaultSettings(), engine, nil)

	blocks := f.Run(2, scannedPage())
	if len(blocks) != 2 {
		t.Fatalf("Run() = %d blocks, want 2", len(blocks))
	}
	for _, b := range blocks {
		if b.Text == "" {
			t.Error("synthesized block with empty text")
		}
	}

	img, err := png.Decode(bytes.NewReader(engine.gotData))
	if err != nil {
		t.Fatalf("engine received invalid PNG: %v", err)
	}
	// 300 units at 300 DPI is 1250 pixels.
	if img.Bounds().Dx() != 1250 {
		t.Errorf("prepared raster width = %d, want 1250", img.Bounds().Dx())
	}
}

func TestFallbackRecognitionFailure(t *testing.T) {
	engine := &fakeEngine{err: errors.New("tesseract unavailable")}
	f := NewFallback(DefaultSettings(), engine, nil)
	if blocks := f.Run(1, scannedPage()); blocks != nil {
		t.Errorf("Run() after engine failure = %v, want nil", blocks)
	}
}

func TestFallbackWithoutEngine(t *testing.T) {
	f := NewFallback(DefaultSettings(), nil, nil)
	if blocks := f.Run(1, scannedPage()); blocks != nil {
		t.Errorf("Run() without engine = %v, want nil", blocks)
	}
}
