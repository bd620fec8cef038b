package render

import (
	"fmt"
	"os"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/text/unicode/norm"
)

// DefaultUnicodeFontPaths is the fixed fallback list walked when text needs
// glyphs outside the Latin faces. The first file that exists, parses and
// covers the text wins.
var DefaultUnicodeFontPaths = []string{
	"/usr/share/fonts/truetype/nanum/NanumGothic.ttf",
	"/usr/share/fonts/truetype/nanum/NanumGothicBold.ttf",
	"/usr/share/fonts/opentype/noto/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/truetype/unfonts-core/UnDotum.ttf",
	"/Library/Fonts/AppleGothic.ttf",
	"C:\\Windows\\Fonts\\malgun.ttf",
}

// safeReplacements substitutes characters that commonly have no glyph in
// the available faces with close visual stand-ins.
var safeReplacements = map[rune]string{
	'·': "•",
	'○': "O",
	'□': "[]",
}

// FontSet resolves faces for drawing. Latin text uses the embedded Go
// fonts; text needing wider coverage walks the registered Unicode fonts,
// verifying glyph coverage before committing to a face. The final resort
// is the built-in bitmap face with safe character substitution.
type FontSet struct {
	latin     *opentype.Font
	latinBold *opentype.Font
	unicode   []*opentype.Font
	log       *zap.Logger
}

// LoadFontSet parses the embedded Latin fonts and registers every readable
// font from paths as a Unicode candidate. Unreadable paths are logged and
// skipped; an empty candidate list is not an error.
func LoadFontSet(paths []string, log *zap.Logger) (*FontSet, error) {
	if log == nil {
		log = zap.NewNop()
	}
	latin, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing embedded regular font: %w", err)
	}
	latinBold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing embedded bold font: %w", err)
	}

	fs := &FontSet{latin: latin, latinBold: latinBold, log: log}
	if paths == nil {
		paths = DefaultUnicodeFontPaths
	}
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		f, err := opentype.Parse(data)
		if err != nil {
			log.Debug("skipping unparseable font", zap.String("path", p), zap.Error(err))
			continue
		}
		fs.unicode = append(fs.unicode, f)
	}
	return fs, nil
}

// Face returns a face for the text at the given size. Text is normalized
// to NFC before coverage checks. When no registered face covers the text,
// the Latin face is returned anyway and the caller is expected to have run
// SafeText over the string.
func (fs *FontSet) Face(text string, size float64, bold bool) (font.Face, error) {
	if size <= 0 {
		size = 1
	}
	text = norm.NFC.String(text)

	if !NeedsUnicodeFont(text) {
		return fs.newFace(fs.latinFont(bold), size)
	}

	for _, f := range fs.unicode {
		face, err := fs.newFace(f, size)
		if err != nil {
			continue
		}
		if covers(face, text) {
			return face, nil
		}
		face.Close()
	}

	fs.log.Debug("no registered font covers text, substituting",
		zap.String("text", text))
	return fs.newFace(fs.latinFont(bold), size)
}

// BasicFace returns the built-in bitmap face, the last resort that always
// works.
func (fs *FontSet) BasicFace() font.Face {
	return basicfont.Face7x13
}

func (fs *FontSet) latinFont(bold bool) *opentype.Font {
	if bold {
		return fs.latinBold
	}
	return fs.latin
}

func (fs *FontSet) newFace(f *opentype.Font, size float64) (font.Face, error) {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("instantiating face at %v: %w", size, err)
	}
	return face, nil
}

// covers reports whether the face has a glyph for every non-space rune.
func covers(face font.Face, text string) bool {
	for _, r := range text {
		if r == ' ' || r == '\n' || r == '\t' {
			continue
		}
		if _, ok := face.GlyphAdvance(r); !ok {
			return false
		}
	}
	return true
}

// NeedsUnicodeFont reports whether the text contains runes the Latin faces
// are not expected to cover: Hangul syllables, CJK symbols and punctuation,
// and the wider symbol categories (reference marks, geometric shapes).
func NeedsUnicodeFont(text string) bool {
	for _, r := range text {
		switch {
		case r >= 0xAC00 && r <= 0xD7A3: // Hangul syllables
			return true
		case r >= 0x3000 && r <= 0x303F: // CJK symbols and punctuation
			return true
		case r > 0x2000 && (unicode.Is(unicode.So, r) || unicode.Is(unicode.Sm, r)):
			return true
		}
	}
	return false
}

// SafeText replaces characters known to lack glyphs in the fallback faces
// with safe stand-ins. Unmapped runes pass through unchanged.
func SafeText(text string) string {
	out := make([]rune, 0, len(text))
	for _, r := range text {
		if rep, ok := safeReplacements[r]; ok {
			out = append(out, []rune(rep)...)
			continue
		}
		out = append(out, r)
	}
	return string(out)
}
