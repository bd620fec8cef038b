package model

import "strings"

// ParagraphGap is the vertical gap, in page units, beyond which consecutive
// text blocks are treated as separate paragraphs when flattening page text.
const ParagraphGap = 2.0

// Page holds everything extracted from one source page.
type Page struct {
	Number     int         `json:"page_number"`
	Width      float64     `json:"width"`
	Height     float64     `json:"height"`
	Text       string      `json:"text"`
	TextBlocks []TextBlock `json:"text_blocks"`
	Tables     []Table     `json:"tables"`
	Images     []Image     `json:"images"`
}

// FlattenText concatenates the page's block texts into a single string. A
// newline is inserted between consecutive blocks where the vertical gap
// exceeds ParagraphGap or where size, bold or level changes; otherwise the
// texts run together verbatim.
func (p *Page) FlattenText() string {
	if len(p.TextBlocks) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, b := range p.TextBlocks {
		if i > 0 {
			prev := p.TextBlocks[i-1]
			gap := b.Y0 - prev.Y1
			if gap > ParagraphGap || b.Size != prev.Size || b.Bold != prev.Bold || b.Level != prev.Level {
				sb.WriteString("\n")
			}
		}
		sb.WriteString(b.Text)
	}
	return sb.String()
}

// Bounds returns the page rectangle.
func (p *Page) Bounds() BBox {
	return BBox{X1: p.Width, Y1: p.Height}
}
