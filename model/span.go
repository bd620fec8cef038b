package model

// Span is a run of text sharing one font, size and boldness. Spans are owned
// by the Line that contains them and are never shared.
type Span struct {
	Text string
	BBox BBox
	Font string
	Size float64
	Bold bool
}

// Line is an ordered sequence of spans sharing a row.
type Line struct {
	Spans []Span
}

// BBox derives the line's bounding box as the union of its spans' boxes.
// A line with no spans yields the zero box.
func (l Line) BBox() BBox {
	var box BBox
	first := true
	for _, s := range l.Spans {
		if first {
			box = s.BBox
			first = false
			continue
		}
		box = box.Union(s.BBox)
	}
	return box
}

// Text concatenates span text verbatim. Whitespace already present in the
// source spans is preserved; no synthetic spacing is inserted.
func (l Line) Text() string {
	var out string
	for _, s := range l.Spans {
		out += s.Text
	}
	return out
}

// WhitespaceKind distinguishes the whitespace characters recorded for
// round-trip fidelity.
type WhitespaceKind string

const (
	WhitespaceSpace WhitespaceKind = "space"
	WhitespaceTab   WhitespaceKind = "tab"
)

// WhitespaceMark records the position of a space or tab within a block's
// text, by original character index.
type WhitespaceMark struct {
	Position int            `json:"position"`
	Kind     WhitespaceKind `json:"type"`
}

// TextBlock is a merged sequence of lines with dominant font facts and a
// position in the page hierarchy. Blocks are created once during assembly
// and are immutable afterwards, except for Level and ParentID which the
// hierarchy pass writes in a single later sweep.
type TextBlock struct {
	ID         string           `json:"id"`
	Text       string           `json:"text"`
	X0         float64          `json:"x0"`
	Y0         float64          `json:"y0"`
	X1         float64          `json:"x1"`
	Y1         float64          `json:"y1"`
	Font       string           `json:"font"`
	Bold       bool             `json:"is_bold"`
	Size       float64          `json:"size"`
	Level      int              `json:"level"`
	ParentID   *string          `json:"parent_id"`
	Whitespace []WhitespaceMark `json:"whitespace_info"`
}

// BBox returns the block's bounding box.
func (b *TextBlock) BBox() BBox {
	return BBox{X0: b.X0, Y0: b.Y0, X1: b.X1, Y1: b.Y1}
}

// SetBBox stores the four corner coordinates.
func (b *TextBlock) SetBBox(box BBox) {
	b.X0, b.Y0, b.X1, b.Y1 = box.X0, box.Y0, box.X1, box.Y1
}
