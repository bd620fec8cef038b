package model

import (
	"fmt"
	"io"
	"os"

	"github.com/bytedance/sonic"
)

// MarshalJSON-adjacent helpers live here so every consumer encodes the
// document the same way. Slices are materialized before encoding so the
// wire form carries [] rather than null for empty lists; downstream
// substring searches rely on the fields always being present.

// normalizeForWire replaces nil slices with empty ones in place.
func (d *Document) normalizeForWire() {
	if d.Pages == nil {
		d.Pages = []Page{}
	}
	for i := range d.Pages {
		p := &d.Pages[i]
		if p.TextBlocks == nil {
			p.TextBlocks = []TextBlock{}
		}
		if p.Tables == nil {
			p.Tables = []Table{}
		}
		if p.Images == nil {
			p.Images = []Image{}
		}
		for j := range p.TextBlocks {
			if p.TextBlocks[j].Whitespace == nil {
				p.TextBlocks[j].Whitespace = []WhitespaceMark{}
			}
		}
		for j := range p.Tables {
			t := &p.Tables[j]
			if t.BBox == nil {
				t.BBox = []float64{0, 0, 0, 0}
			}
			if t.Cells == nil {
				t.Cells = []Cell{}
			}
			if t.RawData == nil {
				t.RawData = [][]string{}
			}
		}
		for j := range p.Images {
			if p.Images[j].BBox == nil {
				p.Images[j].BBox = []float64{0, 0, 0, 0}
			}
		}
	}
}

// Encode writes the document as JSON.
func (d *Document) Encode(w io.Writer) error {
	d.normalizeForWire()
	data, err := sonic.ConfigStd.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing document: %w", err)
	}
	return nil
}

// MarshalBytes returns the document's JSON wire form.
func (d *Document) MarshalBytes() ([]byte, error) {
	d.normalizeForWire()
	data, err := sonic.ConfigStd.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	return data, nil
}

// Decode parses a document from JSON.
func Decode(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	return DecodeBytes(data)
}

// DecodeBytes parses a document from a JSON byte slice.
func DecodeBytes(data []byte) (*Document, error) {
	var d Document
	if err := sonic.ConfigStd.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	return &d, nil
}

// Save writes the document to a file path.
func (d *Document) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := d.Encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Load reads a document from a file path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return DecodeBytes(data)
}
