package model

import "fmt"

// Metadata holds best-effort document identification fields scraped from
// the first page. Fields that cannot be determined stay empty strings;
// consumers only ever need emptiness checks.
type Metadata struct {
	PageCount        int    `json:"page_count"`
	CMName           string `json:"CM_name"`
	Version          string `json:"version"`
	Date             string `json:"date"`
	TestOrganization string `json:"test_organization"`
}

// Document is the stable contract between extraction and everything that
// consumes it, including reconstruction.
type Document struct {
	Metadata Metadata `json:"metadata"`
	Pages    []Page   `json:"pages"`
}

// NewDocument creates an empty document.
func NewDocument() *Document {
	return &Document{Pages: []Page{}}
}

// AddPage appends a page and keeps the metadata page count in step.
func (d *Document) AddPage(p Page) {
	d.Pages = append(d.Pages, p)
	d.Metadata.PageCount = len(d.Pages)
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return len(d.Pages)
}

// Validate checks the document's structural invariants: table and image
// boxes lie within their page, parent_id references an earlier block on the
// same page, and each table's structured kind matches its raw grid shape.
// The first violation is returned.
func (d *Document) Validate() error {
	for _, p := range d.Pages {
		bounds := p.Bounds()

		seen := make(map[string]bool, len(p.TextBlocks))
		for _, b := range p.TextBlocks {
			if b.ParentID != nil && !seen[*b.ParentID] {
				return fmt.Errorf("page %d: block %q parent %q does not precede it", p.Number, b.ID, *b.ParentID)
			}
			seen[b.ID] = true
		}

		for _, t := range p.Tables {
			if !bounds.ContainsBox(t.Bounds()) {
				return fmt.Errorf("page %d: table %q bbox outside page bounds", p.Number, t.ID)
			}
			if !t.Structured.Matches(t.RawData) {
				return fmt.Errorf("page %d: table %q structured kind %q does not match grid shape", p.Number, t.ID, t.Structured.Kind)
			}
		}
		for _, im := range p.Images {
			if !bounds.ContainsBox(im.Bounds()) {
				return fmt.Errorf("page %d: image %q bbox outside page bounds", p.Number, im.ID)
			}
		}
	}
	return nil
}
