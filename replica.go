// Package replica provides a fluent API for the two directions of the
// document layout pipeline: extracting a structured document from a
// paginated page-description source, and reconstructing raster pages from
// a document.
//
// Extraction:
//
//	doc, err := replica.From(src).
//	    ArtifactDir("out/artifacts").
//	    Extract()
//
// Reconstruction:
//
//	paths, err := replica.Rebuild(doc).Into("out/pages")
//
// The lower-level packages (extract, render, tables, text, ocr) are also
// available when a host needs finer control.
package replica

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/tsawler/replica/artifact"
	"github.com/tsawler/replica/extract"
	"github.com/tsawler/replica/model"
	"github.com/tsawler/replica/ocr"
	"github.com/tsawler/replica/render"
	"github.com/tsawler/replica/source"
)

// Pipeline is the fluent extraction builder. Each configuration method
// returns a new Pipeline instance, so a configured chain is safe to share.
type Pipeline struct {
	src         source.Source
	cfg         extract.Config
	artifactDir string
	engine      ocr.Engine
	log         *zap.Logger
	err         error
}

// From starts an extraction pipeline over the source.
func From(src source.Source) *Pipeline {
	return &Pipeline{src: src, cfg: extract.DefaultConfig()}
}

// clone keeps the chain immutable; fail-fast state travels with it.
func (p *Pipeline) clone() *Pipeline {
	cp := *p
	return &cp
}

// WithConfig replaces the component configuration.
func (p *Pipeline) WithConfig(cfg extract.Config) *Pipeline {
	cp := p.clone()
	cp.cfg = cfg
	return cp
}

// WithLogger attaches a logger to every pipeline component.
func (p *Pipeline) WithLogger(log *zap.Logger) *Pipeline {
	cp := p.clone()
	cp.log = log
	return cp
}

// ArtifactDir persists table and image rasters under dir. Without it,
// rasters stay embedded in the document only.
func (p *Pipeline) ArtifactDir(dir string) *Pipeline {
	cp := p.clone()
	cp.artifactDir = dir
	return cp
}

// WithOCREngine supplies a recognition engine for pages with no glyph
// text. Without one, OCR() can enable the compiled-in engine instead.
func (p *Pipeline) WithOCREngine(engine ocr.Engine) *Pipeline {
	cp := p.clone()
	cp.engine = engine
	return cp
}

// OCR enables the built-in recognition engine. It fails the chain when OCR
// support was not compiled in (see the ocr package).
func (p *Pipeline) OCR() *Pipeline {
	cp := p.clone()
	if cp.err != nil {
		return cp
	}
	engine, err := ocr.NewEngine(cp.cfg.OCR)
	if err != nil {
		cp.err = fmt.Errorf("enabling OCR: %w", err)
		return cp
	}
	cp.engine = engine
	return cp
}

// Extract runs the pipeline and returns the document.
func (p *Pipeline) Extract() (*model.Document, error) {
	if p.err != nil {
		return nil, p.err
	}
	if p.src == nil {
		return nil, fmt.Errorf("no source specified")
	}

	var store *artifact.Store
	if p.artifactDir != "" {
		var err error
		store, err = artifact.NewStore(p.artifactDir, p.log)
		if err != nil {
			return nil, err
		}
	}

	e := extract.New(p.cfg, store, p.engine, p.log)
	return e.Extract(p.src)
}

// ExtractToFile runs the pipeline and saves the document as JSON.
func (p *Pipeline) ExtractToFile(path string) (*model.Document, error) {
	doc, err := p.Extract()
	if err != nil {
		return nil, err
	}
	if err := doc.Save(path); err != nil {
		return nil, err
	}
	return doc, nil
}

// Rebuilder is the fluent reconstruction builder.
type Rebuilder struct {
	doc *model.Document
	cfg render.Config
	log *zap.Logger
}

// Rebuild starts a reconstruction of the document.
func Rebuild(doc *model.Document) *Rebuilder {
	return &Rebuilder{doc: doc, cfg: render.DefaultConfig()}
}

// WithConfig replaces the reconstruction configuration.
func (r *Rebuilder) WithConfig(cfg render.Config) *Rebuilder {
	cp := *r
	cp.cfg = cfg
	return &cp
}

// WithLogger attaches a logger to the renderer.
func (r *Rebuilder) WithLogger(log *zap.Logger) *Rebuilder {
	cp := *r
	cp.log = log
	return &cp
}

// Into renders every page into dir as numbered PNG files and returns the
// written paths.
func (r *Rebuilder) Into(dir string) ([]string, error) {
	if r.doc == nil {
		return nil, fmt.Errorf("no document specified")
	}
	renderer, err := render.NewRenderer(r.cfg, r.log)
	if err != nil {
		return nil, err
	}
	return renderer.WritePages(r.doc, dir)
}

// LoadDocument reads a document from a JSON file.
func LoadDocument(path string) (*model.Document, error) {
	return model.Load(path)
}

// Must wraps a call returning (T, error) and panics on error. Intended for
// scripts and tests.
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}
