// Package model defines the document representation shared by extraction
// and reconstruction.
//
// The [Document] type is the stable contract between the two directions of
// the pipeline: the extractor populates it page by page, and the renderer
// consumes it without any dependency on how it was produced. Its JSON wire
// form is also the contract with external consumers, which scan the text
// and table fields for literal values; list-valued fields therefore always
// encode as arrays, never null.
//
// # Document Structure
//
// A [Document] holds best-effort [Metadata] plus an ordered list of [Page]
// values. Each page carries its dimensions, ordered [TextBlock], [Table] and
// [Image] lists, and a flattened text string built by [Page.FlattenText].
//
// # Tables
//
// A [Table] keeps three views of the same region: the raster artifact
// (path plus bytes), the raw cell grid, and a classified [StructuredData]
// form produced by [Classify]. Export helpers convert the raw grid to
// markdown, CSV and width-aware ASCII.
//
// # Geometry
//
// [BBox] is the shared geometric primitive. Boxes are normalized on
// construction and degenerate boxes are clamped to a minimum size rather
// than rejected, so noisy source geometry never drops content.
package model
