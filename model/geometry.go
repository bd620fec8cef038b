package model

import "math"

// MinDimension is the smallest width or height a bounding box is allowed to
// report after clamping. Source geometry is noisy enough that zero-area and
// inverted boxes show up routinely; they are repaired, not rejected.
const MinDimension = 1.0

// Point represents a 2D point in page coordinates.
type Point struct {
	X, Y float64
}

// Distance calculates the Euclidean distance to another point.
func (p Point) Distance(other Point) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// BBox is an axis-aligned bounding box in page coordinates. Y grows toward
// the bottom of the page, matching the extraction source convention.
type BBox struct {
	X0, Y0, X1, Y1 float64
}

// NewBBox creates a bounding box from two corners, normalized so that
// X0 <= X1 and Y0 <= Y1.
func NewBBox(x0, y0, x1, y1 float64) BBox {
	return BBox{X0: x0, Y0: y0, X1: x1, Y1: y1}.Normalized()
}

// Normalized returns a copy with inverted corners swapped.
func (b BBox) Normalized() BBox {
	if b.X0 > b.X1 {
		b.X0, b.X1 = b.X1, b.X0
	}
	if b.Y0 > b.Y1 {
		b.Y0, b.Y1 = b.Y1, b.Y0
	}
	return b
}

// ClampMin returns a copy whose width and height are at least min,
// growing the box rightward/downward as needed. Boxes are clamped rather
// than rejected so that noisy source geometry survives the pipeline.
func (b BBox) ClampMin(min float64) BBox {
	b = b.Normalized()
	if b.Width() < min {
		b.X1 = b.X0 + min
	}
	if b.Height() < min {
		b.Y1 = b.Y0 + min
	}
	return b
}

// Width returns the box width.
func (b BBox) Width() float64 {
	return b.X1 - b.X0
}

// Height returns the box height.
func (b BBox) Height() float64 {
	return b.Y1 - b.Y0
}

// Center returns the center point.
func (b BBox) Center() Point {
	return Point{X: (b.X0 + b.X1) / 2, Y: (b.Y0 + b.Y1) / 2}
}

// Area returns the area of the bounding box.
func (b BBox) Area() float64 {
	return b.Width() * b.Height()
}

// Contains checks whether a point lies inside the box (edges inclusive).
func (b BBox) Contains(p Point) bool {
	return p.X >= b.X0 && p.X <= b.X1 && p.Y >= b.Y0 && p.Y <= b.Y1
}

// ContainsBox checks whether other lies fully inside the box.
func (b BBox) ContainsBox(other BBox) bool {
	return other.X0 >= b.X0 && other.X1 <= b.X1 &&
		other.Y0 >= b.Y0 && other.Y1 <= b.Y1
}

// Intersects checks whether two boxes share any area.
func (b BBox) Intersects(other BBox) bool {
	return !(b.X1 < other.X0 || b.X0 > other.X1 ||
		b.Y1 < other.Y0 || b.Y0 > other.Y1)
}

// Overlaps checks intersection with a tolerance margin applied to other.
// A positive margin makes the test more sensitive, absorbing small geometry
// noise; it is the test the reconstructor uses for suppression.
func (b BBox) Overlaps(other BBox, margin float64) bool {
	return b.X0 < other.X1+margin && b.X1 > other.X0-margin &&
		b.Y0 < other.Y1+margin && b.Y1 > other.Y0-margin
}

// Union returns the smallest box covering both boxes.
func (b BBox) Union(other BBox) BBox {
	return BBox{
		X0: math.Min(b.X0, other.X0),
		Y0: math.Min(b.Y0, other.Y0),
		X1: math.Max(b.X1, other.X1),
		Y1: math.Max(b.Y1, other.Y1),
	}
}

// Expand grows the box by a margin on all sides.
func (b BBox) Expand(margin float64) BBox {
	return BBox{
		X0: b.X0 - margin,
		Y0: b.Y0 - margin,
		X1: b.X1 + margin,
		Y1: b.Y1 + margin,
	}
}

// IsEmpty returns true if the box has no positive area.
func (b BBox) IsEmpty() bool {
	return b.Width() <= 0 || b.Height() <= 0
}

// Coords returns the box as a [x0, y0, x1, y1] slice, the wire form used by
// tables and images in the document schema.
func (b BBox) Coords() []float64 {
	return []float64{b.X0, b.Y0, b.X1, b.Y1}
}

// BBoxFromCoords builds a normalized box from a [x0, y0, x1, y1] slice.
// Slices with fewer than four values yield the zero box.
func BBoxFromCoords(coords []float64) BBox {
	if len(coords) < 4 {
		return BBox{}
	}
	return NewBBox(coords[0], coords[1], coords[2], coords[3])
}
