package tables

import (
	"math"
	"sort"

	"github.com/tsawler/replica/model"
	"github.com/tsawler/replica/source"
)

// GridDetector finds bordered table grids among a page's ruling-line
// segments. Segments are snapped onto shared axis positions, joined when
// collinear and near, and grids assembled from mutually spanning groups.
type GridDetector struct {
	settings Settings
}

// NewGridDetector creates a detector with the given settings.
func NewGridDetector(settings Settings) *GridDetector {
	return &GridDetector{settings: settings}
}

// Grid is one detected table region with its boundary positions.
type Grid struct {
	// BBox covers the full grid.
	BBox model.BBox

	// RowBounds are the horizontal boundary Y positions, ascending.
	RowBounds []float64

	// ColBounds are the vertical boundary X positions, ascending.
	ColBounds []float64
}

// Rows returns the number of cell rows.
func (g *Grid) Rows() int { return len(g.RowBounds) - 1 }

// Cols returns the number of cell columns.
func (g *Grid) Cols() int { return len(g.ColBounds) - 1 }

// CellBox returns the bounding box of the cell at row r, column c.
func (g *Grid) CellBox(r, c int) model.BBox {
	return model.BBox{
		X0: g.ColBounds[c], Y0: g.RowBounds[r],
		X1: g.ColBounds[c+1], Y1: g.RowBounds[r+1],
	}
}

// boundary is a joined run of collinear segments: a horizontal boundary has
// Pos on the y axis and Lo..Hi on x, a vertical one the reverse.
type boundary struct {
	Pos    float64
	Lo, Hi float64
}

// Detect finds grids among the segments. Grids need at least two
// horizontal and two vertical boundaries whose extents span each other.
func (gd *GridDetector) Detect(rules []source.Rule) []Grid {
	var hSegs, vSegs []source.Rule
	for _, r := range rules {
		if r.Length() < gd.settings.EdgeMinLength {
			continue
		}
		if r.IsHorizontal() {
			hSegs = append(hSegs, r)
		} else {
			vSegs = append(vSegs, r)
		}
	}

	hs := gd.joinSegments(hSegs, true)
	vs := gd.joinSegments(vSegs, false)
	if len(hs) < 2 || len(vs) < 2 {
		return nil
	}
	return gd.findGrids(hs, vs)
}

// joinSegments snaps segments onto shared axis positions and merges
// collinear runs whose gaps are within the join tolerance. Runs shorter
// than the minimum edge length are discarded.
func (gd *GridDetector) joinSegments(segs []source.Rule, horizontal bool) []boundary {
	if len(segs) == 0 {
		return nil
	}

	type span struct {
		pos, lo, hi float64
	}
	spans := make([]span, len(segs))
	for i, s := range segs {
		if horizontal {
			spans[i] = span{pos: (s.Y0 + s.Y1) / 2, lo: math.Min(s.X0, s.X1), hi: math.Max(s.X0, s.X1)}
		} else {
			spans[i] = span{pos: (s.X0 + s.X1) / 2, lo: math.Min(s.Y0, s.Y1), hi: math.Max(s.Y0, s.Y1)}
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].pos < spans[j].pos })

	// Snap: cluster by axis position.
	var clusters [][]span
	current := []span{spans[0]}
	for _, s := range spans[1:] {
		if s.pos-current[len(current)-1].pos <= gd.settings.SnapTolerance {
			current = append(current, s)
			continue
		}
		clusters = append(clusters, current)
		current = []span{s}
	}
	clusters = append(clusters, current)

	var out []boundary
	for _, cluster := range clusters {
		pos := 0.0
		for _, s := range cluster {
			pos += s.pos
		}
		pos /= float64(len(cluster))

		// Join: merge overlapping or near runs along the boundary.
		sort.Slice(cluster, func(i, j int) bool { return cluster[i].lo < cluster[j].lo })
		run := boundary{Pos: pos, Lo: cluster[0].lo, Hi: cluster[0].hi}
		flush := func() {
			if run.Hi-run.Lo >= gd.settings.EdgeMinLength {
				out = append(out, run)
			}
		}
		for _, s := range cluster[1:] {
			if s.lo <= run.Hi+gd.settings.JoinTolerance {
				if s.hi > run.Hi {
					run.Hi = s.hi
				}
				continue
			}
			flush()
			run = boundary{Pos: pos, Lo: s.lo, Hi: s.hi}
		}
		flush()
	}
	return out
}

// findGrids groups boundaries into connected components by intersection and
// keeps components with at least two boundaries on each axis.
func (gd *GridDetector) findGrids(hs, vs []boundary) []Grid {
	n := len(hs) + len(vs)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		parent[find(a)] = find(b)
	}

	tol := gd.settings.SnapTolerance
	for i, h := range hs {
		for j, v := range vs {
			crosses := v.Pos >= h.Lo-tol && v.Pos <= h.Hi+tol &&
				h.Pos >= v.Lo-tol && h.Pos <= v.Hi+tol
			if crosses {
				union(i, len(hs)+j)
			}
		}
	}

	groups := make(map[int]*Grid)
	for i, h := range hs {
		root := find(i)
		g, ok := groups[root]
		if !ok {
			g = &Grid{}
			groups[root] = g
		}
		g.RowBounds = append(g.RowBounds, h.Pos)
	}
	for j, v := range vs {
		root := find(len(hs) + j)
		g, ok := groups[root]
		if !ok {
			g = &Grid{}
			groups[root] = g
		}
		g.ColBounds = append(g.ColBounds, v.Pos)
	}

	var grids []Grid
	for _, g := range groups {
		if len(g.RowBounds) < 2 || len(g.ColBounds) < 2 {
			continue
		}
		sort.Float64s(g.RowBounds)
		sort.Float64s(g.ColBounds)
		g.BBox = model.BBox{
			X0: g.ColBounds[0], Y0: g.RowBounds[0],
			X1: g.ColBounds[len(g.ColBounds)-1], Y1: g.RowBounds[len(g.RowBounds)-1],
		}
		grids = append(grids, *g)
	}
	sort.Slice(grids, func(i, j int) bool {
		if grids[i].BBox.Y0 != grids[j].BBox.Y0 {
			return grids[i].BBox.Y0 < grids[j].BBox.Y0
		}
		return grids[i].BBox.X0 < grids[j].BBox.X0
	})
	return grids
}
