// Package layout infers heading levels and parent links for a page's text
// blocks from font prominence and indentation.
package layout

import (
	"sort"

	"go.uber.org/zap"

	"github.com/tsawler/replica/model"
)

// IndentShift is the horizontal offset, in page units, beyond which a block
// counts as indented under its predecessor.
const IndentShift = 5.0

// Inferencer annotates blocks with levels and parent links. One instance
// serves many pages.
type Inferencer struct {
	log *zap.Logger
}

// NewInferencer creates an inferencer. A nil logger disables logging.
func NewInferencer(log *zap.Logger) *Inferencer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Inferencer{log: log}
}

// Infer writes Level and ParentID on the blocks in place. Blocks must be in
// reading order. Larger font sizes rank as more prominent; bold lifts a
// block one level above its size rank. A block indented more than
// IndentShift past its predecessor becomes that predecessor's child.
//
// Parent assignment looks only at the immediately preceding block, so a
// block at the top of a second column can be linked under the last block of
// the first column. Known limitation, kept for output compatibility.
func (inf *Inferencer) Infer(blocks []model.TextBlock) {
	if len(blocks) == 0 {
		return
	}

	rank := sizeRanks(blocks)
	for i := range blocks {
		level := rank[blocks[i].Size]
		if blocks[i].Bold && level > 0 {
			level--
		}
		blocks[i].Level = level
		blocks[i].ParentID = nil
	}

	for i := 1; i < len(blocks); i++ {
		prev := &blocks[i-1]
		if blocks[i].X0 > prev.X0+IndentShift {
			blocks[i].Level = prev.Level + 1
			id := prev.ID
			blocks[i].ParentID = &id
		}
	}
}

// sizeRanks maps each distinct font size to its descending rank, so the
// largest size on the page ranks 0.
func sizeRanks(blocks []model.TextBlock) map[float64]int {
	sizes := make([]float64, 0, len(blocks))
	seen := make(map[float64]bool)
	for _, b := range blocks {
		if !seen[b.Size] {
			seen[b.Size] = true
			sizes = append(sizes, b.Size)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(sizes)))

	rank := make(map[float64]int, len(sizes))
	for i, s := range sizes {
		rank[s] = i
	}
	return rank
}
