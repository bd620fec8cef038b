// Package caption associates nearby text blocks with tables and images.
// Selection is deterministic: candidates are ranked by a label-pattern
// match, prominence and distance, and ties keep input order.
package caption

import (
	"math"
	"regexp"

	"go.uber.org/zap"

	"github.com/tsawler/replica/model"
)

// CaptionPattern matches conventional caption labels in English and Korean.
var CaptionPattern = regexp.MustCompile(`(?i)^(Table|Figure|그림|Image|Fig\.)\s*\d+`)

// Config holds the resolver's search bands.
type Config struct {
	// TableBandFrac is the fraction of page height above a table searched
	// for its caption.
	TableBandFrac float64
	// ImageBandFrac is the fraction of page height around an image's top
	// and bottom edges searched for its caption.
	ImageBandFrac float64
	// Pattern recognizes caption label prefixes.
	Pattern *regexp.Regexp
}

// DefaultConfig returns the resolver defaults.
func DefaultConfig() Config {
	return Config{
		TableBandFrac: 0.15,
		ImageBandFrac: 0.10,
		Pattern:       CaptionPattern,
	}
}

// Resolver picks captions for tables and images.
type Resolver struct {
	cfg Config
	log *zap.Logger
}

// NewResolver creates a resolver. A nil logger disables logging.
func NewResolver(cfg Config, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Pattern == nil {
		cfg.Pattern = CaptionPattern
	}
	return &Resolver{cfg: cfg, log: log}
}

// candidate scoring: lower tuples win, compared field by field. Ties keep
// the earlier candidate, so input order breaks them.
type score struct {
	rank  int
	yDist float64
	xDist float64
}

func (s score) less(o score) bool {
	if s.rank != o.rank {
		return s.rank < o.rank
	}
	if s.yDist != o.yDist {
		return s.yDist < o.yDist
	}
	return s.xDist < o.xDist
}

// ForTable resolves a table's caption. Candidates must end above the table
// top within the table band, and be horizontally centered over the table
// within half its width. Pattern matches and bold blocks rank higher.
// Returns nil when no candidate qualifies.
func (r *Resolver) ForTable(target model.BBox, blocks []model.TextBlock, pageHeight float64) *string {
	band := r.cfg.TableBandFrac * pageHeight
	tc := target.Center()

	var best *model.TextBlock
	var bestScore score
	for i := range blocks {
		b := &blocks[i]
		if b.Text == "" || b.Y1 > target.Y0 {
			continue
		}
		yDist := target.Y0 - b.Y1
		if yDist > band {
			continue
		}
		bb := b.BBox()
		xDist := math.Abs(bb.Center().X - tc.X)
		if xDist > target.Width()/2 {
			continue
		}

		s := score{yDist: yDist, xDist: xDist}
		if r.cfg.Pattern.MatchString(b.Text) {
			s.rank--
		}
		if b.Bold {
			s.rank--
		}
		if best == nil || s.less(bestScore) {
			best, bestScore = b, s
		}
	}
	if best == nil {
		return nil
	}
	text := best.Text
	return &text
}

// ForImage resolves an image's caption. Candidates must lie within the
// image band of the image's top or bottom edge, or overlap the image
// vertically, and must not sit inside any table region. Pattern matches
// rank higher; bold carries no weight here. Returns nil when no candidate
// qualifies.
func (r *Resolver) ForImage(target model.BBox, blocks []model.TextBlock, tableBoxes []model.BBox, pageHeight float64) *string {
	band := r.cfg.ImageBandFrac * pageHeight
	tc := target.Center()

	var best *model.TextBlock
	var bestScore score
	for i := range blocks {
		b := &blocks[i]
		if b.Text == "" {
			continue
		}
		bb := b.BBox()
		if insideAny(bb, tableBoxes) {
			continue
		}

		// A block counts as near when either of its horizontal edges falls
		// within the band around the image. Blocks overlapping the image
		// qualify with a near-zero distance.
		nearY := (bb.Y1 >= target.Y0-band && bb.Y1 <= target.Y1+band) ||
			(bb.Y0 >= target.Y0-band && bb.Y0 <= target.Y1+band)
		if !nearY {
			continue
		}
		yDist := math.Min(math.Abs(bb.Y1-target.Y0), math.Abs(target.Y1-bb.Y0))

		s := score{yDist: yDist, xDist: math.Abs(bb.Center().X - tc.X)}
		if r.cfg.Pattern.MatchString(b.Text) {
			s.rank--
		}
		if best == nil || s.less(bestScore) {
			best, bestScore = b, s
		}
	}
	if best == nil {
		return nil
	}
	text := best.Text
	return &text
}

func insideAny(box model.BBox, regions []model.BBox) bool {
	for _, r := range regions {
		if r.ContainsBox(box) {
			return true
		}
	}
	return false
}
