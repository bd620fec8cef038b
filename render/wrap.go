package render

import (
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// wrapText breaks text into lines no wider than maxWidth pixels under the
// face. Existing newlines are respected; words wider than the limit are
// split by rune so nothing is dropped.
func wrapText(face font.Face, text string, maxWidth float64) []string {
	limit := fixed.I(int(maxWidth))
	if limit <= 0 {
		return strings.Split(text, "\n")
	}

	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}

		current := ""
		for _, word := range words {
			candidate := word
			if current != "" {
				candidate = current + " " + word
			}
			if font.MeasureString(face, candidate) <= limit {
				current = candidate
				continue
			}
			if current != "" {
				lines = append(lines, current)
			}
			if font.MeasureString(face, word) <= limit {
				current = word
				continue
			}
			rest := splitWord(face, word, limit)
			lines = append(lines, rest[:len(rest)-1]...)
			current = rest[len(rest)-1]
		}
		lines = append(lines, current)
	}
	return lines
}

// splitWord breaks a single over-wide word into limit-sized chunks. The
// last chunk is returned unfinished so following words can join it.
func splitWord(face font.Face, word string, limit fixed.Int26_6) []string {
	var chunks []string
	current := ""
	for _, r := range word {
		candidate := current + string(r)
		if current != "" && font.MeasureString(face, candidate) > limit {
			chunks = append(chunks, current)
			current = string(r)
			continue
		}
		current = candidate
	}
	return append(chunks, current)
}

// lineHeight returns the face's line advance in pixels.
func lineHeight(face font.Face) float64 {
	return float64(face.Metrics().Height) / 64
}

// wrappedHeight returns the total height of the wrapped lines in pixels.
func wrappedHeight(face font.Face, lines []string) float64 {
	return lineHeight(face) * float64(len(lines))
}
