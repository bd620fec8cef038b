// Package artifact persists raster artifacts (table and image crops)
// produced during extraction. Filenames are derived from captions, made
// filesystem-safe, and probed for collisions so concurrent pipelines
// writing to one directory never overwrite each other's files.
package artifact

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// MaxNameLen is the length captions are truncated to before use as a
// filename stem.
const MaxNameLen = 50

// OversizeBytes is the artifact size above which a warning is logged.
// Large artifacts are kept; the log line exists so runaway rasters show up
// in operation.
const OversizeBytes = 5 << 20

// Store writes artifacts under one output directory.
type Store struct {
	dir string
	log *zap.Logger
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifact dir %s: %w", dir, err)
	}
	return &Store{dir: dir, log: log}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string { return s.dir }

// SavePNG encodes img as PNG under a sanitized, collision-probed name
// derived from stem, and returns the file path.
func (s *Store) SavePNG(stem string, img image.Image) (string, error) {
	path, err := s.claim(Sanitize(stem) + ".png")
	if err != nil {
		return "", err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("opening artifact %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return "", fmt.Errorf("encoding artifact %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing artifact %s: %w", path, err)
	}
	s.checkSize(path)
	return path, nil
}

// SaveBytes writes raw encoded bytes under a sanitized, collision-probed
// name with the given extension, and returns the file path.
func (s *Store) SaveBytes(stem, ext string, data []byte) (string, error) {
	path, err := s.claim(Sanitize(stem) + ext)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing artifact %s: %w", path, err)
	}
	s.checkSize(path)
	return path, nil
}

// claim reserves a free path for name by creating the file exclusively,
// probing numeric suffixes on collision. Exclusive creation makes the probe
// safe against another pipeline instance claiming the same name.
func (s *Store) claim(name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 0; ; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s_%d%s", stem, i, ext)
		}
		path := filepath.Join(s.dir, candidate)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			f.Close()
			return path, nil
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("claiming artifact %s: %w", path, err)
		}
	}
}

func (s *Store) checkSize(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if info.Size() > OversizeBytes {
		s.log.Warn("oversized artifact",
			zap.String("path", path), zap.Int64("bytes", info.Size()))
	}
}

// Sanitize converts an arbitrary caption into a filesystem-safe filename
// stem: path separators, control characters and other unsafe runes become
// underscores, runs of underscores collapse, and the result is trimmed and
// truncated to MaxNameLen runes. Sanitizing twice yields the same result.
func Sanitize(name string) string {
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r < 0x20 || r == 0x7f:
			sb.WriteRune('_')
		case strings.ContainsRune(`/\:*?"<>|`, r):
			sb.WriteRune('_')
		case r == ' ':
			sb.WriteRune('_')
		default:
			sb.WriteRune(r)
		}
	}

	out := sb.String()
	for strings.Contains(out, "__") {
		out = strings.ReplaceAll(out, "__", "_")
	}
	out = strings.Trim(out, "_.")

	runes := []rune(out)
	if len(runes) > MaxNameLen {
		out = strings.Trim(string(runes[:MaxNameLen]), "_.")
	}
	if out == "" {
		out = "artifact"
	}
	return out
}
