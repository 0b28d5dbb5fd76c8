// Package scan walks a directory tree collecting candidate files for
// ingestion under size and count governors.
package scan

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"promptstack/internal/core/extract"
)

const (
	// DefaultMaxFileSize is the per-file ceiling; larger files are skipped
	// silently, not truncated.
	DefaultMaxFileSize = 20 * 1024 * 1024
	// DefaultMaxTotalSize stops the walk once the cumulative size of
	// accepted files passes it.
	DefaultMaxTotalSize = 500 * 1024 * 1024
	// DefaultMaxFiles stops the walk once this many files were accepted.
	DefaultMaxFiles = 1000
)

// warningPrefix marks result entries that are governor warnings, not paths.
const warningPrefix = "[warning:"

// skipDirs are well-known non-content directories pruned before descending.
var skipDirs = map[string]bool{
	".git":         true,
	"__pycache__":  true,
	"node_modules": true,
	".idea":        true,
	"target":       true,
	"build":        true,
}

// errLimitReached aborts the walk early once a governor trips.
var errLimitReached = errors.New("scan limit reached")

// IsWarningMarker reports whether a scan result entry is a truncation
// warning rather than a file path. Callers must filter markers out before
// dispatching to ingestion.
func IsWarningMarker(entry string) bool {
	return strings.HasPrefix(entry, warningPrefix)
}

// Scanner walks directory trees applying the extension allow-list and the
// size/count governors. Zero-valued limits fall back to the defaults.
type Scanner struct {
	MaxFileSize  int64
	MaxTotalSize int64
	MaxFiles     int

	log *zap.Logger
}

func New(log *zap.Logger) *Scanner {
	return &Scanner{
		MaxFileSize:  DefaultMaxFileSize,
		MaxTotalSize: DefaultMaxTotalSize,
		MaxFiles:     DefaultMaxFiles,
		log:          log,
	}
}

// Scan returns the ordered candidate paths under root. When a governor stops
// the walk early, the result carries the accepted paths plus exactly one
// warning marker as its final entry.
func (s *Scanner) Scan(root string) []string {
	var (
		result    []string
		totalSize int64
		count     int
	)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.log.Warn("scan: path inaccessible", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			// Prune before recursion so we never descend into noise.
			if path != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		if !extract.AllowedExtensions[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Size() > s.MaxFileSize {
			s.log.Debug("scan: skipping oversized file", zap.String("path", path), zap.Int64("size", info.Size()))
			return nil
		}

		if count >= s.MaxFiles {
			result = append(result, fmt.Sprintf("%s file count limit %d reached, scan stopped]", warningPrefix, s.MaxFiles))
			return errLimitReached
		}
		totalSize += info.Size()
		if totalSize > s.MaxTotalSize {
			result = append(result, fmt.Sprintf("%s total size limit %d bytes exceeded, scan stopped]", warningPrefix, s.MaxTotalSize))
			return errLimitReached
		}

		result = append(result, path)
		count++
		return nil
	})
	if err != nil && !errors.Is(err, errLimitReached) {
		s.log.Warn("scan: walk aborted", zap.String("root", root), zap.Error(err))
	}

	s.log.Info("scan complete",
		zap.String("root", root),
		zap.Int("files", count),
		zap.Int64("totalBytes", totalSize))
	return result
}

// SplitMarkers separates file paths from warning markers in a scan result.
func SplitMarkers(entries []string) (paths, markers []string) {
	for _, e := range entries {
		if IsWarningMarker(e) {
			markers = append(markers, e)
		} else {
			paths = append(paths, e)
		}
	}
	return paths, markers
}
