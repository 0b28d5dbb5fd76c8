// Package extract turns files of many formats into normalized plain text.
//
// Extraction is a total function from path to string: every failure mode is
// converted into a bracketed diagnostic placeholder embedded in the returned
// text, so callers never have to handle an error from it.
package extract

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// AllowedExtensions is the fixed allow-list of file extensions the pipeline
// accepts, lower-cased. Extending it is a config-time decision.
var AllowedExtensions = map[string]bool{
	".txt": true, ".md": true, ".py": true, ".java": true, ".c": true,
	".h": true, ".cpp": true, ".hpp": true, ".js": true, ".ts": true,
	".json": true, ".yml": true, ".yaml": true, ".xml": true, ".html": true,
	".css": true, ".go": true, ".rs": true, ".sh": true, ".bat": true,
	".ps1": true, ".sql": true, ".ini": true, ".cfg": true, ".toml": true,
	".log": true, ".csv": true, ".tsv": true,
	".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
}

// failurePrefixes identify placeholder output from any extraction method.
// The legacy-document fallback chain treats text starting with one of these
// as a failed attempt and moves on to the next method. Kept as data so the
// set lives in one place.
var failurePrefixes = []string{
	"[read failed",
	"[conversion failed",
	"[converter missing",
	"[conversion timed out",
	"[unsupported format",
	"[file too large",
	"[.doc extraction failed",
}

// IsFailure reports whether text is a diagnostic placeholder rather than
// extracted content.
func IsFailure(text string) bool {
	s := strings.TrimSpace(text)
	for _, p := range failurePrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// Extractor dispatches a file to the extraction method matching its
// extension. The legacy .doc method chain is a field so tests can substitute
// attempt functions.
type Extractor struct {
	log           *zap.Logger
	legacyMethods []docMethod
}

func New(log *zap.Logger) *Extractor {
	e := &Extractor{log: log}
	e.legacyMethods = e.defaultLegacyMethods()
	return e
}

// Extract returns the normalized text of the file at path. It never returns
// an error or panics; anything unexpected becomes a "[read failed: ...]"
// placeholder.
func (e *Extractor) Extract(ctx context.Context, path string) (text string) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Warn("extraction panicked", zap.String("path", path), zap.Any("panic", r))
			text = fmt.Sprintf("[read failed: %s] panic: %v", filepath.Base(path), r)
		}
	}()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return e.extractDelimited(path, ',')
	case ".tsv":
		return e.extractDelimited(path, '\t')
	case ".doc":
		return e.extractLegacyDoc(ctx, path)
	case ".docx":
		return e.extractDocx(path)
	case ".xlsx":
		return e.extractXLSX(path)
	case ".xls":
		return e.extractXLS(path)
	default:
		return e.extractPlainText(path)
	}
}

// extractPlainText reads the file as text, honoring a UTF-8/UTF-16 BOM when
// present and replacing undecodable bytes instead of failing.
func (e *Extractor) extractPlainText(path string) string {
	raw, err := os.ReadFile(path)
	if err != nil {
		return readFailed(path, err)
	}
	return decodePermissive(raw)
}

// extractDelimited parses rows with the given separator and re-joins fields
// with tabs and rows with newlines. Parsing is best-effort: quoting errors
// degrade to the raw decoded text rather than failing the file.
func (e *Extractor) extractDelimited(path string, comma rune) string {
	raw, err := os.ReadFile(path)
	if err != nil {
		return readFailed(path, err)
	}
	decoded := decodePermissive(raw)

	r := csv.NewReader(strings.NewReader(decoded))
	r.Comma = comma
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil && len(records) == 0 {
		e.log.Debug("delimited parse failed, keeping raw text", zap.String("path", path), zap.Error(err))
		return decoded
	}

	lines := make([]string, 0, len(records))
	for _, rec := range records {
		lines = append(lines, strings.Join(rec, "\t"))
	}
	return strings.Join(lines, "\n")
}

// decodePermissive converts bytes to a valid UTF-8 string. A UTF-8 or UTF-16
// BOM selects the decoding; invalid sequences become U+FFFD.
func decodePermissive(raw []byte) string {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(decoder, raw)
	if err != nil {
		// The replacing decoder should not error; fall back to a lossy scrub.
		return strings.ToValidUTF8(string(raw), "�")
	}
	return string(out)
}

func readFailed(path string, err error) string {
	return fmt.Sprintf("[read failed: %s] %v", filepath.Base(path), err)
}
