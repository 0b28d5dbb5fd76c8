package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"code.sajari.com/docconv"
	"go.uber.org/zap"
)

const (
	converterTimeout = 30 * time.Second
	// LibreOffice spawns a whole office process; give it longer.
	sofficeTimeout = 60 * time.Second
)

// docMethod is one attempt in the ordered legacy .doc fallback chain.
type docMethod struct {
	name string
	fn   func(ctx context.Context, path string) (string, error)
}

// defaultLegacyMethods returns the chain in its fixed order: Word COM
// automation, antiword, catdoc, LibreOffice, docconv, and finally a
// structural read of the file as an OOXML container (some .doc files are
// renamed .docx).
func (e *Extractor) defaultLegacyMethods() []docMethod {
	return []docMethod{
		{"word-automation", extractDocWithWordAutomation},
		{"antiword", extractDocWithAntiword},
		{"catdoc", extractDocWithCatdoc},
		{"soffice", extractDocWithSoffice},
		{"docconv", extractDocWithDocconv},
		{"ooxml-container", func(_ context.Context, path string) (string, error) { return readDocxFile(path) }},
	}
}

// extractLegacyDoc tries each method in order until one yields accepted
// output: non-empty text that is not a known failure placeholder. When the
// whole chain fails the user gets one complete installation-guidance message
// rather than an error.
func (e *Extractor) extractLegacyDoc(ctx context.Context, path string) string {
	for _, m := range e.legacyMethods {
		text, err := runDocMethod(ctx, m, path)
		if err != nil {
			e.log.Debug("doc method failed", zap.String("method", m.name), zap.String("path", path), zap.Error(err))
			continue
		}
		if strings.TrimSpace(text) != "" && !IsFailure(text) {
			e.log.Debug("doc method succeeded", zap.String("method", m.name), zap.String("path", path))
			return text
		}
	}
	return docInstallGuidance
}

// runDocMethod invokes one chain method, containing its panics. A panicking
// method is a failed attempt for this file; the remaining methods still run.
func runDocMethod(ctx context.Context, m docMethod, path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", m.name, r)
		}
	}()
	return m.fn(ctx, path)
}

// runConverter executes an external command-line converter against the file
// and returns its stdout. A converter that does not return within timeout is
// a failure for this file only, never a hang for the batch.
func runConverter(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, name, args...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if cctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("%s timed out after %s", name, timeout)
	}
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
			return "", fmt.Errorf("%s not installed", name)
		}
		return "", fmt.Errorf("%s failed: %v (%s)", name, err, strings.TrimSpace(stderr.String()))
	}
	return decodePermissive([]byte(stdout.String())), nil
}

func extractDocWithAntiword(ctx context.Context, path string) (string, error) {
	return runConverter(ctx, converterTimeout, "antiword", path)
}

func extractDocWithCatdoc(ctx context.Context, path string) (string, error) {
	return runConverter(ctx, converterTimeout, "catdoc", path)
}

// extractDocWithSoffice converts via LibreOffice into a temp directory and
// reads back the produced .txt.
func extractDocWithSoffice(ctx context.Context, path string) (string, error) {
	tmp, err := os.MkdirTemp("", "doc2txt-")
	if err != nil {
		return "", fmt.Errorf("temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	if _, err := runConverter(ctx, sofficeTimeout, "soffice", "--headless", "--convert-to", "txt:Text", "--outdir", tmp, path); err != nil {
		return "", err
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	out, err := os.ReadFile(filepath.Join(tmp, base+".txt"))
	if err != nil {
		return "", fmt.Errorf("soffice produced no output: %w", err)
	}
	return decodePermissive(out), nil
}

func extractDocWithDocconv(_ context.Context, path string) (string, error) {
	res, err := docconv.ConvertPath(path)
	if err != nil {
		return "", fmt.Errorf("docconv: %w", err)
	}
	if res == nil {
		return "", fmt.Errorf("docconv: no result")
	}
	if res.Error != "" {
		return "", fmt.Errorf("docconv: %s", res.Error)
	}
	return res.Body, nil
}

// docInstallGuidance is the designed user-facing fallback when every method
// in the chain fails. It must name each remaining option.
const docInstallGuidance = `[.doc extraction failed]

No available method could read this legacy Word document. Install one of the
following and retry:

1. Microsoft Word (Windows): used automatically through COM when present.
2. antiword (cross-platform):
   - Linux: sudo apt-get install antiword
   - macOS: brew install antiword
3. catdoc (cross-platform):
   - Linux: sudo apt-get install catdoc
   - macOS: brew install catdoc
4. LibreOffice: provides the headless "soffice" converter.
5. The wv toolchain used by the docconv library (wvWare).

If the file is actually a renamed .docx it will be read without any of the
above; this one is not.`
