//go:build !windows

package extract

import (
	"context"
	"errors"
)

// Word COM automation only exists on Windows; elsewhere the chain falls
// through to the command-line converters immediately.
func extractDocWithWordAutomation(_ context.Context, _ string) (string, error) {
	return "", errors.New("word automation unavailable on this platform")
}
