// Package outwriter has output and writer logic.
package outwriter

import (
	"os"

	"github.com/repowatch/repowatch/internal/contract"
	"golang.org/x/term"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for
// the command layer.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// getMaxTablePathWidth calculates the maximum width for repository paths in
// table output based on terminal width.
func getMaxTablePathWidth(cfg *contract.Config) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 { // Not set by override
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			// Conservative default for narrow terminals and CI
			termWidth = 80
		} else {
			termWidth = detectedWidth
		}
	}

	// Reserve space for the fixed columns plus borders and padding.
	available := termWidth - 45
	if available < 15 {
		return 15
	}
	if available > 70 {
		return 70
	}
	return available
}
