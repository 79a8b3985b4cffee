package contract

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Status label constants for human-readable output.
const (
	OKValue   = "OK"
	SkipValue = "SKIP"
	FailValue = "FAIL"
)

// Color variables for console output.
var (
	OKColor   = color.New(color.FgGreen)           // healthy / successful
	SkipColor = color.New(color.FgCyan)            // skipped, nothing to do
	FailColor = color.New(color.FgRed, color.Bold) // errored repositories
	WarnColor = color.New(color.FgYellow)          // stale but usable
)

// ColorLabel applies the status color to a plain label when colors are
// enabled, and returns the label unchanged otherwise.
func ColorLabel(label string, useColors bool) string {
	if !useColors {
		return label
	}
	switch label {
	case OKValue:
		return OKColor.Sprint(label)
	case SkipValue:
		return SkipColor.Sprint(label)
	case FailValue:
		return FailColor.Sprint(label)
	default:
		return WarnColor.Sprint(label)
	}
}

// TruncatePath shortens a path to at most maxWidth characters, keeping the
// tail since the last path elements carry the most meaning.
func TruncatePath(path string, maxWidth int) string {
	if maxWidth <= 3 || len(path) <= maxWidth {
		return path
	}
	return "..." + path[len(path)-maxWidth+3:]
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// SelectOutputFile returns the appropriate file handle for output, based on
// the provided file path. It falls back to os.Stdout when no path is given.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}
