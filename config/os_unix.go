//go:build !windows

package config

import (
	"os"

	"golang.org/x/term"
)

// CleanFileName removes characters not allowed in file name.
func CleanFileName(in string) string {
	return cleanFileName(in, "/")
}

// EnableColorOutput checks if colorized output is possible.
func EnableColorOutput(stream *os.File) bool {
	return !colorDisabled() && term.IsTerminal(int(stream.Fd()))
}
