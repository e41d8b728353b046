package config

import (
	"os"
	"strings"
)

// BadFileName replaces file names which are empty after cleaning.
const BadFileName = "_bad_file_name_"

// cleanFileName drops forbidden runes and path separators from in. Leading
// dots are removed so output never becomes hidden or climbs up.
func cleanFileName(in, forbidden string) string {
	forbidden += string(os.PathSeparator) + string(os.PathListSeparator)
	out := strings.TrimLeft(strings.Map(func(sym rune) rune {
		if sym == 0 || strings.ContainsRune(forbidden, sym) {
			return -1
		}
		return sym
	}, in), ".")
	if len(out) == 0 {
		out = BadFileName
	}
	return out
}

// colorDisabled honors NO_COLOR convention.
func colorDisabled() bool {
	_, set := os.LookupEnv("NO_COLOR")
	return set
}
