package common

import "github.com/maruel/natural"

// CompareNatural orders strings with embedded numbers by numeric value
// ("part2" before "part10"), suitable for slices.SortFunc.
func CompareNatural(a, b string) int {
	switch {
	case natural.Less(a, b):
		return -1
	case natural.Less(b, a):
		return 1
	}
	return 0
}
