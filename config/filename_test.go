package config

import (
	"os"
	"testing"
)

func TestCleanFileName(t *testing.T) {
	sep := string(os.PathSeparator)
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "site", "site"},
		{"separators", "a" + sep + "b" + string(os.PathListSeparator) + "c", "abc"},
		{"leading dots", "..hidden", "hidden"},
		{"inner dots kept", "site.min", "site.min"},
		{"nul", "a\x00b", "ab"},
		{"empty", "", BadFileName},
		{"only dots", "...", BadFileName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanFileName(tt.in); got != tt.want {
				t.Errorf("CleanFileName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEnableColorOutput_NoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	if EnableColorOutput(os.Stdout) {
		t.Error("NO_COLOR must disable colors")
	}
}
