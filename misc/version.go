// Package misc carries build identification. Values are replaced at link
// time with -ldflags "-X cssnest/misc.version=... -X cssnest/misc.gitHash=...".
package misc

import (
	"os"
	"path/filepath"
	"strings"
)

var (
	appName = "cssnest"
	version = "0.0.0-dev"
	gitHash = "unknown"
)

// GetAppName returns program name, it is used for temporary and log file
// names.
func GetAppName() string {
	if appName != "" {
		return appName
	}
	return strings.TrimSuffix(filepath.Base(os.Args[0]), filepath.Ext(os.Args[0]))
}

func GetVersion() string {
	return version
}

func GetGitHash() string {
	return gitHash
}
