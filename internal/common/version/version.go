package version

import (
	_ "embed"
	"strings"
)

// Version information embedded from the VERSION file at compile time.
// All tools in the suite (sptask, spconn) report the same version number.

//go:embed VERSION
var versionRaw string

// Version is the current version of the tool suite, trimmed of whitespace.
var Version = strings.TrimSpace(versionRaw)

// Get returns the current version string.
func Get() string {
	return Version
}
