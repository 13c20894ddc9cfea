// Package buildtime holds values stamped at build time.
//
// VERSION and revision are overwritten by the release build.
package buildtime

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var version string

//go:embed revision
var revision string

func init() {
	version = strings.TrimSpace(version)
	revision = strings.TrimSpace(revision)
}

// version string when this glyco has been built.
func VERSION() string {
	return version
}

func GIT_REVISION() string {
	return revision
}

func VersionString() string {
	return version + " (commit: " + revision + ")"
}

// UserAgent is sent to the backend in the User-Agent header.
func UserAgent() string {
	return "glyco/" + version
}
