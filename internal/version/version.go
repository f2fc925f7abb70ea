// Package version provides application version information.
// The version can be set at build time using ldflags:
//
//	go build -ldflags "-X github.com/ramonehamilton/cardfetch/internal/version.Version=v1.2.3 -X github.com/ramonehamilton/cardfetch/internal/version.Commit=abc123"
package version

import (
	"fmt"
	"runtime"
)

// Version is the application version. It defaults to "dev" and can be
// overridden at build time using ldflags.
var Version = "dev"

// Commit is the git commit the binary was built from.
var Commit = "none"

// GetVersion returns the current application version.
func GetVersion() string {
	return Version
}

// String returns a one-line description for `cardfetch version`.
func String() string {
	return fmt.Sprintf("cardfetch %s (commit %s, %s %s/%s)", Version, Commit, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
