// Package version holds build metadata injected with -ldflags.
package version

import "fmt"

var (
	Version   = "dev"
	BuildTime = "unknown"
	Commit    = "none"
)

// String formats the metadata for `safeboy --version`.
func String() string {
	return fmt.Sprintf("safeboy %s (commit %s, built %s)", Version, Commit, BuildTime)
}
