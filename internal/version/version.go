// Package version carries build-time version metadata.
package version

import "fmt"

// Set at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

// Short returns the bare version string.
func Short() string {
	return Version
}

// Info returns a human-readable version line.
func Info() string {
	return fmt.Sprintf("bdash %s (%s)", Version, Commit)
}
