package onceflight

import (
	"fmt"
	"runtime"
)

// Build metadata. Version carries the tagged release; GitCommit and
// BuildDate default to "unknown" and are meant to be stamped through
// -ldflags by the embedding application's build.
var (
	Version   = "v0.3.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = runtime.Version()
)

// GetVersion formats the build metadata as a single printable line.
func GetVersion() string {
	return fmt.Sprintf("onceflight %s (commit: %s, built: %s, go: %s)",
		Version, GitCommit, BuildDate, GoVersion)
}

// GetVersionInfo exposes the same metadata as key/value pairs, convenient
// for structured log fields.
func GetVersionInfo() map[string]string {
	return map[string]string{
		"version":    Version,
		"commit":     GitCommit,
		"build_date": BuildDate,
		"go_version": GoVersion,
	}
}
