// Package version holds build information injected at link time.
package version

import (
	"fmt"
	"runtime"
)

// Set with -ldflags "-X github.com/NERVsystems/osmdelta/pkg/version.BuildVersion=..."
var (
	BuildVersion = "0.1.0"
	BuildCommit  = "unknown"
	BuildDate    = "unknown"
)

// Info returns the build information as a flat map
func Info() map[string]string {
	return map[string]string{
		"version":    BuildVersion,
		"go_version": runtime.Version(),
		"commit":     BuildCommit,
		"build_date": BuildDate,
	}
}

// String returns a one-line version banner
func String() string {
	return fmt.Sprintf("osmdelta %s (commit %s, built %s, %s)", BuildVersion, BuildCommit, BuildDate, runtime.Version())
}
