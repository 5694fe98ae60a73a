// Package version exposes build metadata stamped at link time via
// -ldflags "-X github.com/ledger-service/ledger_service/pkg/version.Version=...".
package version

import "runtime"

var (
	// Version is the semantic version of the build
	Version = "dev"
	// GitCommit is the short commit hash the binary was built from
	GitCommit = "unknown"
	// BuildDate is the UTC build timestamp
	BuildDate = "unknown"
)

// Info describes the running build
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
}

// Get returns the build information for the running binary
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
}
