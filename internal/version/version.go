// Package version carries build metadata injected with -ldflags:
//
//	go build -ldflags "-X github.com/smazurov/spyglass/internal/version.Version=v1.2.0
//	  -X github.com/smazurov/spyglass/internal/version.GitCommit=$(git rev-parse --short HEAD)"
package version

import (
	"runtime"
)

var (
	// Version is the release version.
	Version = "dev"
	// GitCommit is the short commit hash.
	GitCommit = "unknown"
	// BuildDate is the build timestamp.
	BuildDate = "unknown"
)

// Info contains version and build metadata.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns version and build information.
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String returns the version, with the commit appended for dev builds.
func String() string {
	if Version == "dev" && GitCommit != "unknown" {
		return Version + "+" + GitCommit
	}
	return Version
}
