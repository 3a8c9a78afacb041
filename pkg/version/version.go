// Package version carries build metadata injected via -ldflags.
package version

import "fmt"

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const appName = "hqconsole"

// Info is the build metadata as reported by the hub status endpoint.
type Info struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

// Get returns the current build metadata.
func Get() Info {
	return Info{Version: Version, BuildTime: BuildTime, GitCommit: GitCommit}
}

// String returns a user-facing build string. Dev builds include commit and build time.
func (i Info) String() string {
	if i.Version == "dev" {
		return fmt.Sprintf("%s/%s (commit: %s, built: %s)", appName, i.Version, i.GitCommit, i.BuildTime)
	}
	return fmt.Sprintf("%s/%s", appName, i.Version)
}
