// Package version exposes the build metadata stamped into the stager binary.
package version

import (
	"fmt"
	"runtime"
	"strings"
)

// These values are overridden at build time via -ldflags "-X ...".
var (
	Version      = "dev"
	GitCommit    = "unknown"
	GitTreeState = "unknown" // clean|dirty|unknown
	BuildDate    = "unknown" // RFC3339 UTC preferred
)

// Info is the resolved metadata reported by 'stager version'.
type Info struct {
	Version      string `json:"version"`
	GitCommit    string `json:"gitCommit"`
	GitTreeState string `json:"gitTreeState"`
	BuildDate    string `json:"buildDate"`
	GoVersion    string `json:"goVersion"`
	Platform     string `json:"platform"`
}

func Get() Info {
	return Info{
		Version:      Version,
		GitCommit:    GitCommit,
		GitTreeState: GitTreeState,
		BuildDate:    BuildDate,
		GoVersion:    runtime.Version(),
		Platform:     fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// Short is the one-line form used in debug logs: stager/<version>[+<commit>].
func (i Info) Short() string {
	s := "stager/" + i.Version
	if i.GitCommit != "" && i.GitCommit != "unknown" {
		commit := i.GitCommit
		if len(commit) > 12 {
			commit = commit[:12]
		}
		if i.GitTreeState == "dirty" {
			commit += "-dirty"
		}
		s += "+" + commit
	}
	return s
}

// String renders the multi-line layout of 'stager version'.
func (i Info) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "stager %s\n", i.Version)
	fmt.Fprintf(&b, "  commit:     %s (%s)\n", i.GitCommit, i.GitTreeState)
	fmt.Fprintf(&b, "  built:      %s\n", i.BuildDate)
	fmt.Fprintf(&b, "  go version: %s\n", i.GoVersion)
	fmt.Fprintf(&b, "  platform:   %s\n", i.Platform)
	return b.String()
}
