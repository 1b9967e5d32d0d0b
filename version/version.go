package version

import (
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"
)

// Set with -ldflags -X. Empty values fall back to the build information the
// Go toolchain embeds.
var (
	Version   = "dev"
	GitCommit = ""
	GitBranch = ""
	BuildTime = ""
)

const shortCommit = 7

// Info is the build a unit or application was produced from.
type Info struct {
	Version   string    `json:"version"`
	Commit    string    `json:"commit,omitempty"`
	Branch    string    `json:"branch,omitempty"`
	GoVersion string    `json:"go_version,omitempty"`
	Module    string    `json:"module,omitempty"`
	BuildDate time.Time `json:"build_date,omitzero"`
	Dirty     bool      `json:"dirty,omitempty"`
}

var buildInfo = sync.OnceValues(debug.ReadBuildInfo)

// Current returns the running binary's build. The ldflags variables are
// read on every call; the embedded build information is read once.
func Current() Info {
	bi, _ := buildInfo()
	return fromBuild(bi)
}

// fromBuild merges the ldflags variables over bi, which may be nil.
func fromBuild(bi *debug.BuildInfo) Info {
	info := Info{Version: Version, Commit: GitCommit, Branch: GitBranch}
	if info.Version == "" {
		info.Version = "dev"
	}
	if t, err := time.Parse(time.RFC3339, BuildTime); err == nil {
		info.BuildDate = t.UTC()
	}

	if bi != nil {
		info.GoVersion = bi.GoVersion
		info.Module = bi.Main.Path
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = s.Value
				}
			case "vcs.modified":
				info.Dirty = s.Value == "true"
			case "vcs.time":
				if info.BuildDate.IsZero() {
					if t, err := time.Parse(time.RFC3339, s.Value); err == nil {
						info.BuildDate = t.UTC()
					}
				}
			}
		}
	}

	if len(info.Commit) > shortCommit {
		info.Commit = info.Commit[:shortCommit]
	}
	return info
}

// Release reports whether the build carries a real version and a clean tree.
func (i Info) Release() bool {
	return i.Version != "dev" && !i.Dirty && !strings.Contains(i.Version, "dirty")
}

// String returns version, commit and a dirty marker: "1.2.0-abc1234-dirty".
func (i Info) String() string {
	parts := []string{i.Version}
	if i.Commit != "" {
		parts = append(parts, i.Commit)
	}
	if i.Dirty {
		parts = append(parts, "dirty")
	}
	return strings.Join(parts, "-")
}

// Full adds a non-default branch and the build date to String.
func (i Info) Full() string {
	s := i.String()
	if i.Branch != "" && i.Branch != "main" && i.Branch != "master" {
		s += " " + i.Branch
	}
	if !i.BuildDate.IsZero() {
		s += fmt.Sprintf(" (built %s)", i.BuildDate.Format(time.RFC3339))
	}
	return s
}
