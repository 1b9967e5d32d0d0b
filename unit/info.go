package unit

import (
	"github.com/kbukum/dikit/version"
)

// RuntimeName is the unit name of the runtime itself.
const RuntimeName = "dikit"

// Info describes the running application's own unit. The domain registers
// it before scanning so callbacks can read it.
type Info struct {
	Identity Identity      `json:"identity"`
	Build    version.Info `json:"build"`
}

// NewInfo returns the unit information for the named application, versioned
// from the build information.
func NewInfo(name string) Info {
	build := version.Current()
	if name == "" {
		name = RuntimeName
	}
	return Info{
		Identity: Identity{Name: name, Version: build.Version, KeyToken: build.Commit},
		Build:    build,
	}
}

// String returns the identity followed by the build version.
func (i Info) String() string {
	if i.Build.Version == "" {
		return i.Identity.String()
	}
	return i.Identity.String() + " (" + i.Build.String() + ")"
}
