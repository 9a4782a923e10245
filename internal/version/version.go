// Package version reports the build version of the binaries.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set at build time:
//
//	go build -ldflags="-X github.com/willi-kappler/iridium-weatherstation/internal/version.Version=v0.4.0 \
//	                   -X github.com/willi-kappler/iridium-weatherstation/internal/version.Commit=abc1234"
var (
	Version = ""
	Commit  = ""
)

// Info is the version of a binary together with its build environment
type Info struct {
	Version   string
	Commit    string
	BuildTime string
	GoVersion string
	Modified  bool
}

func init() {
	info := Get()
	Version = info.Version
	Commit = info.Commit
}

// Get returns the ldflags values, completed from the VCS stamp Go embeds
// in binaries built inside a git checkout.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		GoVersion: runtime.Version(),
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range bi.Settings {
			switch setting.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = shortRevision(setting.Value)
				}
			case "vcs.time":
				info.BuildTime = setting.Value
			case "vcs.modified":
				info.Modified = setting.Value == "true"
			}
		}
		if info.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
	}

	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		info.Commit = "unknown"
	}
	return info
}

func shortRevision(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}

// String formats the info for a version command
func (i Info) String() string {
	commit := i.Commit
	if i.Modified {
		commit += "-dirty"
	}
	s := fmt.Sprintf("%s (commit: %s, %s)", i.Version, commit, i.GoVersion)
	if i.BuildTime != "" {
		s += " built " + i.BuildTime
	}
	return s
}

// Full returns the full version string including commit
func Full() string {
	return Get().String()
}
