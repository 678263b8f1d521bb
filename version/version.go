// Package version reports the authguard build version. Version and Commit
// are set with -ldflags; otherwise the Go build info fills them in.
package version

import (
	"runtime/debug"
	"sync"
)

var (
	Version = "dev"
	Commit  = ""
)

// Info is the build identity reported by the CLI and /health.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	GoVersion string `json:"go_version"`
	Dirty     bool   `json:"dirty,omitempty"`
}

var (
	infoOnce sync.Once
	info     Info
)

// Get returns the build information.
func Get() Info {
	infoOnce.Do(func() {
		info = Info{Version: Version, Commit: Commit}
		bi, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		info.GoVersion = bi.GoVersion
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = s.Value
				}
			case "vcs.modified":
				info.Dirty = s.Value == "true"
			}
		}
		if len(info.Commit) > 7 {
			info.Commit = info.Commit[:7]
		}
	})
	return info
}

// String returns "version-commit[-dirty]", or just the version without VCS data.
func String() string {
	i := Get()
	s := i.Version
	if i.Commit != "" {
		s += "-" + i.Commit
	}
	if i.Dirty {
		s += "-dirty"
	}
	return s
}
