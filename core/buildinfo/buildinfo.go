// Package buildinfo carries the version stamped into the binary:
//
//	go build -ldflags "-X 'github.com/m3rciful/gobot-ui/core/buildinfo.Version=v0.3.0' \
//	  -X 'github.com/m3rciful/gobot-ui/core/buildinfo.Commit=$(git rev-parse --short HEAD)'"
//
// Unstamped builds fall back to the VCS data recorded by the Go toolchain.
package buildinfo

import (
	"runtime/debug"
	"sync"
)

var (
	Version = "dev"
	Commit  = "local"
	// Date is an RFC 3339 timestamp.
	Date = ""
)

var fillOnce sync.Once

// Resolve fills Commit and Date from debug.ReadBuildInfo when -ldflags left them
// at their defaults, and returns the effective values.
func Resolve() (version, commit, date string) {
	fillOnce.Do(func() {
		bi, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && Commit == "local" && len(s.Value) >= 7:
				Commit = s.Value[:7]
			case s.Key == "vcs.time" && Date == "":
				Date = s.Value
			}
		}
	})
	return Version, Commit, Date
}
