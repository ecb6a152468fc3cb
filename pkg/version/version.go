// Package version reports the build version of the codealong binary.
package version

import (
	"fmt"
	"runtime/debug"
)

// Set with -ldflags "-X github.com/Sumatoshi-tech/codealong/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = "<unknown>"
	Date    = "<unknown>"
)

const shortCommitLen = 12

// InitBinaryVersion fills Commit and Date from the module build info when
// they were not set at link time.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if Commit == "<unknown>" {
				Commit = s.Value[:min(len(s.Value), shortCommitLen)]
			}
		case "vcs.time":
			if Date == "<unknown>" {
				Date = s.Value
			}
		}
	}
}

// String is the one-line version banner.
func String() string {
	return fmt.Sprintf("codealong %s (commit: %s, built: %s)", Version, Commit, Date)
}
