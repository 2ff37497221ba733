// Package version holds build metadata for the hoshi binary.
package version

import (
	"fmt"
	"runtime/debug"
)

const unknown = "unknown"

// Build metadata, set with -ldflags "-X" at release time.
var (
	Version = "dev"   //nolint:gochecknoglobals // set by the linker.
	Commit  = unknown //nolint:gochecknoglobals // set by the linker.
	Date    = unknown //nolint:gochecknoglobals // set by the linker.
)

// InitBinaryVersion fills unset metadata from the module build info, so
// binaries installed with "go install" report something useful.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if Commit == unknown {
				Commit = setting.Value
			}
		case "vcs.time":
			if Date == unknown {
				Date = setting.Value
			}
		}
	}
}

// String renders the metadata on one line.
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}
