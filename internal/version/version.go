// Package version holds build-time metadata injected via ldflags.
package version

import "runtime/debug"

// These variables are set at build time using -ldflags:
//
//	-X 'github.com/janekbaraniewski/powerusage/internal/version.Version=...'
//	-X 'github.com/janekbaraniewski/powerusage/internal/version.CommitHash=...'
//	-X 'github.com/janekbaraniewski/powerusage/internal/version.BuildDate=...'
var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildDate  = "unknown"
)

// String returns a formatted version string. Binaries installed with
// `go install` carry no ldflags, so the module version and VCS revision
// from the embedded build info fill the gaps.
func String() string {
	v, commit := Version, CommitHash
	if info, ok := debug.ReadBuildInfo(); ok {
		if v == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			v = info.Main.Version
		}
		if commit == "unknown" {
			for _, s := range info.Settings {
				if s.Key == "vcs.revision" && len(s.Value) >= 7 {
					commit = s.Value[:7]
				}
			}
		}
	}
	return v + " (" + commit + ") built " + BuildDate
}
