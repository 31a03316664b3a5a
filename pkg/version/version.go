// Package version carries build metadata, set with -ldflags "-X".
package version

import "runtime/debug"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String returns "version (commit) built date". Builds without ldflags fall
// back to the module version recorded by the go tool.
func String() string {
	v := Version
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			v = info.Main.Version
		}
	}
	return v + " (" + Commit + ") built " + Date
}
