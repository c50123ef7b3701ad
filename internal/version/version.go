// Package version holds the build metadata stamped with -ldflags "-X".
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
	BuiltBy = "source"
)

// Info is the build metadata of the running binary
type Info struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	Date      string `json:"date" yaml:"date"`
	BuiltBy   string `json:"built_by" yaml:"built_by"`
	GoVersion string `json:"go_version" yaml:"go_version"`
}

// Get returns the stamped metadata. A binary built with `go install` has no
// stamp, so its module version and vcs revision come from the build info.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		BuiltBy:   BuiltBy,
		GoVersion: runtime.Version(),
	}
	if info.Version != "" && info.Version != "dev" {
		return info
	}
	info.Version = "dev"

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if v := bi.Main.Version; v != "" && v != "(devel)" {
		info.Version = v
		info.BuiltBy = "go install"
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "unknown" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.Date == "unknown" {
				info.Date = s.Value
			}
		}
	}
	return info
}

// GetVersion returns the version written into reports
func GetVersion() string {
	return Get().Version
}

// GetFullVersion returns the one-line description printed by `version -v`
func GetFullVersion() string {
	info := Get()
	return fmt.Sprintf("%s (commit: %s, built: %s, by: %s, %s)",
		info.Version, info.Commit, info.Date, info.BuiltBy, info.GoVersion)
}
