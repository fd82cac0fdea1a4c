package utils

import "runtime/debug"

// BuildVersion overrides the module version when set via -ldflags at
// release time.
var BuildVersion = ""

// GetVersion reports the running build's version: the release override if
// present, otherwise the module version stamped by the Go toolchain. A
// locally modified checkout gets a -dirty suffix.
func GetVersion() string {
	if BuildVersion != "" {
		return BuildVersion
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}

	version := info.Main.Version
	for _, setting := range info.Settings {
		if setting.Key == "vcs.modified" && setting.Value == "true" {
			version += "-dirty"
			break
		}
	}
	return version
}
