package version

import "runtime"

// Version is set at build time via -ldflags
var Version = "dev"

// Info describes the running server build.
type Info struct {
	Version   string `json:"version"`
	GoVersion string `json:"goVersion"`
}

// Get returns the build information for the running server
func Get() Info {
	return Info{
		Version:   Version,
		GoVersion: runtime.Version(),
	}
}
