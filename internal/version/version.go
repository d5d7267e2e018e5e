// Package version reports the build version of the server.
package version

// Version and Commit are set at build time via -ldflags.
var (
	Version = "dev"
	Commit  = ""
)

// Get returns the version string, with the commit appended when known.
func Get() string {
	if Commit == "" {
		return Version
	}
	return Version + "+" + Commit
}
