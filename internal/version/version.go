// Package version carries build metadata, stamped via -ldflags at release
// time and left at the dev defaults otherwise.
package version

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)
