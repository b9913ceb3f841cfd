package version

import "fmt"

// Build-time variables injected via ldflags.
var (
	Release   = "dev"
	GitCommit = "unknown"
	GOOS      = "unknown"
	GOARCH    = "unknown"
)

// Name is the program name used in output and outbound requests.
const Name = "aquaboard"

// Full returns the version string in the format "release (commit)".
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Release, GitCommit)
}

// FullWithPlatform returns the version string with platform information.
func FullWithPlatform() string {
	return fmt.Sprintf("%s %s (commit: %s, %s/%s)", Name, Release, GitCommit, GOOS, GOARCH)
}

// UserAgent identifies the daemon to the reporting backend.
func UserAgent() string {
	return Name + "/" + Release
}
