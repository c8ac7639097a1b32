// Package version holds build information set through -ldflags.
package version

var (
	// Version is the released version, e.g. v0.3.0.
	Version = "dev"
	// Commit is the git commit the binary was built from.
	Commit = "unknown"
)
