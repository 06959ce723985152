// Package version provides build-time version information.
//
// Variables are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/rickgao/trendgame/internal/version.Version=1.0.0 \
//	                   -X github.com/rickgao/trendgame/internal/version.Commit=$(git rev-parse --short HEAD) \
//	                   -X github.com/rickgao/trendgame/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// When Commit is not set at build time, CI_COMMIT_SHA from the environment is used.
package version

import "os"

// Build-time variables (set via ldflags)
var (
	// Version is the semantic version (e.g., "1.0.0")
	Version = "dev"

	// Commit is the git commit hash (short form)
	Commit = "unknown"

	// BuildTime is the UTC build timestamp (ISO 8601)
	BuildTime = "unknown"
)

// String returns a formatted version string.
func String() string {
	return Version + " (" + CommitSHA() + ") built " + BuildTime
}

// CommitSHA returns Commit, falling back to CI_COMMIT_SHA.
func CommitSHA() string {
	if Commit != "unknown" && Commit != "" {
		return Commit
	}
	if sha := os.Getenv("CI_COMMIT_SHA"); sha != "" {
		return sha
	}
	return "unknown"
}
