package version

import (
	"fmt"
	"strings"
)

// Build-time metadata injected via -ldflags.
// Defaults are used for local/dev builds.
var (
	AppVersion = "dev"
	GitCommit  = "unknown"
	BuildTime  = "unknown"
)

// Info describes the running binary build metadata.
type Info struct {
	Version   string
	Commit    string
	BuildTime string
}

// Current returns the build metadata for this binary.
func Current() Info {
	return Info{
		Version:   strings.TrimSpace(AppVersion),
		Commit:    strings.TrimSpace(GitCommit),
		BuildTime: strings.TrimSpace(BuildTime),
	}
}

// String returns a human-readable version string.
func (i Info) String() string {
	version := strings.TrimSpace(i.Version)
	if version == "" {
		version = "dev"
	}
	commit := strings.TrimSpace(i.Commit)
	if commit == "" {
		commit = "unknown"
	}
	buildTime := strings.TrimSpace(i.BuildTime)
	if buildTime == "" {
		buildTime = "unknown"
	}
	return fmt.Sprintf("vpnd %s (commit %s, built %s)", version, commit, buildTime)
}

// AppVersionInfo tells the UI whether the running daemon is supported and
// which release, if any, it should upgrade to.
type AppVersionInfo struct {
	Supported    bool
	LatestStable string
	LatestBeta   string
	// SuggestedUpgrade is nil when no upgrade is suggested.
	SuggestedUpgrade *string
}

// Releases is the published release catalogue Evaluate compares against.
type Releases struct {
	Stable []string
	Beta   []string
	// MinSupported is the oldest version still supported. Empty means every version is.
	MinSupported string
}

// Evaluate derives the AppVersionInfo for current from the release catalogue.
// Beta builds are offered the newest beta when it is ahead of the newest stable.
func Evaluate(current string, releases Releases) AppVersionInfo {
	latestStable := newest(releases.Stable)
	latestBeta := newest(append([]string{latestStable}, releases.Beta...))

	info := AppVersionInfo{
		Supported:    releases.MinSupported == "" || !isNewerVersion(current, releases.MinSupported),
		LatestStable: latestStable,
		LatestBeta:   latestBeta,
	}

	candidate := latestStable
	if isPrerelease(current) {
		candidate = latestBeta
	}
	if candidate != "" && isNewerVersion(current, candidate) {
		info.SuggestedUpgrade = &candidate
	}
	return info
}

func newest(versions []string) string {
	best := ""
	for _, candidate := range versions {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if best == "" || isNewerVersion(best, candidate) {
			best = candidate
		}
	}
	return best
}
