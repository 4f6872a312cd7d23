package version

import (
	"regexp"
	"strconv"
	"strings"
)

var semverPattern = regexp.MustCompile(`^v?([0-9]+)\.([0-9]+)(?:\.([0-9]+))?(?:-([A-Za-z0-9.]+))?$`)

type semverParts struct {
	major      int
	minor      int
	patch      int
	prerelease string
}

func parseSemver(tag string) (semverParts, bool) {
	matches := semverPattern.FindStringSubmatch(strings.TrimSpace(tag))
	if len(matches) != 5 {
		return semverParts{}, false
	}
	major, err := strconv.Atoi(matches[1])
	if err != nil {
		return semverParts{}, false
	}
	minor, err := strconv.Atoi(matches[2])
	if err != nil {
		return semverParts{}, false
	}
	patch := 0
	if matches[3] != "" {
		if patch, err = strconv.Atoi(matches[3]); err != nil {
			return semverParts{}, false
		}
	}
	return semverParts{major: major, minor: minor, patch: patch, prerelease: matches[4]}, true
}

func isPrerelease(tag string) bool {
	parts, ok := parseSemver(tag)
	return ok && parts.prerelease != ""
}

// isNewerVersion reports whether candidate is ahead of current. A release
// is ahead of any prerelease with the same core version. Unparseable tags
// only count as newer when they differ.
func isNewerVersion(current, candidate string) bool {
	currentTag := strings.TrimSpace(current)
	candidateTag := strings.TrimSpace(candidate)
	if candidateTag == "" {
		return false
	}
	if currentTag == "" {
		return true
	}
	currentSemver, currentOK := parseSemver(currentTag)
	candidateSemver, candidateOK := parseSemver(candidateTag)
	if currentOK && candidateOK {
		if candidateSemver.major != currentSemver.major {
			return candidateSemver.major > currentSemver.major
		}
		if candidateSemver.minor != currentSemver.minor {
			return candidateSemver.minor > currentSemver.minor
		}
		if candidateSemver.patch != currentSemver.patch {
			return candidateSemver.patch > currentSemver.patch
		}
		switch {
		case candidateSemver.prerelease == currentSemver.prerelease:
			return false
		case candidateSemver.prerelease == "":
			return true
		case currentSemver.prerelease == "":
			return false
		default:
			return candidateSemver.prerelease > currentSemver.prerelease
		}
	}
	return candidateTag != currentTag
}

// IsValid reports whether tag is a version Evaluate can order.
func IsValid(tag string) bool {
	_, ok := parseSemver(tag)
	return ok
}
