package vpn

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,63}$`)

// ValidateName checks that a profile name is safe to use as a store key and URL segment.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("profile name is required")
	}
	if trimmed != name {
		return fmt.Errorf("profile name must not start or end with whitespace")
	}
	if len(trimmed) > 64 {
		return fmt.Errorf("profile name must be 64 characters or fewer")
	}
	if strings.Contains(trimmed, "..") {
		return fmt.Errorf("profile name must not contain '..'")
	}
	if strings.ContainsAny(trimmed, `/\\`) {
		return fmt.Errorf("profile name must not contain path separators")
	}
	if strings.ContainsRune(trimmed, '@') {
		return fmt.Errorf("profile name must not contain '@'")
	}
	for _, r := range trimmed {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("profile name must not contain whitespace or control characters")
		}
	}
	if !namePattern.MatchString(trimmed) {
		return fmt.Errorf("profile name must match ^[a-zA-Z0-9][a-zA-Z0-9._-]{0,63}$")
	}
	return nil
}
