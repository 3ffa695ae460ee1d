package utils

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// SanitizeKeyComponent makes a report org name safe for use inside a
// storage key: dots, slashes and spaces become underscores. Runs of
// underscores collapse to one and boundary underscores are trimmed, so
// "Example Inc." yields "Example_Inc".
func SanitizeKeyComponent(s string) string {
	replacer := strings.NewReplacer(".", "_", "/", "_", " ", "_")
	sanitized := replacer.Replace(strings.TrimSpace(s))
	for strings.Contains(sanitized, "__") {
		sanitized = strings.ReplaceAll(sanitized, "__", "_")
	}
	return strings.Trim(sanitized, "_")
}

// ShortHash returns the first 8 hex characters of the SHA-256 over the
// concatenated parts. Collision resistance is best-effort; callers use it
// only to disambiguate fallback storage keys.
func ShortHash(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "")))
	return fmt.Sprintf("%x", sum[:4])
}

// HasSuffixFold reports whether name ends with suffix, case-insensitive.
func HasSuffixFold(name, suffix string) bool {
	if len(name) < len(suffix) {
		return false
	}
	return strings.EqualFold(name[len(name)-len(suffix):], suffix)
}

// ContainsFold reports whether substr occurs in s, case-insensitive.
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
