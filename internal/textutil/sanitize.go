package textutil

import (
	"regexp"
	"strings"
)

var (
	// unsafePattern matches character runs that are invalid or risky in
	// filenames on common filesystems.
	unsafePattern = regexp.MustCompile(`[\\/:*?"<>|]+`)
	// spacePattern collapses whitespace runs left behind by replacement.
	spacePattern = regexp.MustCompile(`\s+`)
)

// maxFileNameLength caps sanitized names to keep joined paths portable.
const maxFileNameLength = 80

// SanitizeFileName converts a contact display name into a filesystem-safe
// filename fragment. Runs of unsafe characters become a single underscore,
// whitespace is collapsed, and the result is capped at 80 runes. Names that
// sanitize to nothing fall back to "contact".
func SanitizeFileName(name string) string {
	cleaned := unsafePattern.ReplaceAllString(name, "_")
	cleaned = strings.TrimSpace(spacePattern.ReplaceAllString(cleaned, " "))
	if cleaned == "" {
		return "contact"
	}
	runes := []rune(cleaned)
	if len(runes) > maxFileNameLength {
		cleaned = strings.TrimSpace(string(runes[:maxFileNameLength]))
		if cleaned == "" {
			return "contact"
		}
	}
	return cleaned
}
