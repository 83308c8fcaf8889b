package utils

import (
	"regexp"
	"strings"
)

// --- Key Sanitization ---
var invalidKeyChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`) // Anything outside a conservative key alphabet
var consecutiveUnderscores = regexp.MustCompile(`_+`)       // Pattern to replace multiple underscores with one
const maxKeyLength = 100                                    // Max length for sanitized keys

// SanitizeKey cleans a string for use as a draft key or export filename component
func SanitizeKey(name string) string {
	sanitized := invalidKeyChars.ReplaceAllString(strings.TrimSpace(name), "_")
	sanitized = consecutiveUnderscores.ReplaceAllString(sanitized, "_")
	sanitized = strings.Trim(sanitized, "_.")

	if len(sanitized) > maxKeyLength {
		sanitized = sanitized[:maxKeyLength]
		sanitized = strings.Trim(sanitized, "_.")
	}

	if sanitized == "" {
		sanitized = "untitled"
	}
	return sanitized
}
