package utils

import (
	"strings"
)

// sanitize.go - Path-component sanitization for upload destinations.
// Team names and original filenames come straight from clients and feed
// into filesystem paths; anything outside a small allow-list is stripped.

// SanitizePathComponent reduces a client-supplied string to a safe single
// path component: letters, digits, dot, dash and underscore. Spaces become
// underscores, path separators and parent references are removed entirely.
// Returns false if nothing usable survives.
func SanitizePathComponent(input string) (string, bool) {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, " ", "_")

	var b strings.Builder
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		}
	}

	out := b.String()
	// Collapse parent references that survive the allow-list.
	for strings.Contains(out, "..") {
		out = strings.ReplaceAll(out, "..", ".")
	}
	out = strings.Trim(out, ".")

	if out == "" {
		return "", false
	}
	return out, true
}

// SafeExt returns the lowercased extension of a sanitized filename, or ""
// if none survives sanitization.
func SafeExt(filename string) string {
	clean, okName := SanitizePathComponent(filename)
	if !okName {
		return ""
	}
	idx := strings.LastIndex(clean, ".")
	if idx < 0 || idx == len(clean)-1 {
		return ""
	}
	return strings.ToLower(clean[idx:])
}

// TruncateString safely truncates a string to max length.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
