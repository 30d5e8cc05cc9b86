package helpers

import "strings"

// SplitCSV splits a comma-separated string into trimmed, non-empty parts.
// Returns nil for an empty input so callers can range over it directly.
func SplitCSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// TruncateString shortens s to at most maxLen characters, replacing the
// tail with "..." when a cut happens.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
