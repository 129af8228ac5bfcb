package validators

import "strings"

// SanitizeString trims surrounding whitespace from free-text input such as
// product names and adjustment notes, and caps it at maxLen runes. A maxLen
// of zero leaves the length alone.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen <= 0 {
		return trimmed
	}
	runes := []rune(trimmed)
	if len(runes) > maxLen {
		return string(runes[:maxLen])
	}
	return trimmed
}
