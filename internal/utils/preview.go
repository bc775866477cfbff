package utils

import "strings"

// TruncatePreview shortens message content to a notification preview,
// counting runes so multi-byte text is never split mid-character.
func TruncatePreview(content string, max int) string {
	content = strings.TrimSpace(content)
	runes := []rune(content)
	if len(runes) <= max {
		return content
	}
	return string(runes[:max]) + "…"
}
