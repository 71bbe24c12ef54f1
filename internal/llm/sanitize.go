package llm

import (
	"regexp"
	"unicode/utf8"
)

var reDataURL = regexp.MustCompile(`(?is)\bdata:(image|video|audio)/[a-z0-9+.-]+;base64,[a-z0-9+/=\r\n]+`)

// RedactMedia replaces inline media payloads (data URLs from uploaded images)
// with a marker so they never reach logs.
func RedactMedia(s string) string {
	return reDataURL.ReplaceAllString(s, "[REDACTED media]")
}

// Preview shortens s to at most n runes for log lines.
func Preview(s string, n int) string {
	s = RedactMedia(s)
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}
