// Package strings holds small text helpers for terminal output.
package strings

import (
	"strings"
)

// MessageMaxLen bounds status messages in narrow table output. Container
// waiting messages can span many lines.
const MessageMaxLen = 60

// minTruncateLen leaves room for one character plus the ellipsis.
const minTruncateLen = 4

// SingleLine collapses every run of whitespace, newlines included, into a
// single space.
func SingleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate returns s on one line, cut to at most maxLen runes with a
// trailing "..." when it was longer.
func Truncate(s string, maxLen int) string {
	maxLen = max(maxLen, minTruncateLen)
	runes := []rune(SingleLine(s))
	if len(runes) <= maxLen {
		return string(runes)
	}
	return string(runes[:maxLen-3]) + "..."
}
