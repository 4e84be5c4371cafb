// Package utils holds small text helpers for notices and logs.
package utils

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// TruncateText flattens text to one line and cuts it to maxLen runes,
// ending with "..." when cut
func TruncateText(text string, maxLen int) string {
	text = strings.Join(strings.Fields(text), " ")

	if utf8.RuneCountInString(text) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return "..."
	}
	runes := []rune(text)
	return string(runes[:maxLen-3]) + "..."
}

// EscapeForLogging cuts user-supplied text to maxLen runes and escapes
// control characters so it stays on one log line
func EscapeForLogging(text string, maxLen int) string {
	if utf8.RuneCountInString(text) > maxLen {
		text = string([]rune(text)[:maxLen]) + "..."
	}

	text = strings.ReplaceAll(text, "\n", "\\n")
	text = strings.ReplaceAll(text, "\r", "\\r")
	text = strings.ReplaceAll(text, "\t", "\\t")

	return text
}

// FormatDistance renders a radius in meters the way notices show it.
// Examples: 800 -> "800 m", 3000 -> "3 km", 2500 -> "2,5 km"
func FormatDistance(meters int) string {
	if meters < 1000 {
		return fmt.Sprintf("%d m", meters)
	}
	if meters%1000 == 0 {
		return fmt.Sprintf("%d km", meters/1000)
	}
	km := fmt.Sprintf("%.1f", float64(meters)/1000)
	km = strings.TrimSuffix(km, ".0")
	return strings.Replace(km, ".", ",", 1) + " km"
}
