package publish

import (
	"unicode/utf8"
)

// Ellipsis marks text that was cut to fit a platform limit.
const Ellipsis = "..."

// Truncate cuts text to at most limit characters, replacing the tail with
// Ellipsis. The cut is by character, not by word.
func Truncate(text string, limit int) string {
	if FitsInLimit(text, limit) {
		return text
	}
	if limit <= 0 {
		return ""
	}

	runes := []rune(text)
	if limit <= len(Ellipsis) {
		return string(runes[:limit])
	}
	return string(runes[:limit-len(Ellipsis)]) + Ellipsis
}

// FitsInLimit checks if the text fits within the limit.
func FitsInLimit(text string, limit int) bool {
	return utf8.RuneCountInString(text) <= limit
}
