// Package title derives display titles for chat sessions.
package title

import (
	"strings"
	"unicode/utf8"
)

const (
	// MaxLength is the longest candidate, in characters, before the ellipsis
	MaxLength = 50

	// Ellipsis marks a candidate that was shortened
	Ellipsis = "..."

	// Placeholder is shown wherever a session has no title yet
	Placeholder = "New Chat"
)

// Derive maps the raw text of a session's first user message to a bounded
// candidate title. Text that fits is returned trimmed; longer text is
// packed word by word up to MaxLength and suffixed with Ellipsis. A leading
// token too long to fit on its own is hard-truncated instead.
//
// The result never exceeds MaxLength+len(Ellipsis) characters and is empty
// only for blank input.
func Derive(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	if utf8.RuneCountInString(text) <= MaxLength {
		return text
	}

	var b strings.Builder
	length := 0
	for _, word := range strings.Fields(text) {
		wordLen := utf8.RuneCountInString(word)
		next := length + wordLen
		if length > 0 {
			next++ // joining space
		}
		if next > MaxLength {
			break
		}
		if length > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(word)
		length = next
	}

	if length > 0 {
		return b.String() + Ellipsis
	}

	runes := []rune(text)
	return string(runes[:MaxLength-len(Ellipsis)]) + Ellipsis
}

// Display returns t, or Placeholder when t is empty
func Display(t string) string {
	if t == "" {
		return Placeholder
	}
	return t
}
