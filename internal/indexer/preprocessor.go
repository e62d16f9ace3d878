package indexer

import (
	"strings"
	"unicode"
)

// NormalizePageText cleans extracted page text: CRLF becomes LF, runs of horizontal
// whitespace collapse to one space, trailing spaces on each line are removed, and more
// than one blank line collapses to a single paragraph break.
func NormalizePageText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var b strings.Builder
	b.Grow(len(text))
	newlines := 0
	wasSpace := false
	for _, r := range strings.TrimSpace(text) {
		switch {
		case r == '\n':
			newlines++
			wasSpace = false
		case unicode.IsSpace(r):
			if newlines == 0 {
				wasSpace = true
			}
		default:
			if newlines > 0 {
				b.WriteString(strings.Repeat("\n", min(newlines, 2)))
				newlines = 0
			} else if wasSpace {
				b.WriteRune(' ')
			}
			wasSpace = false
			b.WriteRune(r)
		}
	}
	return b.String()
}
