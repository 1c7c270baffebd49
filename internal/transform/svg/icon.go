package svg

import (
	"fmt"
	"regexp"
	"strings"
)

var viewBoxPattern = regexp.MustCompile(`(?i)viewBox="[\d.]+ [\d.]+ ([\d.]+) ([\d.]+)"`)

// ViewBoxSize extracts the width and height of the first viewBox attribute.
// ok is false when the markup has no parseable viewBox.
func ViewBoxSize(markup string) (width, height string, ok bool) {
	m := viewBoxPattern.FindStringSubmatch(markup)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// UnsafeChars are escaped by EscapeIcon.
const UnsafeChars = "{}|\\^~[]`\"<>#%"

// EscapeIcon percent-escapes the characters that break a url() data URI and
// trims surrounding whitespace.
func EscapeIcon(markup string) string {
	var b strings.Builder
	b.Grow(len(markup))
	for i := 0; i < len(markup); i++ {
		c := markup[i]
		if strings.IndexByte(UnsafeChars, c) >= 0 {
			fmt.Fprintf(&b, "%%%X", c)
			continue
		}
		b.WriteByte(c)
	}
	return strings.TrimSpace(b.String())
}

// UnescapeGT undoes the renderer's "&gt;" escaping.
func UnescapeGT(markup []byte) []byte {
	return []byte(strings.ReplaceAll(string(markup), "&gt;", ">"))
}
