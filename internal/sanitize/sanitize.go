// Package sanitize cleans free text on its way in and spreadsheet cells on
// their way out.
package sanitize

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// Text removes markup and control characters from user supplied text. The
// result is plain text: entities the policy escapes are decoded again.
func Text(s string) string {
	s = StripUnprintable(s)
	s = strictPolicy.Sanitize(s)
	return strings.TrimSpace(html.UnescapeString(s))
}

// TextPtr applies Text to an optional value.
func TextPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := Text(*s)
	return &v
}

// Cell prefixes values a spreadsheet would evaluate as a formula.
func Cell(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	switch trimmed[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

// StripUnprintable drops non printable runes but keeps common whitespace.
func StripUnprintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		return -1
	}, s)
}
