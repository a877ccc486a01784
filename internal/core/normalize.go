package core

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize reduces a category name to its comparison key: lowercase,
// diacritics removed, only letters and digits kept.
//
//	Normalize("Aluguél")         -> "aluguel"
//	Normalize("Renda Fixa (CDB)") -> "rendafixacdb"
func Normalize(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, strings.ToLower(name))
	if err != nil {
		stripped = strings.ToLower(name)
	}
	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range stripped {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
