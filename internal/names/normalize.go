// Package names derives the two canonical forms of an employee name used by
// the dispatcher: a filename-safe form and a roster search key.
//
// The CFDI, the roster spreadsheet and the renamed PDF each spell the same
// person differently (accents, casing, spacing). Both forms strip accents the
// same way so the three sources can be joined.
package names

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// CanonicalFileName returns the form used as the name part of a renamed
// receipt: accents removed, outer whitespace trimmed, inner whitespace and
// path separators replaced by '_', upper-cased.
//
//	CanonicalFileName("Ana López") == "ANA_LOPEZ"
//	CanonicalFileName("Ana\tMaría  Gómez") == "ANA_MARIA__GOMEZ"
//	CanonicalFileName("Pérez/Ruiz") == "PEREZ_RUIZ"
func CanonicalFileName(name string) string {
	s := strings.TrimSpace(stripMarks(name))
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, s)
	return strings.ToUpper(s)
}

// SearchKey returns the form used only to look names up in the roster:
// accents removed, every whitespace and '_' dropped, upper-cased.
//
//	SearchKey("José  Pérez") == SearchKey("JOSE_PEREZ") == "JOSEPEREZ"
func SearchKey(name string) string {
	s := strings.TrimSpace(stripMarks(name))
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '_' {
			return -1
		}
		return r
	}, s)
	return strings.ToUpper(s)
}

// stripMarks decomposes s in NFKD and drops the nonspacing combining marks,
// leaving the base letters.
func stripMarks(s string) string {
	decomposed := norm.NFKD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
