// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FoldASCII strips diacritics from s ("Müller" → "Muller"). Runes with no
// ASCII decomposition are kept as is.
func FoldASCII(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeTitle lowercases and folds s, replaces every non-alphanumeric
// rune with a space, and collapses whitespace.
func NormalizeTitle(s string) string {
	s = strings.ToLower(FoldASCII(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Surname extracts the normalized family name from an author string.
// "Last, First" takes the part before the comma; "A. B. Last" and
// "Last AB" (initials trailing) are both recognised.
func Surname(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if idx := strings.Index(name, ","); idx > 0 {
		return letters(name[:idx])
	}
	parts := strings.Fields(name)
	last := parts[len(parts)-1]
	if len(parts) > 1 && isInitials(last) && !isInitials(parts[0]) {
		return letters(parts[0])
	}
	return letters(last)
}

// isInitials reports whether tok looks like a run of initials ("A", "AB", "A.B.").
func isInitials(tok string) bool {
	n := 0
	for _, r := range tok {
		switch {
		case r == '.':
		case unicode.IsUpper(r):
			n++
		default:
			return false
		}
	}
	return n > 0 && n <= 3
}

func letters(s string) string {
	s = strings.ToLower(FoldASCII(s))
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
