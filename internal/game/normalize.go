package game

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize upper-cases s and strips combining diacritical marks so accented
// letters compare equal to their base form (É → E, Ü → U). Ñ is its own
// letter and is kept intact.
//
// Casers and transform chains carry state, so both are built per call.
func Normalize(s string) string {
	s = norm.NFC.String(cases.Upper(language.Und).String(s))

	var b strings.Builder
	b.Grow(len(s))
	strip := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	for _, r := range s {
		if r == 'Ñ' || r < utf8.RuneSelf {
			b.WriteRune(r)
			continue
		}
		base, _, err := transform.String(strip, string(r))
		if err != nil {
			b.WriteRune(r)
			continue
		}
		b.WriteString(base)
	}
	return b.String()
}

// normalizeGuess returns the single guessable character letter maps to,
// or false when it is empty, longer than one character, or outside a.
func normalizeGuess(letter string, a Alphabet) (string, bool) {
	n := Normalize(strings.TrimSpace(letter))
	if utf8.RuneCountInString(n) != 1 {
		return "", false
	}
	r, _ := utf8.DecodeRuneInString(n)
	if !a.Contains(r) {
		return "", false
	}
	return n, true
}

// uniqueLetters lists the distinct guessable characters of normalized text
// in order of first appearance.
func uniqueLetters(normalized string, a Alphabet) []string {
	seen := make(map[rune]struct{})
	var out []string
	for _, r := range normalized {
		if !a.Contains(r) {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, string(r))
	}
	return out
}
