package game

import (
	"testing"
	"unicode/utf8"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"café":       "CAFE",
		"ÁÉÍÓÚÜ":     "AEIOUU",
		"niño":       "NIÑO",
		"N\u0303":    "Ñ", // decomposed Ñ is composed first
		"à la carte": "A LA CARTE",
		"juan 3:16":  "JUAN 3:16",
		"¿qué?":      "¿QUE?",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q): expected %q got %q", in, want, got)
		}
	}
}

func TestUniqueLettersStripsDiacritics(t *testing.T) {
	g := New("CAFÉ")
	want := []string{"C", "A", "F", "E"}
	if !equalStrings(g.UniqueLetters(), want) {
		t.Fatalf("expected %v got %v", want, g.UniqueLetters())
	}
}

func TestUniqueLettersKeepsEnye(t *testing.T) {
	g := New("año nuevo")
	want := []string{"A", "Ñ", "O", "N", "U", "E", "V"}
	if !equalStrings(g.UniqueLetters(), want) {
		t.Fatalf("expected %v got %v", want, g.UniqueLetters())
	}
}

func TestUniqueLettersOnlyGuessable(t *testing.T) {
	texts := []string{
		"Juan 3:16",
		"¡Hola, señor Pérez!",
		"  — ... ",
		"Dios es amor (1 Juan 4:8)",
		"über café crème",
	}
	for _, alpha := range []Alphabet{AlphabetLetters, AlphabetExtended} {
		for _, text := range texts {
			g := New(text, WithAlphabet(alpha))
			seen := map[string]bool{}
			for _, l := range g.UniqueLetters() {
				r, size := utf8.DecodeRuneInString(l)
				if size != len(l) || !alpha.Contains(r) {
					t.Fatalf("%s/%q: %q is not guessable", alpha, text, l)
				}
				if seen[l] {
					t.Fatalf("%s/%q: duplicate %q", alpha, text, l)
				}
				seen[l] = true
			}
		}
	}
}

func TestExtendedAlphabetIncludesDigitsAndColon(t *testing.T) {
	g := New("Juan 3:16", WithAlphabet(AlphabetExtended))
	want := []string{"J", "U", "A", "N", "3", ":", "1", "6"}
	if !equalStrings(g.UniqueLetters(), want) {
		t.Fatalf("expected %v got %v", want, g.UniqueLetters())
	}
	g = New("Juan 3:16")
	want = []string{"J", "U", "A", "N"}
	if !equalStrings(g.UniqueLetters(), want) {
		t.Fatalf("expected %v got %v", want, g.UniqueLetters())
	}
}

func TestParseAlphabet(t *testing.T) {
	if a, err := ParseAlphabet("extended"); err != nil || a != AlphabetExtended {
		t.Fatalf("expected extended got %v %v", a, err)
	}
	if a, err := ParseAlphabet(""); err != nil || a != AlphabetLetters {
		t.Fatalf("expected letters got %v %v", a, err)
	}
	if _, err := ParseAlphabet("greek"); err == nil {
		t.Fatalf("expected error for unknown alphabet")
	}
}
