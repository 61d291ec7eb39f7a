package compose

import (
	"strings"
	"testing"
)

func TestMeasure(t *testing.T) {
	cases := []struct {
		text  string
		words int
		score Score
	}{
		{"", 0, ScoreGood},
		{"  Dios es   amor ", 3, ScoreGood},
		{strings.Repeat("a", 90), 1, ScoreGood},
		{strings.Repeat("a", 91), 1, ScoreMedium},
		{strings.Repeat("a", 120), 1, ScoreMedium},
		{strings.Repeat("a", 121), 1, ScoreBad},
		{strings.Repeat("a", 150), 1, ScoreBad},
		{strings.Repeat("a", 151), 1, ScoreTerrible},
	}
	for _, c := range cases {
		got := Measure(c.text)
		if got.Words != c.words || got.Score != c.score {
			t.Fatalf("Measure(%d chars): expected %d/%s got %d/%s", len(c.text), c.words, c.score, got.Words, got.Score)
		}
	}
	if got := Measure("ñandú"); got.Chars != 5 {
		t.Fatalf("expected characters counted, not bytes: got %d", got.Chars)
	}
}

func TestTeamCountFloor(t *testing.T) {
	d := NewDraft()
	if d.Teams() != DefaultTeams {
		t.Fatalf("expected %d teams got %d", DefaultTeams, d.Teams())
	}
	for d.DecreaseTeams() {
	}
	if d.Teams() != 1 {
		t.Fatalf("expected floor of 1 got %d", d.Teams())
	}
	if d.DecreaseTeams() {
		t.Fatalf("expected decrease below one rejected")
	}
}

func TestTextsSurviveTeamChanges(t *testing.T) {
	d := NewDraft()
	d.SetText(2, "tercero")
	d.DecreaseTeams()
	if got := d.Texts(); len(got) != 2 {
		t.Fatalf("expected 2 texts got %v", got)
	}
	d.IncreaseTeams()
	if got := d.Texts(); got[2] != "tercero" {
		t.Fatalf("expected text kept for restored team got %v", got)
	}
	d.IncreaseTeams()
	if got := d.Texts(); len(got) != 4 || got[3] != "" {
		t.Fatalf("expected new empty team got %v", got)
	}
	if d.SetText(4, "x") || d.SetText(-1, "x") {
		t.Fatalf("expected out-of-range team rejected")
	}
}

func TestCanSubmit(t *testing.T) {
	d := FromTexts([]string{"uno", "  "})
	if d.CanSubmit() {
		t.Fatalf("expected blank team to block submit")
	}
	d.SetText(1, "dos")
	if !d.CanSubmit() {
		t.Fatalf("expected submit allowed")
	}
	if FromTexts(nil).CanSubmit() {
		t.Fatalf("expected empty draft to block submit")
	}
	if n := len(d.Stats()); n != 2 {
		t.Fatalf("expected stats per team got %d", n)
	}
}
