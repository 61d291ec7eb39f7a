// internal/compose/compose.go
//
// Drafting of team texts before a batch of rounds is created.
// Responsibilities:
//   - Track the number of teams (never below one) and one text per team.
//   - Decide whether the draft can be submitted (every team has text).
//   - Grade text length so long phrases can be flagged before play.

package compose

import (
	"strings"
	"unicode/utf8"
)

// DefaultTeams is the team count of a fresh draft.
const DefaultTeams = 3

// Score grades a text by length.
type Score string

const (
	ScoreGood     Score = "good"
	ScoreMedium   Score = "medium"
	ScoreBad      Score = "bad"
	ScoreTerrible Score = "terrible"
)

// Length thresholds in characters, inclusive.
const (
	goodMaxChars   = 90
	mediumMaxChars = 120
	badMaxChars    = 150
)

// Stats describes one text.
type Stats struct {
	Words int   `json:"words"`
	Chars int   `json:"chars"`
	Score Score `json:"score"`
}

// Measure counts words and characters and grades the length.
func Measure(text string) Stats {
	chars := utf8.RuneCountInString(text)
	score := ScoreGood
	switch {
	case chars > badMaxChars:
		score = ScoreTerrible
	case chars > mediumMaxChars:
		score = ScoreBad
	case chars > goodMaxChars:
		score = ScoreMedium
	}
	return Stats{Words: len(strings.Fields(text)), Chars: chars, Score: score}
}

// Draft holds the texts being written by each team. It is not safe for
// concurrent use.
type Draft struct {
	teams int
	texts []string
}

// NewDraft returns a draft with DefaultTeams empty texts.
func NewDraft() *Draft {
	return &Draft{teams: DefaultTeams, texts: make([]string, DefaultTeams)}
}

// FromTexts returns a draft with one team per text.
func FromTexts(texts []string) *Draft {
	d := &Draft{teams: len(texts), texts: append([]string(nil), texts...)}
	if d.teams < 1 {
		d.teams = 1
		d.texts = make([]string, 1)
	}
	return d
}

// Teams returns the current team count.
func (d *Draft) Teams() int { return d.teams }

// IncreaseTeams adds a team. Text previously written for that slot is kept.
func (d *Draft) IncreaseTeams() {
	d.teams++
	if len(d.texts) < d.teams {
		d.texts = append(d.texts, "")
	}
}

// DecreaseTeams removes the last team. The count never drops below one;
// it reports whether a team was removed.
func (d *Draft) DecreaseTeams() bool {
	if d.teams <= 1 {
		return false
	}
	d.teams--
	return true
}

// SetText sets the text for team i. Out-of-range teams are ignored.
func (d *Draft) SetText(i int, text string) bool {
	if i < 0 || i >= d.teams {
		return false
	}
	d.texts[i] = text
	return true
}

// Texts returns one text per current team.
func (d *Draft) Texts() []string {
	return append([]string(nil), d.texts[:d.teams]...)
}

// CanSubmit reports whether every current team has non-blank text.
func (d *Draft) CanSubmit() bool {
	for _, t := range d.texts[:d.teams] {
		if strings.TrimSpace(t) == "" {
			return false
		}
	}
	return true
}

// Stats measures every current team's text.
func (d *Draft) Stats() []Stats {
	out := make([]Stats, d.teams)
	for i, t := range d.texts[:d.teams] {
		out[i] = Measure(t)
	}
	return out
}
