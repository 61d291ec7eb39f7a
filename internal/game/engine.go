// internal/game/engine.go
//
// State machine for a single guessing round.
// Responsibilities:
//   - Create rounds from a target text (upper-cased, trimmed, diacritics folded
//     for comparison).
//   - Validate and record letter guesses under the guess cap.
//   - Drive status transitions: pending → playing → revealed → won/lost,
//     plus reset and unreveal.
//   - Publish a GameUpdated event after every observable mutation.
//
// Notes:
//   - Invalid operations are silently ignored (no-op or false), matching the
//     disabled affordances of the presentation layer.
//   - Terminal statuses (won/lost) are only left through Reset.
//   - Countdown handling lives in timer.go; persistence form in serialize.go.
package game

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/robalobadob/guessboard/internal/clock"
	"github.com/robalobadob/guessboard/internal/events"
)

// New constructs a pending round for text.
// The id is a random UUID unless WithID is supplied.
func New(text string, opts ...Option) *Game {
	g := &Game{
		id:         uuid.NewString(),
		alphabet:   AlphabetLetters,
		rules:      DefaultRules(),
		guessed:    make(map[string]struct{}),
		guessOrder: []string{},
		status:     StatusPending,
		boardScale: 1,
		clk:        clock.Real{},
		pub:        events.Discard{},
	}
	for _, opt := range opts {
		opt(g)
	}
	g.text = strings.TrimSpace(cases.Upper(language.Und).String(text))
	g.norm = Normalize(g.text)
	g.unique = uniqueLetters(g.norm, g.alphabet)
	g.remaining = g.rules.TimerDuration
	return g
}

// ------------------------------- reads -------------------------------------

// ID returns the immutable round identifier.
func (g *Game) ID() string { return g.id }

// Text returns the upper-cased target text.
func (g *Game) Text() string { return g.text }

// NormalizedText returns the target text with diacritics stripped.
func (g *Game) NormalizedText() string { return g.norm }

// Words splits the target text on whitespace.
func (g *Game) Words() []string { return strings.Fields(g.text) }

// UniqueLetters lists the distinct guessable characters of the text.
func (g *Game) UniqueLetters() []string {
	return append([]string(nil), g.unique...)
}

// Rules returns the rules this round was created with.
func (g *Game) Rules() Rules { return g.rules }

// Alphabet returns the guessable character set of this round.
func (g *Game) Alphabet() Alphabet { return g.alphabet }

// Status returns the current lifecycle state.
func (g *Game) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// GuessedLetters returns guesses in the order they were recorded.
func (g *Game) GuessedLetters() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string{}, g.guessOrder...)
}

// GuessCount is the number of distinct letters recorded.
func (g *Game) GuessCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.guessOrder)
}

// CanGuess reports whether GuessLetter would consider a new letter.
func (g *Game) CanGuess() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.canGuessLocked()
}

// RemainingTime is the countdown value in whole seconds.
func (g *Game) RemainingTime() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.remaining
}

// FormattedTime renders the remaining time as M:SS.
func (g *Game) FormattedTime() string {
	return formatTime(g.RemainingTime())
}

// IsTimerLow reports whether the countdown is at or below the low threshold.
func (g *Game) IsTimerLow() bool {
	return g.RemainingTime() <= g.rules.LowTime
}

// GameOver reports whether the round reached won or lost.
func (g *Game) GameOver() bool {
	return g.Status().Terminal()
}

// IsComplete is true once every unique letter has been guessed, and always
// true outside of playing.
func (g *Game) IsComplete() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status != StatusPlaying || g.allGuessedLocked()
}

// BoardScale returns the display scale factor.
func (g *Game) BoardScale() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.boardScale
}

// IsLetterRevealed reports whether letter (any case or accent) was guessed.
func (g *Game) IsLetterRevealed(letter string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.guessed[Normalize(letter)]
	return ok
}

// IsLetterCorrect reports whether letter appears in the text.
func (g *Game) IsLetterCorrect(letter string) bool {
	return g.inText(Normalize(letter))
}

// ------------------------------ mutations ----------------------------------

// Start moves pending → playing and begins the countdown.
func (g *Game) Start() {
	g.update("start", func() bool {
		if g.status != StatusPending {
			return false
		}
		g.status = StatusPlaying
		g.startTimerLocked()
		return true
	})
}

// GuessLetter records a guess. It returns false without changing anything
// when guessing is not allowed, the input is not a single guessable
// character, or the letter was already guessed. Guessing the last missing
// letter moves the round to revealed. A text with no guessable characters
// is complete from the start, so its first accepted guess reveals it.
func (g *Game) GuessLetter(letter string) bool {
	accepted := false
	g.update("guess", func() bool {
		if !g.canGuessLocked() {
			return false
		}
		l, ok := normalizeGuess(letter, g.alphabet)
		if !ok {
			return false
		}
		if _, dup := g.guessed[l]; dup {
			return false
		}
		g.addGuessLocked(l)
		if g.status == StatusPlaying && g.allGuessedLocked() {
			g.stopTimerLocked()
			g.status = StatusRevealed
		}
		accepted = true
		return true
	})
	return accepted
}

// Reveal stops the countdown and discloses every letter. No-op once the
// round is won or lost.
func (g *Game) Reveal() {
	g.update("reveal", func() bool {
		if g.status.Terminal() {
			return false
		}
		g.revealLocked()
		return true
	})
}

// Unreveal retracts a reveal: back to playing with no guesses, and the
// countdown resumes from the time that was left.
func (g *Game) Unreveal() {
	g.update("unreveal", func() bool {
		if g.status != StatusRevealed {
			return false
		}
		g.clearGuessesLocked()
		g.status = StatusPlaying
		g.startTimerLocked()
		return true
	})
}

// MarkWon judges a revealed round as won.
func (g *Game) MarkWon() { g.mark(StatusWon, "won") }

// MarkLost judges a revealed round as lost.
func (g *Game) MarkLost() { g.mark(StatusLost, "lost") }

func (g *Game) mark(to Status, op string) {
	g.update(op, func() bool {
		if g.status != StatusRevealed {
			return false
		}
		g.stopTimerLocked()
		g.status = to
		return true
	})
}

// Reset returns the round to pending with a full countdown and no guesses.
func (g *Game) Reset() {
	g.update("reset", func() bool {
		g.stopTimerLocked()
		g.clearGuessesLocked()
		g.status = StatusPending
		g.remaining = g.rules.TimerDuration
		return true
	})
}

// SetBoardScale clamps scale to [MinBoardScale, MaxBoardScale] and rounds
// it to one decimal. NaN is ignored.
func (g *Game) SetBoardScale(scale float64) {
	if math.IsNaN(scale) {
		return
	}
	s := clampScale(scale)
	g.update("scale", func() bool {
		if g.boardScale == s {
			return false
		}
		g.boardScale = s
		return true
	})
}

// Close stops the countdown without changing state. Used when the round is
// discarded.
func (g *Game) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopTimerLocked()
}

// ------------------------------- helpers -----------------------------------

// update runs fn under the lock and publishes op if fn reports a change.
func (g *Game) update(op string, fn func() bool) {
	g.mu.Lock()
	changed := fn()
	g.mu.Unlock()
	if changed {
		g.emit(op)
	}
}

func (g *Game) emit(op string) {
	g.pub.Publish(events.Event{Type: events.TypeGameUpdated, GameID: g.id, Op: op})
}

func (g *Game) canGuessLocked() bool {
	return g.status == StatusPlaying && len(g.guessOrder) < g.rules.MaxGuesses
}

func (g *Game) allGuessedLocked() bool {
	for _, l := range g.unique {
		if _, ok := g.guessed[l]; !ok {
			return false
		}
	}
	return true
}

func (g *Game) addGuessLocked(l string) {
	if _, ok := g.guessed[l]; ok {
		return
	}
	g.guessed[l] = struct{}{}
	g.guessOrder = append(g.guessOrder, l)
}

func (g *Game) clearGuessesLocked() {
	g.guessed = make(map[string]struct{})
	g.guessOrder = []string{}
}

// revealLocked stops the countdown, marks revealed and adds every letter.
func (g *Game) revealLocked() {
	g.stopTimerLocked()
	g.status = StatusRevealed
	for _, l := range g.unique {
		g.addGuessLocked(l)
	}
}

func (g *Game) inText(l string) bool {
	for _, u := range g.unique {
		if u == l {
			return true
		}
	}
	return false
}

func clampScale(scale float64) float64 {
	s := math.Max(MinBoardScale, math.Min(MaxBoardScale, scale))
	return math.Round(s*10) / 10
}

func formatTime(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
