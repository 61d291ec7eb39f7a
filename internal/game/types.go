// internal/game/types.go
//
// Core type definitions for the guessing-round engine.
// Defines:
//   - Status: lifecycle state of a round (pending/playing/revealed/won/lost).
//   - Rules: guess cap and countdown settings shared by every round.
//   - Alphabet: which normalized characters count as guessable.
//   - Game: state for a single round, guarded by its own mutex because the
//     countdown fires on a timer goroutine.

package game

import (
	"fmt"
	"sync"
	"time"

	"github.com/robalobadob/guessboard/internal/clock"
	"github.com/robalobadob/guessboard/internal/events"
)

// Status is the lifecycle state of a round.
//
//	pending → playing → revealed → won | lost
//	playing → lost (timeout, via revealed)
//
// Reset returns any status to pending; Unreveal returns revealed to playing.
type Status string

const (
	StatusPending  Status = "pending"
	StatusPlaying  Status = "playing"
	StatusRevealed Status = "revealed"
	StatusWon      Status = "won"
	StatusLost     Status = "lost"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPlaying, StatusRevealed, StatusWon, StatusLost:
		return true
	}
	return false
}

// Terminal reports whether s is won or lost.
func (s Status) Terminal() bool {
	return s == StatusWon || s == StatusLost
}

// Defaults used when no Rules are supplied.
const (
	DefaultMaxGuesses    = 4
	DefaultTimerDuration = 60 // seconds
	DefaultLowTime       = 10 // seconds
)

// Board scale bounds.
const (
	MinBoardScale = 0.5
	MaxBoardScale = 1.5
)

// Rules are the per-round constants.
type Rules struct {
	MaxGuesses    int // distinct letters a player may submit
	TimerDuration int // countdown length in seconds
	LowTime       int // IsTimerLow threshold in seconds (inclusive)
}

// DefaultRules returns the stock rules: 4 guesses, 60 second countdown.
func DefaultRules() Rules {
	return Rules{
		MaxGuesses:    DefaultMaxGuesses,
		TimerDuration: DefaultTimerDuration,
		LowTime:       DefaultLowTime,
	}
}

// withDefaults fills zero fields.
func (r Rules) withDefaults() Rules {
	d := DefaultRules()
	if r.MaxGuesses <= 0 {
		r.MaxGuesses = d.MaxGuesses
	}
	if r.TimerDuration <= 0 {
		r.TimerDuration = d.TimerDuration
	}
	if r.LowTime < 0 {
		r.LowTime = d.LowTime
	}
	return r
}

// Alphabet selects the guessable character set.
type Alphabet int

const (
	// AlphabetLetters is A–Z plus Ñ.
	AlphabetLetters Alphabet = iota
	// AlphabetExtended is AlphabetLetters plus 0–9 and ':'.
	AlphabetExtended
)

// Contains reports whether the normalized rune r is guessable.
func (a Alphabet) Contains(r rune) bool {
	if (r >= 'A' && r <= 'Z') || r == 'Ñ' {
		return true
	}
	if a == AlphabetExtended {
		return (r >= '0' && r <= '9') || r == ':'
	}
	return false
}

// String returns the config name of the alphabet.
func (a Alphabet) String() string {
	if a == AlphabetExtended {
		return "extended"
	}
	return "letters"
}

// ParseAlphabet maps a config value ("letters", "extended") to an Alphabet.
func ParseAlphabet(s string) (Alphabet, error) {
	switch s {
	case "", "letters":
		return AlphabetLetters, nil
	case "extended":
		return AlphabetExtended, nil
	}
	return AlphabetLetters, fmt.Errorf("unknown alphabet %q", s)
}

// Game holds the state of a single round.
type Game struct {
	mu sync.Mutex

	id       string
	text     string // upper-cased, trimmed
	norm     string // text with diacritics stripped
	unique   []string
	alphabet Alphabet
	rules    Rules

	guessed    map[string]struct{}
	guessOrder []string
	status     Status
	remaining  int
	boardScale float64

	clk    clock.Clock
	pub    events.Publisher
	timer  clock.Timer
	anchor time.Time // instant the countdown would have started at full duration; zero when stopped
	gen    uint64    // bumped on every start/stop so stale tick callbacks are ignored
}

// Option customizes a Game at construction.
type Option func(*Game)

// WithID fixes the game id (used by deserialization).
func WithID(id string) Option { return func(g *Game) { g.id = id } }

// WithClock injects the time source.
func WithClock(c clock.Clock) Option { return func(g *Game) { g.clk = c } }

// WithRules overrides the guess cap and countdown settings.
func WithRules(r Rules) Option { return func(g *Game) { g.rules = r.withDefaults() } }

// WithAlphabet selects the guessable character set.
func WithAlphabet(a Alphabet) Option { return func(g *Game) { g.alphabet = a } }

// WithPublisher wires change notifications.
func WithPublisher(p events.Publisher) Option { return func(g *Game) { g.pub = p } }
