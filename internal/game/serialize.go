package game

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Serialized is the persisted form of a round. Optional fields are pointers
// so absence can be told apart from zero.
type Serialized struct {
	ID             string   `json:"id"`
	Text           string   `json:"text"`
	GuessedLetters []string `json:"guessedLetters"`
	Status         Status   `json:"status"`
	BoardScale     *float64 `json:"boardScale,omitempty"`
	RemainingTime  *int     `json:"remainingTime,omitempty"`
	TimerStartedAt *int64   `json:"timerStartedAt,omitempty"` // Unix ms of the countdown anchor
}

// Serialize captures the round for a key-value store.
func (g *Game) Serialize() Serialized {
	g.mu.Lock()
	defer g.mu.Unlock()

	scale := g.boardScale
	remaining := g.remaining
	s := Serialized{
		ID:             g.id,
		Text:           g.text,
		GuessedLetters: append([]string{}, g.guessOrder...),
		Status:         g.status,
		BoardScale:     &scale,
		RemainingTime:  &remaining,
	}
	if !g.anchor.IsZero() {
		ms := g.anchor.UnixMilli()
		s.TimerStartedAt = &ms
	}
	return s
}

// Deserialize rebuilds a round. A round persisted while playing with a
// countdown anchor is reconciled against the injected clock exactly like
// Resume: it keeps running with the wall-clock remaining time, or times out
// (lost, every letter shown, remaining 0) if the time ran out meanwhile.
// Deserialization does not publish events.
func Deserialize(data Serialized, opts ...Option) (*Game, error) {
	if data.ID == "" {
		return nil, errors.New("game: missing id")
	}
	if !data.Status.Valid() {
		return nil, fmt.Errorf("game %s: unknown status %q", data.ID, data.Status)
	}

	g := New(data.Text, append(opts, WithID(data.ID))...)

	g.mu.Lock()
	defer g.mu.Unlock()

	for _, l := range data.GuessedLetters {
		if l == "" {
			continue
		}
		g.addGuessLocked(l)
	}
	g.status = data.Status
	if data.BoardScale != nil && !math.IsNaN(*data.BoardScale) {
		g.boardScale = clampScale(*data.BoardScale)
	}
	if data.RemainingTime != nil {
		g.remaining = min(max(*data.RemainingTime, 0), g.rules.TimerDuration)
	}

	if g.status == StatusPlaying && data.TimerStartedAt != nil {
		g.reconcileLocked(time.UnixMilli(*data.TimerStartedAt))
	}
	return g, nil
}
