// internal/store/store.go
//
// GameStore: the in-memory collection of rounds for one session.
// Responsibilities:
//   - Keep *game.Game values keyed by ID, plus their insertion order for
//     index-based selection.
//   - Track the active round as a validated reference (never dangling).
//   - Orchestrate bulk create / reset / clear.
//   - Rehydrate from the key-value store at construction and keep the
//     persisted snapshot in sync through a debounced persist.Coordinator.
//
// Characteristics:
//   - Concurrency-safe via RWMutex. Lock order is store → game; events are
//     published after the store lock is released.
//   - Invalid selections are ignored, never raised as errors.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/guessboard/internal/clock"
	"github.com/robalobadob/guessboard/internal/events"
	"github.com/robalobadob/guessboard/internal/game"
	"github.com/robalobadob/guessboard/internal/kv"
	"github.com/robalobadob/guessboard/internal/persist"
)

// DefaultKey is the key the snapshot is persisted under.
const DefaultKey = "mebi-games"

// Options configure a GameStore. Zero values select defaults.
type Options struct {
	KV       kv.Store      // defaults to an in-memory store
	Key      string        // defaults to DefaultKey
	Clock    clock.Clock   // defaults to clock.Real
	Bus      *events.Bus   // defaults to a private bus
	Rules    game.Rules    // defaults to game.DefaultRules
	Alphabet game.Alphabet // defaults to game.AlphabetLetters
	Debounce time.Duration // defaults to persist.DefaultDelay
}

// Snapshot is the persisted layout.
type Snapshot struct {
	Games        []game.Serialized `json:"games"`
	ActiveGameID *string           `json:"activeGameId"`
}

// View is a read model of the whole collection for the presentation layer.
type View struct {
	Games             []game.View `json:"games"`
	ActiveGameID      *string     `json:"activeGameId"`
	ActiveGameIndex   int         `json:"activeGameIndex"`
	AllGamesCompleted bool        `json:"allGamesCompleted"`
}

// GameStore owns the rounds of a session and the active pointer.
type GameStore struct {
	mu     sync.RWMutex
	games  map[string]*game.Game // keyed by Game.ID()
	order  []string              // insertion order
	active string                // "" when none

	clk      clock.Clock
	bus      *events.Bus
	rules    game.Rules
	alphabet game.Alphabet

	persist     *persist.Coordinator
	unsubscribe func()
}

// New constructs a GameStore and rehydrates it from opts.KV. A missing
// snapshot yields an empty store; an unreadable one is logged and also
// yields an empty store.
func New(ctx context.Context, opts Options) *GameStore {
	if opts.KV == nil {
		opts.KV = kv.NewMemory()
	}
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Bus == nil {
		opts.Bus = events.NewBus(opts.Clock.Now)
	}
	if opts.Rules == (game.Rules{}) {
		opts.Rules = game.DefaultRules()
	}

	s := &GameStore{
		games:    make(map[string]*game.Game),
		clk:      opts.Clock,
		bus:      opts.Bus,
		rules:    opts.Rules,
		alphabet: opts.Alphabet,
	}
	s.persist = persist.New(opts.KV, opts.Key, opts.Clock, opts.Debounce, s.MarshalSnapshot)

	changed, err := s.load(ctx)
	if err != nil {
		log.Error().Err(err).Str("key", opts.Key).Msg("load games, starting empty")
	}
	s.unsubscribe = s.bus.Subscribe(s.persist.Handle)
	if changed {
		s.persist.Notify()
	}
	return s
}

// Bus returns the bus the store and its rounds publish on.
func (s *GameStore) Bus() *events.Bus { return s.bus }

// ------------------------------- reads -------------------------------------

// Games returns the rounds in insertion order.
func (s *GameStore) Games() []*game.Game {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked()
}

// Game looks up a round by ID.
func (s *GameStore) Game(id string) (*game.Game, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.games[id]
	return g, ok
}

// GameByIndex looks up a round by insertion position.
func (s *GameStore) GameByIndex(i int) (*game.Game, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.order) {
		return nil, false
	}
	return s.games[s.order[i]], true
}

// Len returns the number of rounds.
func (s *GameStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// ActiveGame returns the active round, or nil.
func (s *GameStore) ActiveGame() *game.Game {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.games[s.active]
}

// ActiveGameID returns the active round's ID, or "" when none is active.
func (s *GameStore) ActiveGameID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// ActiveGameIndex returns the active round's position, or -1.
func (s *GameStore) ActiveGameIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexLocked(s.active)
}

// AllGamesCompleted reports whether the store is non-empty and every round
// is won or lost.
func (s *GameStore) AllGamesCompleted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.completedLocked()
}

// ----------------------------- mutations -----------------------------------

// CreateGames replaces every round with one per non-blank text and makes the
// first active. It returns the active ID, or "" when every text was blank.
func (s *GameStore) CreateGames(texts []string) string {
	s.mu.Lock()
	old := s.listLocked()
	s.games = make(map[string]*game.Game, len(texts))
	s.order = s.order[:0:0]
	s.active = ""
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		g := game.New(text, s.gameOptions()...)
		s.games[g.ID()] = g
		s.order = append(s.order, g.ID())
	}
	if len(s.order) > 0 {
		s.active = s.order[0]
	}
	active, created := s.active, len(s.order)
	s.mu.Unlock()

	for _, g := range old {
		g.Close()
	}
	log.Info().Int("games", created).Str("activeGameId", active).Msg("games created")
	s.bus.Publish(events.Event{Type: events.TypeGamesCreated, GameID: active})
	return active
}

// SetActiveGame activates the round with id. Unknown IDs are ignored and
// reported as false.
func (s *GameStore) SetActiveGame(id string) bool {
	s.mu.Lock()
	if _, ok := s.games[id]; !ok {
		s.mu.Unlock()
		return false
	}
	changed := s.active != id
	s.active = id
	s.mu.Unlock()

	if changed {
		s.bus.Publish(events.Event{Type: events.TypeActiveChanged, GameID: id})
	}
	return true
}

// SetActiveGameByIndex activates the round at position i. Out-of-range
// positions are ignored and reported as false.
func (s *GameStore) SetActiveGameByIndex(i int) bool {
	s.mu.RLock()
	if i < 0 || i >= len(s.order) {
		s.mu.RUnlock()
		return false
	}
	id := s.order[i]
	s.mu.RUnlock()
	return s.SetActiveGame(id)
}

// ResetAllGames returns every round to pending and activates the first.
func (s *GameStore) ResetAllGames() {
	s.mu.Lock()
	games := s.listLocked()
	s.active = ""
	if len(s.order) > 0 {
		s.active = s.order[0]
	}
	active := s.active
	s.mu.Unlock()

	for _, g := range games {
		g.Reset()
	}
	s.bus.Publish(events.Event{Type: events.TypeGamesReset, GameID: active})
}

// ClearAllGames empties the store and erases the persisted snapshot.
func (s *GameStore) ClearAllGames(ctx context.Context) error {
	s.mu.Lock()
	old := s.listLocked()
	s.games = make(map[string]*game.Game)
	s.order = nil
	s.active = ""
	s.mu.Unlock()

	for _, g := range old {
		g.Close()
	}
	err := s.persist.Erase(ctx)
	s.bus.Publish(events.Event{Type: events.TypeGamesCleared})
	return err
}

// Resume forwards the visibility-resume signal to every round.
func (s *GameStore) Resume() {
	for _, g := range s.Games() {
		g.Resume()
	}
}

// ---------------------------- persistence ----------------------------------

// Snapshot captures the persisted form of the collection.
func (s *GameStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{Games: make([]game.Serialized, 0, len(s.order))}
	for _, id := range s.order {
		snap.Games = append(snap.Games, s.games[id].Serialize())
	}
	if s.active != "" {
		id := s.active
		snap.ActiveGameID = &id
	}
	return snap
}

// MarshalSnapshot encodes Snapshot as JSON.
func (s *GameStore) MarshalSnapshot() ([]byte, error) {
	return json.Marshal(s.Snapshot())
}

// View builds the presentation read model.
func (s *GameStore) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v := View{
		Games:             make([]game.View, 0, len(s.order)),
		ActiveGameIndex:   s.indexLocked(s.active),
		AllGamesCompleted: s.completedLocked(),
	}
	for _, id := range s.order {
		v.Games = append(v.Games, s.games[id].View())
	}
	if s.active != "" {
		id := s.active
		v.ActiveGameID = &id
	}
	return v
}

// Flush writes the current snapshot immediately.
func (s *GameStore) Flush(ctx context.Context) error {
	return s.persist.Flush(ctx)
}

// Close stops observing changes, writes a final snapshot and stops every
// countdown. The key-value store is left open.
func (s *GameStore) Close(ctx context.Context) error {
	s.unsubscribe()
	err := s.persist.Flush(ctx)
	for _, g := range s.Games() {
		g.Close()
	}
	return err
}

// ------------------------------- helpers -----------------------------------

func (s *GameStore) gameOptions() []game.Option {
	return []game.Option{
		game.WithClock(s.clk),
		game.WithRules(s.rules),
		game.WithAlphabet(s.alphabet),
		game.WithPublisher(s.bus),
	}
}

func (s *GameStore) listLocked() []*game.Game {
	out := make([]*game.Game, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.games[id])
	}
	return out
}

func (s *GameStore) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i, v := range s.order {
		if v == id {
			return i
		}
	}
	return -1
}

func (s *GameStore) completedLocked() bool {
	if len(s.order) == 0 {
		return false
	}
	for _, id := range s.order {
		if !s.games[id].GameOver() {
			return false
		}
	}
	return true
}

// load rehydrates the collection. Nothing is kept unless the whole snapshot
// decodes. changed reports that the rebuilt state differs from what was
// stored (a round timed out meanwhile, or the active pointer was dropped).
func (s *GameStore) load(ctx context.Context) (changed bool, err error) {
	data, err := s.persist.Load(ctx)
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return false, fmt.Errorf("decode snapshot: %w", err)
	}

	games := make(map[string]*game.Game, len(snap.Games))
	order := make([]string, 0, len(snap.Games))
	discard := func() {
		for _, g := range games {
			g.Close()
		}
	}
	for i, sg := range snap.Games {
		g, err := game.Deserialize(sg, s.gameOptions()...)
		if err != nil {
			discard()
			return false, fmt.Errorf("game %d: %w", i, err)
		}
		if _, dup := games[g.ID()]; dup {
			g.Close()
			discard()
			return false, fmt.Errorf("game %d: duplicate id %s", i, g.ID())
		}
		if g.Status() != sg.Status {
			changed = true
		}
		games[g.ID()] = g
		order = append(order, g.ID())
	}

	active := ""
	if snap.ActiveGameID != nil {
		if _, ok := games[*snap.ActiveGameID]; ok {
			active = *snap.ActiveGameID
		} else {
			log.Warn().Str("activeGameId", *snap.ActiveGameID).Msg("persisted active game missing, clearing")
			changed = true
		}
	}

	s.mu.Lock()
	s.games, s.order, s.active = games, order, active
	s.mu.Unlock()
	log.Info().Int("games", len(order)).Str("activeGameId", active).Msg("games loaded")
	return changed, nil
}
