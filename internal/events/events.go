// internal/events/events.go
//
// Change notifications between the game core and its observers.
// Game and GameStore publish an Event after every observable mutation;
// the persistence coordinator and the websocket feed subscribe.
//
// Subscribers run synchronously on the publisher's goroutine and must not
// block or call back into the publisher.

package events

import (
	"sync"
	"time"
)

// Type describes the kind of change.
type Type string

const (
	TypeGameUpdated   Type = "GameUpdated"
	TypeGamesCreated  Type = "GamesCreated"
	TypeGamesReset    Type = "GamesReset"
	TypeGamesCleared  Type = "GamesCleared"
	TypeActiveChanged Type = "ActiveChanged"
)

// Event is a single state change notification.
type Event struct {
	ID     uint64
	At     time.Time
	Type   Type
	GameID string // empty for collection-level events
	Op     string // operation that caused a GameUpdated event ("guess", "tick", ...)
}

// Publisher is the narrow interface mutating components depend on.
type Publisher interface {
	Publish(ev Event)
}

// Handler receives published events.
type Handler func(Event)

// Bus fans events out to subscribers and stamps them with a sequence number.
type Bus struct {
	mu   sync.Mutex
	seq  uint64
	next int
	subs map[int]Handler
	now  func() time.Time
}

// NewBus returns a Bus stamping events with now().
func NewBus(now func() time.Time) *Bus {
	if now == nil {
		now = time.Now
	}
	return &Bus{subs: make(map[int]Handler), now: now}
}

// Subscribe registers h and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	b.subs[id] = h
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Publish assigns ID and At, then delivers ev to every subscriber.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	b.seq++
	ev.ID = b.seq
	if ev.At.IsZero() {
		ev.At = b.now()
	}
	handlers := make([]Handler, 0, len(b.subs))
	for _, h := range b.subs {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}

// Discard is a Publisher that drops everything.
type Discard struct{}

// Publish does nothing.
func (Discard) Publish(Event) {}
