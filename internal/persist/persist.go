// internal/persist/persist.go
//
// Debounced snapshot writer.
// Responsibilities:
//   - Subscribe to change events and coalesce bursts into one write.
//   - Serialize the latest in-memory state at write time, never a queued copy.
//   - Erase the snapshot on request, cancelling any pending write.
//
// Writes are best-effort: failures are logged and the in-memory state stays
// authoritative. There are no retries.

package persist

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/guessboard/internal/clock"
	"github.com/robalobadob/guessboard/internal/events"
	"github.com/robalobadob/guessboard/internal/kv"
)

// DefaultDelay is the coalescing window.
const DefaultDelay = 100 * time.Millisecond

const writeTimeout = 5 * time.Second

// Snapshotter produces the bytes to persist.
type Snapshotter func() ([]byte, error)

// Coordinator writes snapshots under a single key.
type Coordinator struct {
	kv    kv.Store
	key   string
	clk   clock.Clock
	delay time.Duration
	snap  Snapshotter

	wmu sync.Mutex // serializes writes and erases

	mu      sync.Mutex // guards pending and gen
	pending clock.Timer
	gen     uint64
}

// New returns a Coordinator. A non-positive delay selects DefaultDelay.
func New(store kv.Store, key string, clk clock.Clock, delay time.Duration, snap Snapshotter) *Coordinator {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Coordinator{kv: store, key: key, clk: clk, delay: delay, snap: snap}
}

// Handle is an events.Handler. Clearing is persisted through Erase, so
// GamesCleared does not schedule a write.
func (c *Coordinator) Handle(ev events.Event) {
	if ev.Type == events.TypeGamesCleared {
		return
	}
	c.Notify()
}

// Notify schedules a write at the end of the current window. Calls inside
// an open window share its write.
func (c *Coordinator) Notify() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil {
		return
	}
	gen := c.gen
	c.pending = c.clk.AfterFunc(c.delay, func() { c.fire(gen) })
}

// Flush cancels any pending write and writes the current state now.
func (c *Coordinator) Flush(ctx context.Context) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.cancel()
	return c.write(ctx)
}

// Erase cancels any pending write and deletes the snapshot.
func (c *Coordinator) Erase(ctx context.Context) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.cancel()
	if err := c.kv.Delete(ctx, c.key); err != nil {
		return fmt.Errorf("erase %s: %w", c.key, err)
	}
	return nil
}

// Load reads the persisted snapshot. It returns kv.ErrNotFound when none exists.
func (c *Coordinator) Load(ctx context.Context) ([]byte, error) {
	return c.kv.Get(ctx, c.key)
}

func (c *Coordinator) fire(gen uint64) {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.pending = nil
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := c.write(ctx); err != nil {
		log.Warn().Err(err).Str("key", c.key).Msg("persist snapshot")
	}
}

func (c *Coordinator) cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
}

func (c *Coordinator) write(ctx context.Context) error {
	data, err := c.snap()
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if err := c.kv.Set(ctx, c.key, data); err != nil {
		return fmt.Errorf("write %s: %w", c.key, err)
	}
	return nil
}
