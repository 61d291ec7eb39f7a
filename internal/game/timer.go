package game

import "time"

// The countdown is anchored to the instant it would have started at full
// duration: remaining = TimerDuration - whole seconds since anchor. Ticks
// are scheduled against the anchor rather than chained one second apart,
// and Resume recomputes remaining from the anchor when the host process
// was suspended and ticks were delayed.

// Resume reconciles a running countdown with the wall clock. Call it when
// the presentation layer becomes visible again. If the time ran out while
// suspended, the round times out immediately.
func (g *Game) Resume() {
	g.mu.Lock()
	if g.status != StatusPlaying || g.anchor.IsZero() {
		g.mu.Unlock()
		return
	}
	before, anchor := g.remaining, g.anchor
	op := "resume"
	if g.reconcileLocked(g.anchor) {
		op = "timeout"
	}
	changed := op == "timeout" || g.remaining != before || !g.anchor.Equal(anchor)
	g.mu.Unlock()
	if changed {
		g.emit(op)
	}
}

// reconcileLocked recomputes remaining from anchor and re-arms the tick.
// Remaining time never goes up: when the clock moved backwards (or anchor
// lies in the future) the current remaining is kept and the anchor moved.
// Reports whether the round timed out.
func (g *Game) reconcileLocked(anchor time.Time) bool {
	now := g.clk.Now()
	elapsed := int(now.Sub(anchor) / time.Second)
	expected := g.rules.TimerDuration - elapsed
	if anchor.After(now) || expected > g.remaining {
		expected = g.remaining
		anchor = now.Add(-time.Duration(g.rules.TimerDuration-g.remaining) * time.Second)
	}
	if expected <= 0 {
		g.timeoutLocked()
		return true
	}
	g.remaining = expected
	g.cancelTickLocked()
	g.anchor = anchor
	g.scheduleTickLocked(now)
	return false
}

// startTimerLocked cancels any running countdown and starts a new one from
// the current remaining time.
func (g *Game) startTimerLocked() {
	g.cancelTickLocked()
	if g.remaining <= 0 {
		g.timeoutLocked()
		return
	}
	now := g.clk.Now()
	g.anchor = now.Add(-time.Duration(g.rules.TimerDuration-g.remaining) * time.Second)
	g.scheduleTickLocked(now)
}

// stopTimerLocked cancels the countdown. Idempotent.
func (g *Game) stopTimerLocked() {
	g.cancelTickLocked()
	g.anchor = time.Time{}
}

func (g *Game) cancelTickLocked() {
	g.gen++
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}

func (g *Game) scheduleTickLocked(now time.Time) {
	gen := g.gen
	done := g.rules.TimerDuration - g.remaining
	due := g.anchor.Add(time.Duration(done+1) * time.Second)
	d := due.Sub(now)
	if d < 0 {
		d = 0
	}
	g.timer = g.clk.AfterFunc(d, func() { g.tick(gen) })
}

// tick decrements the countdown once. Callbacks from a cancelled countdown
// carry a stale generation and are dropped.
func (g *Game) tick(gen uint64) {
	g.mu.Lock()
	if gen != g.gen || g.status != StatusPlaying {
		g.mu.Unlock()
		return
	}
	g.timer = nil
	g.remaining--
	op := "tick"
	if g.remaining <= 0 {
		g.timeoutLocked()
		op = "timeout"
	} else {
		g.scheduleTickLocked(g.clk.Now())
	}
	g.mu.Unlock()
	g.emit(op)
}

// timeoutLocked is the loss-by-time path: every letter is shown and the
// round is lost. Only valid from playing.
func (g *Game) timeoutLocked() {
	if g.status != StatusPlaying {
		return
	}
	g.remaining = 0
	g.revealLocked()
	g.status = StatusLost
}
