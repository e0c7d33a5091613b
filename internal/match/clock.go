package match

import (
	"context"
	"sync"
	"time"

	"github.com/dyluth/gambit/internal/rules"
)

// Clock tracks both sides' remaining time with advance-on-read semantics:
// every observation first deducts the elapsed wall time from whichever side
// is live, then reports. A single arithmetic path serves both the engine's
// per-move deduction and the periodic ticker, so the two can never disagree.
//
// A side's clock only becomes live once that side has moved at least once,
// matching over-the-board convention that thinking on the first move is free.
type Clock struct {
	mu sync.Mutex

	unlimited bool
	remaining [2]time.Duration
	moved     [2]bool // side has completed at least one move
	active    rules.Side
	live      bool // active side's clock is running
	last      time.Time

	now func() time.Time // injectable for tests
}

// ClockSnapshot is a point-in-time view of both clocks.
type ClockSnapshot struct {
	Unlimited bool
	White     time.Duration
	Black     time.Duration
}

// Remaining returns the snapshot's value for the given side.
func (s ClockSnapshot) Remaining(side rules.Side) time.Duration {
	if side == rules.White {
		return s.White
	}
	return s.Black
}

// NewClock builds a clock with the given per-side budget.
// A zero or negative budget means an untimed match.
func NewClock(perSide time.Duration) *Clock {
	c := &Clock{now: time.Now}
	if perSide <= 0 {
		c.unlimited = true
		return c
	}
	c.remaining[rules.White] = perSide
	c.remaining[rules.Black] = perSide
	return c
}

// RestoreClock rebuilds a clock from persisted state. Either remaining value
// being nil means the match is untimed. The moved flags record which sides
// have already completed a move, so resumed matches keep their first-move
// exemption status.
func RestoreClock(white, black *time.Duration, whiteMoved, blackMoved bool) *Clock {
	c := &Clock{now: time.Now}
	if white == nil || black == nil {
		c.unlimited = true
		return c
	}
	c.remaining[rules.White] = *white
	c.remaining[rules.Black] = *black
	c.moved[rules.White] = whiteMoved
	c.moved[rules.Black] = blackMoved
	return c
}

// Unlimited reports whether the match is untimed.
func (c *Clock) Unlimited() bool { return c.unlimited }

// Started reports whether side has completed at least one move.
func (c *Clock) Started(side rules.Side) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.moved[side]
}

// SetTurn marks side as the one to move. The side's clock starts running
// only if it has already made a move; otherwise its first think is free.
func (c *Clock) SetTurn(side rules.Side) {
	if c.unlimited {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.advanceLocked()
	c.active = side
	c.live = c.moved[side]
	c.last = c.now()
}

// MarkMoved records that side has completed a move. From the next SetTurn
// onward that side's clock runs while it thinks.
func (c *Clock) MarkMoved(side rules.Side) {
	if c.unlimited {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.advanceLocked()
	c.moved[side] = true
	c.live = false
}

// Snapshot deducts elapsed time from the live side and returns both clocks.
func (c *Clock) Snapshot() ClockSnapshot {
	if c.unlimited {
		return ClockSnapshot{Unlimited: true}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.advanceLocked()
	return ClockSnapshot{
		White: c.remaining[rules.White],
		Black: c.remaining[rules.Black],
	}
}

// Expired reports whether the given side's clock has reached zero.
func (c *Clock) Expired(side rules.Side) bool {
	if c.unlimited {
		return false
	}
	return c.Snapshot().Remaining(side) <= 0
}

// advanceLocked folds wall time elapsed since the last observation into the
// live side's remaining budget, flooring at zero. Callers hold c.mu.
func (c *Clock) advanceLocked() {
	now := c.now()
	if c.live {
		elapsed := now.Sub(c.last)
		if elapsed > 0 {
			c.remaining[c.active] -= elapsed
			if c.remaining[c.active] < 0 {
				c.remaining[c.active] = 0
			}
		}
	}
	c.last = now
}

// StartTicker launches a goroutine that calls fn with a fresh snapshot every
// interval until ctx is cancelled. Used to surface live clock updates to
// observers between moves. No-op for untimed matches.
func (c *Clock) StartTicker(ctx context.Context, interval time.Duration, fn func(ClockSnapshot)) {
	if c.unlimited || fn == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(c.Snapshot())
			}
		}
	}()
}
