package match

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/gambit/internal/rules"
)

// fakeNow gives tests full control over the clock's view of wall time.
type fakeNow struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeNow() *fakeNow {
	return &fakeNow{t: time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeNow) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeNow) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

func newTestClock(perSide time.Duration) (*Clock, *fakeNow) {
	c := NewClock(perSide)
	fn := newFakeNow()
	c.now = fn.now
	return c, fn
}

func TestClockUnlimited(t *testing.T) {
	c := NewClock(0)
	assert.True(t, c.Unlimited())
	assert.False(t, c.Expired(rules.White))

	snap := c.Snapshot()
	assert.True(t, snap.Unlimited)
}

func TestClockFirstMoveExemption(t *testing.T) {
	c, fn := newTestClock(time.Minute)

	// Neither side has moved; however long the first think takes, nothing
	// is deducted.
	c.SetTurn(rules.White)
	fn.advance(5 * time.Minute)

	snap := c.Snapshot()
	assert.Equal(t, time.Minute, snap.White)
	assert.Equal(t, time.Minute, snap.Black)
	assert.False(t, c.Expired(rules.White))
}

func TestClockDeductsForStartedSide(t *testing.T) {
	c, fn := newTestClock(time.Minute)

	c.SetTurn(rules.White)
	c.MarkMoved(rules.White)
	c.SetTurn(rules.Black)
	c.MarkMoved(rules.Black)

	// White has moved, so its second think is on the clock.
	c.SetTurn(rules.White)
	fn.advance(10 * time.Second)

	snap := c.Snapshot()
	assert.Equal(t, 50*time.Second, snap.White)
	assert.Equal(t, time.Minute, snap.Black, "opponent clock is frozen")
}

func TestClockOnlyActiveSideDecreases(t *testing.T) {
	c, fn := newTestClock(time.Minute)
	c.MarkMoved(rules.White)
	c.MarkMoved(rules.Black)

	c.SetTurn(rules.Black)
	fn.advance(15 * time.Second)

	snap := c.Snapshot()
	assert.Equal(t, time.Minute, snap.White)
	assert.Equal(t, 45*time.Second, snap.Black)
}

func TestClockMonotonicAndFloored(t *testing.T) {
	c, fn := newTestClock(10 * time.Second)
	c.MarkMoved(rules.White)
	c.SetTurn(rules.White)

	var previous = c.Snapshot().White
	for i := 0; i < 5; i++ {
		fn.advance(3 * time.Second)
		current := c.Snapshot().White
		assert.LessOrEqual(t, current, previous)
		assert.GreaterOrEqual(t, current, time.Duration(0))
		previous = current
	}

	// 15 seconds elapsed against a 10 second budget.
	assert.Equal(t, time.Duration(0), c.Snapshot().White)
	assert.True(t, c.Expired(rules.White))
}

func TestClockRepeatedReadsAreIdempotent(t *testing.T) {
	c, fn := newTestClock(time.Minute)
	c.MarkMoved(rules.White)
	c.SetTurn(rules.White)

	fn.advance(10 * time.Second)

	// Reading many times without time passing must not deduct extra.
	first := c.Snapshot()
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, c.Snapshot())
	}
}

func TestClockMarkMovedStopsDeduction(t *testing.T) {
	c, fn := newTestClock(time.Minute)
	c.MarkMoved(rules.White)
	c.SetTurn(rules.White)

	fn.advance(10 * time.Second)
	c.MarkMoved(rules.White)

	// Between turns nobody's clock runs.
	fn.advance(30 * time.Second)
	snap := c.Snapshot()
	assert.Equal(t, 50*time.Second, snap.White)
	assert.Equal(t, time.Minute, snap.Black)
}

func TestClockStartedFlags(t *testing.T) {
	c, _ := newTestClock(time.Minute)
	assert.False(t, c.Started(rules.White))
	assert.False(t, c.Started(rules.Black))

	c.MarkMoved(rules.White)
	assert.True(t, c.Started(rules.White))
	assert.False(t, c.Started(rules.Black))
}

func TestRestoreClock(t *testing.T) {
	t.Run("nil remaining means untimed", func(t *testing.T) {
		c := RestoreClock(nil, nil, false, false)
		assert.True(t, c.Unlimited())
	})

	t.Run("restores remaining and started flags", func(t *testing.T) {
		white := 30 * time.Second
		black := 45 * time.Second
		c := RestoreClock(&white, &black, true, false)
		require.False(t, c.Unlimited())

		snap := c.Snapshot()
		assert.Equal(t, 30*time.Second, snap.White)
		assert.Equal(t, 45*time.Second, snap.Black)
		assert.True(t, c.Started(rules.White))
		assert.False(t, c.Started(rules.Black))
	})
}

func TestClockTicker(t *testing.T) {
	c := NewClock(time.Minute)
	c.MarkMoved(rules.White)
	c.SetTurn(rules.White)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snaps := make(chan ClockSnapshot, 16)
	c.StartTicker(ctx, 5*time.Millisecond, func(s ClockSnapshot) {
		select {
		case snaps <- s:
		default:
		}
	})

	select {
	case snap := <-snaps:
		assert.False(t, snap.Unlimited)
	case <-time.After(time.Second):
		t.Fatal("ticker never fired")
	}
}
