package match

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/gambit/internal/rules"
	"github.com/dyluth/gambit/pkg/scoreboard"
)

// scriptedGateway replays a fixed list of responses. After the script runs
// out it repeats the last response. onCall, if set, runs before each reply
// is returned, letting tests simulate think time or external cancellation.
type scriptedGateway struct {
	mu      sync.Mutex
	name    string
	id      string
	replies []string
	err     error
	calls   int
	onCall  func(call int)
}

func (g *scriptedGateway) Name() string { return g.name }
func (g *scriptedGateway) ID() string   { return g.id }

func (g *scriptedGateway) Send(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	g.mu.Lock()
	call := g.calls
	g.calls++
	g.mu.Unlock()

	if g.onCall != nil {
		g.onCall(call)
	}
	if g.err != nil {
		return "", g.err
	}
	if len(g.replies) == 0 {
		return "", fmt.Errorf("no scripted replies")
	}
	if call >= len(g.replies) {
		call = len(g.replies) - 1
	}
	return g.replies[call], nil
}

func (g *scriptedGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func setupEngineStore(t *testing.T) *scoreboard.Client {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	client := scoreboard.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	if cfg.MatchID == "" {
		cfg.MatchID = "test-match"
	}
	if cfg.Rules == nil {
		adapter, err := rules.NewChess("")
		require.NoError(t, err)
		cfg.Rules = adapter
	}
	engine, err := NewEngine(cfg)
	require.NoError(t, err)
	return engine
}

func TestEngineCompletedByCheckmate(t *testing.T) {
	store := setupEngineStore(t)
	white := &scriptedGateway{name: "White Bot", id: "w", replies: []string{"f3", "g4"}}
	black := &scriptedGateway{name: "Black Bot", id: "b", replies: []string{"e5", "Qh4#"}}

	var moves []string
	engine := newTestEngine(t, Config{
		White: white,
		Black: black,
		Store: store,
		OnMove: func(entry scoreboard.MoveLogEntry, snap ClockSnapshot) {
			moves = append(moves, entry.Move)
		},
	})

	result, err := engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, scoreboard.StatusCompleted, result.Status)
	assert.Equal(t, "checkmate", result.TerminationReason)
	assert.Equal(t, "Black Bot", result.Winner)
	assert.Equal(t, "White Bot", result.Loser)
	assert.Equal(t, []string{"f3", "e5", "g4", "Qh4#"}, result.MoveHistory)
	assert.Equal(t, result.MoveHistory, moves)

	state, err := store.LoadState(context.Background(), "test-match")
	require.NoError(t, err)
	assert.NoError(t, state.Validate())
	assert.Equal(t, scoreboard.StatusCompleted, state.Status)
	require.NotNil(t, state.Outcome)
	assert.Equal(t, "Black Bot", state.Outcome.Winner)
	assert.Len(t, state.MoveLog, 4)
	assert.Equal(t, "Black", state.MoveLog[3].Side)
	assert.Equal(t, "Black Bot", state.MoveLog[3].AgentName)
}

func TestEngineRetriesThenAcceptsWithUnlimitedBudget(t *testing.T) {
	store := setupEngineStore(t)

	// Two unparseable replies, two illegal moves, then a legal one. With an
	// unlimited budget none of them forfeit.
	white := &scriptedGateway{name: "White Bot", id: "w",
		replies: []string{"zzz", "no idea", "Qd5", "Ke2", "e4", "d4"}}
	black := &scriptedGateway{name: "Black Bot", id: "b", replies: []string{"e5"}}

	// Stop the match externally once Black has replied.
	black.onCall = func(call int) {
		if call >= 1 {
			require.NoError(t, store.RequestCancel(context.Background(), "test-match"))
		}
	}

	engine := newTestEngine(t, Config{
		White:      white,
		Black:      black,
		Store:      store,
		MaxRetries: 0,
	})

	// Cancel after White's second accepted move would be requested; use the
	// second Black call as the trigger above.
	result, err := engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, scoreboard.StatusCancelled, result.Status)
	assert.Equal(t, "stopped", result.TerminationReason)
	assert.Empty(t, result.Winner)
	assert.Equal(t, []string{"e4", "e5", "d4"}, result.MoveHistory)

	state, err := store.LoadState(context.Background(), "test-match")
	require.NoError(t, err)
	assert.NoError(t, state.Validate())
	assert.Len(t, state.MoveLog, 3)
	assert.Empty(t, state.ForfeitAttempts, "rejected attempts are cleared once a move lands")

	// The first accepted move carries the whole turn's transcript: five
	// prompt/response pairs.
	assert.Len(t, state.MoveLog[0].Transcript, 10)
}

func TestEngineForfeitsAtExactBudget(t *testing.T) {
	store := setupEngineStore(t)
	white := &scriptedGateway{name: "White Bot", id: "w", replies: []string{"zzz"}}
	black := &scriptedGateway{name: "Black Bot", id: "b", replies: []string{"e5"}}

	engine := newTestEngine(t, Config{
		White:      white,
		Black:      black,
		Store:      store,
		MaxRetries: 2,
	})

	result, err := engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, scoreboard.StatusForfeited, result.Status)
	assert.Equal(t, "forfeit", result.TerminationReason)
	assert.Equal(t, "Black Bot", result.Winner)
	assert.Equal(t, "White Bot", result.Loser)
	assert.Equal(t, 2, white.callCount(), "budget of 2 means exactly 2 attempts")
	assert.Equal(t, 0, black.callCount())
	require.Len(t, result.ForfeitAttempts, 2)

	state, err := store.LoadState(context.Background(), "test-match")
	require.NoError(t, err)
	assert.NoError(t, state.Validate())
	require.Len(t, state.ForfeitAttempts, 2)
	assert.NotEmpty(t, state.ForfeitAttempts[0].Request)
	assert.Equal(t, "zzz", state.ForfeitAttempts[0].Response)
	assert.NotEmpty(t, state.ForfeitAttempts[0].Reason)
}

func TestEngineCancelledBeforeFirstMove(t *testing.T) {
	store := setupEngineStore(t)
	white := &scriptedGateway{name: "White Bot", id: "w", replies: []string{"e4"}}
	black := &scriptedGateway{name: "Black Bot", id: "b", replies: []string{"e5"}}

	require.NoError(t, store.RequestCancel(context.Background(), "test-match"))

	engine := newTestEngine(t, Config{White: white, Black: black, Store: store})
	result, err := engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, scoreboard.StatusCancelled, result.Status)
	assert.Equal(t, "stopped", result.TerminationReason)
	assert.Empty(t, result.Winner)
	assert.Equal(t, 0, white.callCount(), "no agent call after cancellation")
	assert.Empty(t, result.MoveHistory)

	state, err := store.LoadState(context.Background(), "test-match")
	require.NoError(t, err)
	assert.Equal(t, scoreboard.StatusCancelled, state.Status)
}

func TestEngineTimeExpiryDuringCall(t *testing.T) {
	store := setupEngineStore(t)

	clock, fn := newTestClock(100 * time.Millisecond)

	think := func(call int) { fn.advance(200 * time.Millisecond) }
	white := &scriptedGateway{name: "White Bot", id: "w", replies: []string{"e4", "d4"}, onCall: think}
	black := &scriptedGateway{name: "Black Bot", id: "b", replies: []string{"e5"}, onCall: think}

	engine := newTestEngine(t, Config{
		White: white,
		Black: black,
		Store: store,
		Clock: clock,
	})

	result, err := engine.Run(context.Background())
	require.NoError(t, err)

	// Both first moves are exempt however long they take; White's second
	// think runs 200ms against a 100ms budget.
	assert.Equal(t, scoreboard.StatusTimeExpired, result.Status)
	assert.Equal(t, "time", result.TerminationReason)
	assert.Equal(t, "Black Bot", result.Winner)
	assert.Equal(t, "White Bot", result.Loser)
	assert.Equal(t, []string{"e4", "e5"}, result.MoveHistory)

	state, err := store.LoadState(context.Background(), "test-match")
	require.NoError(t, err)
	require.NotNil(t, state.WhiteRemainingMs)
	assert.Equal(t, int64(0), *state.WhiteRemainingMs)
	assert.True(t, state.WhiteClockStarted)
	assert.True(t, state.BlackClockStarted)
}

func TestEngineExpiresBeforeCallWhenClockIsGone(t *testing.T) {
	store := setupEngineStore(t)

	zero := time.Duration(0)
	full := time.Minute
	clock := RestoreClock(&zero, &full, true, true)

	white := &scriptedGateway{name: "White Bot", id: "w", replies: []string{"e4"}}
	black := &scriptedGateway{name: "Black Bot", id: "b", replies: []string{"e5"}}

	engine := newTestEngine(t, Config{White: white, Black: black, Store: store, Clock: clock})
	result, err := engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, scoreboard.StatusTimeExpired, result.Status)
	assert.Equal(t, "Black Bot", result.Winner)
	assert.Equal(t, 0, white.callCount(), "no agent call for an expired side")
}

func TestEngineGatewayFailureIsFatal(t *testing.T) {
	store := setupEngineStore(t)
	white := &scriptedGateway{name: "White Bot", id: "w", err: fmt.Errorf("connection refused")}
	black := &scriptedGateway{name: "Black Bot", id: "b", replies: []string{"e5"}}

	engine := newTestEngine(t, Config{White: white, Black: black, Store: store})
	_, err := engine.Run(context.Background())
	require.Error(t, err)

	var gwErr *GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, "White Bot", gwErr.Agent)

	// The match record is left in progress for a later resume.
	state, loadErr := store.LoadState(context.Background(), "test-match")
	require.NoError(t, loadErr)
	assert.Equal(t, scoreboard.StatusInProgress, state.Status)
}

func TestEngineResumeContinuesHistory(t *testing.T) {
	store := setupEngineStore(t)

	// Persisted mid-match record after 1. e4 e5.
	resumed := scoreboard.NewMatchState("test-match")
	resumed.MoveHistory = []string{"e4", "e5"}
	resumed.MoveLog = []scoreboard.MoveLogEntry{
		{Move: "e4", Side: "White", AgentName: "White Bot"},
		{Move: "e5", Side: "Black", AgentName: "Black Bot"},
	}
	adapter, err := rules.NewChess("")
	require.NoError(t, err)
	_, err = adapter.Apply("e4")
	require.NoError(t, err)
	_, err = adapter.Apply("e5")
	require.NoError(t, err)
	resumed.FEN = adapter.FEN()

	white := &scriptedGateway{name: "White Bot", id: "w", replies: []string{"Nf3"}}
	black := &scriptedGateway{name: "Black Bot", id: "b", replies: []string{"Nc6"}}
	black.onCall = func(call int) {
		require.NoError(t, store.RequestCancel(context.Background(), "test-match"))
	}

	engine := newTestEngine(t, Config{
		White:  white,
		Black:  black,
		Store:  store,
		Rules:  adapter,
		Resume: resumed,
	})

	result, err := engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, scoreboard.StatusCancelled, result.Status)
	assert.Equal(t, []string{"e4", "e5", "Nf3"}, result.MoveHistory)

	state, err := store.LoadState(context.Background(), "test-match")
	require.NoError(t, err)
	assert.Len(t, state.MoveLog, 3)
}

func TestEngineContextCancellationStopsMatch(t *testing.T) {
	store := setupEngineStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	white := &scriptedGateway{name: "White Bot", id: "w", replies: []string{"e4"}}
	white.onCall = func(call int) { cancel() }
	black := &scriptedGateway{name: "Black Bot", id: "b", replies: []string{"e5"}}

	engine := newTestEngine(t, Config{White: white, Black: black, Store: store})
	result, err := engine.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, scoreboard.StatusCancelled, result.Status)

	// The terminal write ignores the dead context.
	state, loadErr := store.LoadState(context.Background(), "test-match")
	require.NoError(t, loadErr)
	assert.Equal(t, scoreboard.StatusCancelled, state.Status)
}

func TestEngineValidatesConfig(t *testing.T) {
	store := setupEngineStore(t)
	gw := &scriptedGateway{name: "Bot", id: "x", replies: []string{"e4"}}
	adapter, err := rules.NewChess("")
	require.NoError(t, err)

	cases := []struct {
		name string
		cfg  Config
	}{
		{"missing match ID", Config{White: gw, Black: gw, Rules: adapter, Store: store}},
		{"missing gateway", Config{MatchID: "m", White: gw, Rules: adapter, Store: store}},
		{"missing rules", Config{MatchID: "m", White: gw, Black: gw, Store: store}},
		{"missing store", Config{MatchID: "m", White: gw, Black: gw, Rules: adapter}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewEngine(tc.cfg)
			assert.Error(t, err)
		})
	}
}
