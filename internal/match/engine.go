// Package match contains the engine that drives one match from start to a
// terminal outcome: turn order, retry and forfeit policy, per-side clocks,
// and cooperative cancellation. The engine owns the in-memory match state
// for its whole lifetime and is the only writer of the durable record.
package match

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dyluth/gambit/internal/agent"
	"github.com/dyluth/gambit/internal/parse"
	"github.com/dyluth/gambit/internal/prompt"
	"github.com/dyluth/gambit/internal/rules"
	"github.com/dyluth/gambit/pkg/scoreboard"
)

// DefaultTickInterval is how often the background ticker surfaces a live
// clock snapshot to observers between moves.
const DefaultTickInterval = time.Second

// Config assembles the collaborators for one match run.
type Config struct {
	MatchID string

	// One gateway per side.
	White agent.Gateway
	Black agent.Gateway

	Rules rules.Adapter
	Store *scoreboard.Client
	Clock *Clock

	// MaxRetries is the per-turn budget of rejected attempts before a side
	// forfeits. Zero means unlimited attempts.
	MaxRetries int

	// Resume carries a previously persisted state to continue from.
	// Nil starts a fresh match.
	Resume *scoreboard.MatchState

	TickInterval time.Duration

	// OnMove fires after each applied move; OnClock fires on ticker
	// advances. Both are optional and called from the engine's goroutines.
	OnMove  func(entry scoreboard.MoveLogEntry, snap ClockSnapshot)
	OnClock func(snap ClockSnapshot)
}

// Engine runs exactly one match. Not safe for reuse after Run returns.
type Engine struct {
	cfg   Config
	state *scoreboard.MatchState
	clock *Clock
}

// NewEngine validates the config and prepares the match state.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.MatchID == "" {
		return nil, fmt.Errorf("match ID cannot be empty")
	}
	if cfg.White == nil || cfg.Black == nil {
		return nil, fmt.Errorf("both side gateways must be set")
	}
	if cfg.Rules == nil {
		return nil, fmt.Errorf("rules adapter must be set")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("scoreboard client must be set")
	}
	if cfg.Clock == nil {
		cfg.Clock = NewClock(0)
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}

	state := cfg.Resume
	if state == nil {
		state = scoreboard.NewMatchState(cfg.MatchID)
		state.FEN = cfg.Rules.FEN()
	}
	state.WhiteName = cfg.White.Name()
	state.BlackName = cfg.Black.Name()

	return &Engine{cfg: cfg, state: state, clock: cfg.Clock}, nil
}

// Run drives the match to a terminal status and returns the result.
// The only error it returns is a fatal *GatewayError (or a config-level
// failure); every policy outcome, including forfeit, time expiry, and
// cancellation, is a normal Result.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	e.publishState(ctx)

	tickerCtx, stopTicker := context.WithCancel(ctx)
	defer stopTicker()
	e.clock.StartTicker(tickerCtx, e.cfg.TickInterval, e.cfg.OnClock)

	for {
		// Cancellation is checked at the top of every turn.
		if e.cancelled(ctx) {
			return e.finish(ctx, scoreboard.StatusCancelled, ReasonStopped, rules.Outcome{}, nil), nil
		}

		if e.cfg.Rules.IsOver() {
			out := e.cfg.Rules.Outcome()
			if out == nil {
				return nil, fmt.Errorf("rules adapter reported game over without an outcome")
			}
			return e.finish(ctx, scoreboard.StatusCompleted, out.Termination, *out, nil), nil
		}

		side := e.cfg.Rules.SideToMove()
		e.clock.SetTurn(side)
		live := !e.clock.Unlimited() && e.clock.Started(side)

		// A live clock already at zero expires before any agent call.
		if live && e.clock.Expired(side) {
			winner := side.Other()
			return e.finish(ctx, scoreboard.StatusTimeExpired, ReasonTime, rules.Outcome{Winner: &winner}, nil), nil
		}

		result, done, err := e.playTurn(ctx, side, live)
		if err != nil {
			return nil, err
		}
		if done {
			return result, nil
		}
	}
}

// playTurn runs one turn to completion: it loops over rejected attempts
// until a move is accepted, the retry budget runs out, time expires, or
// cancellation is observed. Returns (result, true, nil) when the turn ended
// the match, (nil, false, nil) when play continues.
func (e *Engine) playTurn(ctx context.Context, side rules.Side, live bool) (*Result, bool, error) {
	gw := e.gateway(side)

	req := prompt.MoveRequest{
		FEN:         e.cfg.Rules.FEN(),
		MoveHistory: e.state.MoveHistory,
		SideToMove:  side.String(),
	}
	if !e.clock.Unlimited() {
		snap := e.clock.Snapshot()
		req.WhiteRemaining = &snap.White
		req.BlackRemaining = &snap.Black
	}

	var (
		attempts   []scoreboard.MoveAttempt
		rejected   []string
		transcript []scoreboard.TranscriptMessage
		budget     = e.cfg.MaxRetries // 0 = unlimited
	)

	for {
		systemPrompt, userPrompt := prompt.Build(req)
		transcript = append(transcript, scoreboard.TranscriptMessage{Kind: "prompt", Content: userPrompt})

		raw, err := gw.Send(ctx, systemPrompt, userPrompt)
		if err != nil {
			return nil, false, &GatewayError{Agent: gw.Name(), Err: err}
		}
		transcript = append(transcript, scoreboard.TranscriptMessage{Kind: "response", Content: raw})

		// The gateway call is the unbounded wait: deduct its wall time and
		// check for expiry even though a reply arrived.
		if live && e.clock.Expired(side) {
			winner := side.Other()
			return e.finish(ctx, scoreboard.StatusTimeExpired, ReasonTime, rules.Outcome{Winner: &winner}, nil), true, nil
		}

		// A cancellation request may have arrived during the call. It
		// discards this turn's attempt bookkeeping but rolls nothing back.
		if e.cancelled(ctx) {
			return e.finish(ctx, scoreboard.StatusCancelled, ReasonStopped, rules.Outcome{}, nil), true, nil
		}

		parsed := parse.Parse(raw)
		if parsed.Found() {
			canonical, applyErr := e.cfg.Rules.Apply(parsed.Move)
			if applyErr == nil {
				e.recordMove(ctx, side, gw.Name(), canonical, parsed.Explanation, transcript)
				return nil, false, nil
			}

			reason := applyErr.Error()
			attempts = append(attempts, scoreboard.MoveAttempt{Request: userPrompt, Response: raw, Reason: reason})
			rejected = append(rejected, parsed.Move)
			req.IsRetry = true
			req.IsParseError = false
			req.PreviousAttempt = parsed.Move
			req.ErrorMessage = reason
		} else {
			reason := fmt.Sprintf("could not extract a move (%s)", parsed.Reason)
			attempts = append(attempts, scoreboard.MoveAttempt{Request: userPrompt, Response: raw, Reason: reason})
			req.IsRetry = true
			req.IsParseError = true
			req.PreviousAttempt = ""
			req.ErrorMessage = reason
		}
		req.RejectedMoves = rejected

		e.logEvent("attempt_rejected", map[string]interface{}{
			"match_id": e.state.MatchID,
			"side":     side.String(),
			"agent":    gw.Name(),
			"reason":   req.ErrorMessage,
			"attempts": len(attempts),
		})

		if budget > 0 {
			budget--
			if budget == 0 {
				winner := side.Other()
				return e.finish(ctx, scoreboard.StatusForfeited, ReasonForfeit, rules.Outcome{Winner: &winner}, attempts), true, nil
			}
		}

		// Keep observers current while the side retries.
		e.publishState(ctx)
	}
}

// recordMove appends an accepted move to history and log, restarts the clock
// for the other side, persists, and notifies.
func (e *Engine) recordMove(ctx context.Context, side rules.Side, agentName, move, explanation string, transcript []scoreboard.TranscriptMessage) {
	e.clock.MarkMoved(side)

	entry := scoreboard.MoveLogEntry{
		Move:        move,
		Side:        side.String(),
		AgentName:   agentName,
		Explanation: explanation,
		Transcript:  transcript,
	}
	e.state.MoveHistory = append(e.state.MoveHistory, move)
	e.state.MoveLog = append(e.state.MoveLog, entry)
	e.state.FEN = e.cfg.Rules.FEN()
	e.publishState(ctx)

	e.logEvent("move_applied", map[string]interface{}{
		"match_id": e.state.MatchID,
		"side":     side.String(),
		"agent":    agentName,
		"move":     move,
		"moves":    len(e.state.MoveHistory),
	})

	if e.cfg.OnMove != nil {
		e.cfg.OnMove(entry, e.clock.Snapshot())
	}
}

// finish records a terminal status, persists it, and builds the Result.
// The final write uses a detached context so a cancelled ctx cannot prevent
// the terminal record from landing.
func (e *Engine) finish(ctx context.Context, status scoreboard.Status, reason string, out rules.Outcome, attempts []scoreboard.MoveAttempt) *Result {
	result := &Result{
		Status:            status,
		TerminationReason: reason,
		MoveHistory:       e.state.MoveHistory,
		ForfeitAttempts:   attempts,
	}
	outcome := &scoreboard.Outcome{TerminationReason: reason}
	if out.Winner != nil {
		result.Winner = e.gateway(*out.Winner).Name()
		result.Loser = e.gateway(out.Winner.Other()).Name()
		outcome.Winner = result.Winner
	}

	e.state.Status = status
	e.state.Outcome = outcome
	e.state.ForfeitAttempts = attempts
	e.publishState(context.WithoutCancel(ctx))

	e.logEvent("match_finished", map[string]interface{}{
		"match_id": e.state.MatchID,
		"status":   string(status),
		"reason":   reason,
		"winner":   result.Winner,
		"moves":    len(e.state.MoveHistory),
	})
	return result
}

// cancelled checks the cooperative cancellation marker. Context cancellation
// counts as a cancel request so Ctrl-C lands the same terminal record. A
// store error is logged and treated as "not cancelled" - a flaky check must
// not kill a sound match.
func (e *Engine) cancelled(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	set, err := e.cfg.Store.Cancelled(ctx, e.state.MatchID)
	if err != nil {
		e.logEvent("cancel_check_failed", map[string]interface{}{
			"match_id": e.state.MatchID,
			"error":    err.Error(),
		})
		return false
	}
	return set
}

// publishState mirrors the in-memory state to the scoreboard. Write failures
// are logged and swallowed: a transient storage outage must not abort an
// otherwise sound match, observers just see stale state until the next write.
func (e *Engine) publishState(ctx context.Context) {
	e.syncClocks()
	if err := e.cfg.Store.SaveState(ctx, e.state); err != nil {
		e.logEvent("state_write_failed", map[string]interface{}{
			"match_id": e.state.MatchID,
			"error":    err.Error(),
		})
	}
}

// syncClocks copies the live clock snapshot into the persisted fields.
func (e *Engine) syncClocks() {
	if e.clock.Unlimited() {
		e.state.WhiteRemainingMs = nil
		e.state.BlackRemainingMs = nil
		return
	}
	snap := e.clock.Snapshot()
	white := snap.White.Milliseconds()
	black := snap.Black.Milliseconds()
	e.state.WhiteRemainingMs = &white
	e.state.BlackRemainingMs = &black
	e.state.WhiteClockStarted = e.clock.Started(rules.White)
	e.state.BlackClockStarted = e.clock.Started(rules.Black)
}

func (e *Engine) gateway(side rules.Side) agent.Gateway {
	if side == rules.White {
		return e.cfg.White
	}
	return e.cfg.Black
}

// logEvent logs structured engine events.
func (e *Engine) logEvent(event string, data map[string]interface{}) {
	log.Printf("[Engine] event=%s %v", event, data)
}
