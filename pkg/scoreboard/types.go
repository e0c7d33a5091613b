// Package scoreboard provides type-safe Go definitions and Redis schema
// patterns for the durable match record. The scoreboard is the single source
// of truth for externally observable match state: the match engine is its
// only writer, and observer processes (CLI watch, HTTP API) read it without
// ever touching the engine's in-memory state.
//
// All Redis keys and channels are namespaced by match ID so that multiple
// matches can safely share a single Redis server.
package scoreboard

import "fmt"

// DefaultFEN is the standard chess starting position.
const DefaultFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Status is the lifecycle state of a match.
type Status string

const (
	// StatusInProgress indicates the match is still being played.
	StatusInProgress Status = "in_progress"

	// StatusCompleted indicates the game reached a natural conclusion
	// (checkmate, stalemate, or another rules-engine draw).
	StatusCompleted Status = "completed"

	// StatusForfeited indicates one side exhausted its per-turn retry budget.
	StatusForfeited Status = "forfeited"

	// StatusTimeExpired indicates one side's clock ran out.
	StatusTimeExpired Status = "time_expired"

	// StatusCancelled indicates an external actor stopped the match.
	StatusCancelled Status = "cancelled"
)

// Validate checks if the Status is a valid enum value.
func (s Status) Validate() error {
	switch s {
	case StatusInProgress, StatusCompleted, StatusForfeited, StatusTimeExpired, StatusCancelled:
		return nil
	default:
		return fmt.Errorf("unknown status: %q", s)
	}
}

// Terminal reports whether the status ends the match.
func (s Status) Terminal() bool {
	return s != StatusInProgress
}

// Outcome describes how a terminal match ended.
// Winner is the winning agent's display name; empty means a draw.
type Outcome struct {
	TerminationReason string `json:"termination_reason"`
	Winner            string `json:"winner,omitempty"`
}

// TranscriptMessage is one prompt or response exchanged during a turn.
type TranscriptMessage struct {
	Kind    string `json:"kind"` // "prompt" or "response"
	Content string `json:"content"`
}

// MoveLogEntry records one successfully applied move, including the full
// prompt/response transcript for that turn (retry exchanges included).
type MoveLogEntry struct {
	Move        string              `json:"move"`
	Side        string              `json:"side"`
	AgentName   string              `json:"agent_name"`
	Explanation string              `json:"explanation"`
	Transcript  []TranscriptMessage `json:"transcript"`
}

// MoveAttempt records one rejected submission within a turn: the outbound
// prompt, the raw reply, and why it was rejected. Attempts are kept only for
// the current turn; on forfeit the final turn's attempts are persisted so a
// human can audit why the match ended.
type MoveAttempt struct {
	Request  string `json:"request"`
	Response string `json:"response"`
	Reason   string `json:"reason"`
}

// MatchState is the durable, externally visible record of a match.
type MatchState struct {
	MatchID     string
	FEN         string
	MoveHistory []string
	WhiteName   string
	BlackName   string
	Status      Status
	Outcome     *Outcome
	MoveLog     []MoveLogEntry

	// Remaining clock time per side in milliseconds; nil = unlimited.
	WhiteRemainingMs *int64
	BlackRemainingMs *int64

	// A side's clock only counts down after its first completed move.
	WhiteClockStarted bool
	BlackClockStarted bool

	// Unix milliseconds of the last persisted clock update. Set by SaveState
	// whenever either remaining field is non-nil, so observers can advance
	// clocks on read without a write per second.
	LastTimerUpdateMs int64

	// Rejected attempts from the turn that caused a forfeit.
	ForfeitAttempts []MoveAttempt
}

// NewMatchState returns a fresh in-progress state for a match.
func NewMatchState(matchID string) *MatchState {
	return &MatchState{
		MatchID:     matchID,
		FEN:         DefaultFEN,
		MoveHistory: []string{},
		Status:      StatusInProgress,
		MoveLog:     []MoveLogEntry{},
	}
}

// Validate checks the MatchState invariants before it is persisted.
func (m *MatchState) Validate() error {
	if m.MatchID == "" {
		return fmt.Errorf("match ID cannot be empty")
	}

	if err := m.Status.Validate(); err != nil {
		return fmt.Errorf("invalid status: %w", err)
	}

	// Outcome is present if and only if the match has ended.
	if m.Status.Terminal() && m.Outcome == nil {
		return fmt.Errorf("terminal status %q requires an outcome", m.Status)
	}
	if !m.Status.Terminal() && m.Outcome != nil {
		return fmt.Errorf("in-progress match cannot carry an outcome")
	}

	if len(m.MoveLog) != len(m.MoveHistory) {
		return fmt.Errorf("move log length %d does not match history length %d",
			len(m.MoveLog), len(m.MoveHistory))
	}

	if m.WhiteRemainingMs != nil && *m.WhiteRemainingMs < 0 {
		return fmt.Errorf("white remaining time cannot be negative")
	}
	if m.BlackRemainingMs != nil && *m.BlackRemainingMs < 0 {
		return fmt.Errorf("black remaining time cannot be negative")
	}

	return nil
}

// StateEvent is the compact notification published after every successful
// state write. Observers treat it as a hint to re-read the durable record.
type StateEvent struct {
	MatchID string `json:"match_id"`
	Status  Status `json:"status"`
	Moves   int    `json:"moves"`
}
