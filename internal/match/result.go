package match

import (
	"fmt"

	"github.com/dyluth/gambit/pkg/scoreboard"
)

// Termination reasons for outcomes the engine decides itself. Reasons for
// natural game endings (checkmate, stalemate, draws) come from the rules
// adapter.
const (
	ReasonForfeit = "forfeit"
	ReasonTime    = "time"
	ReasonStopped = "stopped"
)

// Result is the terminal outcome of a match run. It is a normal return
// value, not an error: forfeits, time expiry, and cancellation are expected
// ways for a match to end.
type Result struct {
	Status            scoreboard.Status
	TerminationReason string

	// Display names; empty Winner means a draw or a cancelled match.
	Winner string
	Loser  string

	MoveHistory []string

	// Rejected attempts from the final turn when the match ended in forfeit.
	ForfeitAttempts []scoreboard.MoveAttempt
}

// Summary renders a one-line human description of the result.
func (r *Result) Summary() string {
	switch r.Status {
	case scoreboard.StatusCancelled:
		return "match stopped by request"
	case scoreboard.StatusForfeited:
		return fmt.Sprintf("%s wins by forfeit (%s exhausted its retries)", r.Winner, r.Loser)
	case scoreboard.StatusTimeExpired:
		return fmt.Sprintf("%s wins on time (%s ran out)", r.Winner, r.Loser)
	default:
		if r.Winner == "" {
			return fmt.Sprintf("draw (%s)", r.TerminationReason)
		}
		return fmt.Sprintf("%s wins by %s", r.Winner, r.TerminationReason)
	}
}

// GatewayError wraps a transport or auth failure from an agent call.
// It is fatal to the turn loop: the engine never retries it, the caller
// decides whether to abort or restart the match.
type GatewayError struct {
	Agent string
	Err   error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("agent %q call failed: %v", e.Agent, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
