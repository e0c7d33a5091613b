// Package prompt constructs the system and user prompts for each move
// request, including the retry variants that tell an agent why its previous
// submission was rejected.
package prompt

import (
	"fmt"
	"strings"
	"time"
)

// MoveRequest carries the context for building one move request prompt.
type MoveRequest struct {
	FEN         string
	MoveHistory []string
	SideToMove  string // "White" or "Black"

	// Retry annotation, set after a rejected attempt.
	IsRetry         bool
	ErrorMessage    string
	PreviousAttempt string
	IsParseError    bool // parse failure rather than an illegal move

	// Moves already rejected this turn, so the agent does not repeat them.
	RejectedMoves []string

	// Clock snapshot; nil = untimed match.
	WhiteRemaining *time.Duration
	BlackRemaining *time.Duration
}

const systemPromptTemplate = `You are playing chess as %s. Your opponent has just moved (or you are making the first move as White).

Rules:
- Reply with a JSON object containing exactly two fields: "move" and "explanation".
- "move": exactly ONE move in PGN (Standard Algebraic Notation). Examples: e4, Nf3, O-O, O-O-O, exd5, Nxe5, Qxf7#
- "explanation": a brief explanation of why you chose this move.
- Use standard PGN: K=king, Q=queen, R=rook, B=bishop, N=knight. Pawns have no letter (e4, exd5).
- Castling: O-O (kingside), O-O-O (queenside).

Example response:
{"move": "e4", "explanation": "I control the center and open lines for my pieces."}`

// BuildSystemPrompt returns the system prompt that defines the agent's role
// and output format.
func BuildSystemPrompt(sideToMove string) string {
	return fmt.Sprintf(systemPromptTemplate, sideToMove)
}

// BuildUserPrompt returns the user prompt with board state and move request.
func BuildUserPrompt(req MoveRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Current position (FEN): %s\n", req.FEN)

	if section := timeSection(req); section != "" {
		b.WriteString(section)
	}

	if len(req.MoveHistory) > 0 || req.IsRetry {
		fmt.Fprintf(&b, "\nMoves played so far: %s\n", FormatMoveHistory(req.MoveHistory))
	}

	switch {
	case req.IsRetry && req.IsParseError:
		fmt.Fprintf(&b, "\nIt is %s's turn. Your previous response failed: %s\n", req.SideToMove, req.ErrorMessage)
	case req.IsRetry:
		fmt.Fprintf(&b, "\nIt is %s's turn. Your previous move %q was illegal: %s\n",
			req.SideToMove, req.PreviousAttempt, req.ErrorMessage)
	case len(req.MoveHistory) == 0:
		b.WriteString("\nIt is White's turn. Make your first move.")
	default:
		fmt.Fprintf(&b, "\nIt is %s's turn. Make your move.", req.SideToMove)
	}

	if req.IsRetry {
		if len(req.RejectedMoves) > 0 {
			fmt.Fprintf(&b, "Moves already rejected this turn: %s. Do not repeat them.\n",
				strings.Join(req.RejectedMoves, ", "))
		}
		b.WriteString("\nPlease try a different legal move.")
	}

	b.WriteString(` Reply with JSON: {"move": "...", "explanation": "..."}`)
	return b.String()
}

// Build returns both system and user prompts for a move request.
func Build(req MoveRequest) (systemPrompt, userPrompt string) {
	return BuildSystemPrompt(req.SideToMove), BuildUserPrompt(req)
}

// FormatMoveHistory renders moves PGN-style, e.g. "1. e4 e5 2. Nf3".
func FormatMoveHistory(moves []string) string {
	if len(moves) == 0 {
		return "(none)"
	}
	var pairs []string
	for i := 0; i < len(moves); i += 2 {
		num := i/2 + 1
		if i+1 < len(moves) {
			pairs = append(pairs, fmt.Sprintf("%d. %s %s", num, moves[i], moves[i+1]))
		} else {
			pairs = append(pairs, fmt.Sprintf("%d. %s", num, moves[i]))
		}
	}
	return strings.Join(pairs, " ")
}

// FormatClock renders a remaining duration as M:SS.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// timeSection renders the clock line, or empty string for untimed matches.
func timeSection(req MoveRequest) string {
	if req.WhiteRemaining == nil || req.BlackRemaining == nil {
		return ""
	}
	white := FormatClock(*req.WhiteRemaining)
	black := FormatClock(*req.BlackRemaining)
	yours := white
	if req.SideToMove == "Black" {
		yours = black
	}
	return fmt.Sprintf("Time remaining: White %s, Black %s. You (%s) have %s left.\nConsider your remaining time and respond quickly to avoid running out of time.\n",
		white, black, req.SideToMove, yours)
}
