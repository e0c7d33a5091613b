// Package rules wraps all chess legality, move application, and outcome
// detection behind a small adapter interface. The match engine never touches
// a chess library directly - it asks the adapter which side moves, which
// moves are legal, and whether the game has ended.
package rules

import "fmt"

// Side identifies one of the two match participants.
type Side uint8

const (
	White Side = iota
	Black
)

// String returns the display name for the side ("White" or "Black").
func (s Side) String() string {
	if s == White {
		return "White"
	}
	return "Black"
}

// Other returns the opposing side.
func (s Side) Other() Side {
	if s == White {
		return Black
	}
	return White
}

// Outcome describes how a finished game ended.
// Winner is nil for draws.
type Outcome struct {
	Termination string // e.g. "checkmate", "stalemate", "insufficient_material"
	Winner      *Side
}

// IllegalMoveError is returned by Apply when a move is rejected.
// It covers unparseable, ambiguous, and illegal moves alike - the engine
// treats all three as a retryable rejection, never as a fatal error.
type IllegalMoveError struct {
	Move   string
	Reason string
}

func (e *IllegalMoveError) Error() string {
	return fmt.Sprintf("illegal move %q: %s", e.Move, e.Reason)
}

// Adapter is the rules engine consumed by the match engine. Implementations
// are stateful: they hold the current position and advance it on Apply.
type Adapter interface {
	// FEN returns the current position as a FEN string.
	FEN() string

	// SideToMove returns which side moves next.
	SideToMove() Side

	// LegalMoves returns all legal moves in standard algebraic notation.
	LegalMoves() []string

	// Apply parses a SAN move and applies it if legal. Returns the canonical
	// SAN spelling of the applied move, or an *IllegalMoveError.
	Apply(moveText string) (string, error)

	// IsOver reports whether the game has ended.
	IsOver() bool

	// Outcome returns how the game ended, or nil while in progress.
	Outcome() *Outcome
}
