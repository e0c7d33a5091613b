package rules

import (
	"fmt"
	"strings"

	"github.com/notnil/chess"
)

// ChessAdapter implements Adapter on top of notnil/chess.
type ChessAdapter struct {
	game *chess.Game
}

// NewChess creates an adapter at the given FEN, or at the standard starting
// position when fen is empty.
func NewChess(fen string) (*ChessAdapter, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" {
		return &ChessAdapter{game: chess.NewGame()}, nil
	}

	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("invalid FEN %q: %w", fen, err)
	}
	return &ChessAdapter{game: chess.NewGame(opt)}, nil
}

// FEN returns the current position.
func (a *ChessAdapter) FEN() string {
	return a.game.Position().String()
}

// SideToMove returns which side moves next.
func (a *ChessAdapter) SideToMove() Side {
	if a.game.Position().Turn() == chess.White {
		return White
	}
	return Black
}

// LegalMoves returns all legal moves in SAN for the current position.
func (a *ChessAdapter) LegalMoves() []string {
	pos := a.game.Position()
	valid := a.game.ValidMoves()
	moves := make([]string, len(valid))
	for i, m := range valid {
		moves[i] = chess.AlgebraicNotation{}.Encode(pos, m)
	}
	return moves
}

// Apply parses moveText as SAN and plays it. The returned string is the
// canonical SAN spelling (e.g. "Nf3+" for an input of "Nf3").
func (a *ChessAdapter) Apply(moveText string) (string, error) {
	text := strings.TrimSpace(moveText)
	if text == "" {
		return "", &IllegalMoveError{Move: moveText, Reason: "empty move"}
	}

	pos := a.game.Position()
	move, err := chess.AlgebraicNotation{}.Decode(pos, text)
	if err != nil {
		// Agents often decorate moves with a wrong check or mate suffix.
		// Retry without decoration before rejecting.
		stripped := strings.TrimRight(text, "+#!?")
		if stripped == text || stripped == "" {
			return "", &IllegalMoveError{Move: text, Reason: err.Error()}
		}
		move, err = chess.AlgebraicNotation{}.Decode(pos, stripped)
		if err != nil {
			return "", &IllegalMoveError{Move: text, Reason: err.Error()}
		}
	}

	canonical := chess.AlgebraicNotation{}.Encode(pos, move)
	if err := a.game.Move(move); err != nil {
		return "", &IllegalMoveError{Move: text, Reason: err.Error()}
	}
	return canonical, nil
}

// IsOver reports whether the game has reached a terminal position.
func (a *ChessAdapter) IsOver() bool {
	return a.game.Outcome() != chess.NoOutcome
}

// Outcome returns the termination reason and winner, or nil while in progress.
func (a *ChessAdapter) Outcome() *Outcome {
	switch a.game.Outcome() {
	case chess.NoOutcome:
		return nil
	case chess.WhiteWon:
		winner := White
		return &Outcome{Termination: terminationReason(a.game.Method()), Winner: &winner}
	case chess.BlackWon:
		winner := Black
		return &Outcome{Termination: terminationReason(a.game.Method()), Winner: &winner}
	default:
		return &Outcome{Termination: terminationReason(a.game.Method())}
	}
}

// Diagram returns an ASCII rendering of the current board.
func (a *ChessAdapter) Diagram() string {
	return a.game.Position().Board().Draw()
}

// Diagram renders the board for a FEN string. Used by observers that only
// hold the persisted position. Returns the raw FEN if it cannot be parsed.
func Diagram(fen string) string {
	adapter, err := NewChess(fen)
	if err != nil {
		return fen
	}
	return adapter.Diagram()
}

func terminationReason(method chess.Method) string {
	switch method {
	case chess.Checkmate:
		return "checkmate"
	case chess.Stalemate:
		return "stalemate"
	case chess.InsufficientMaterial:
		return "insufficient_material"
	case chess.ThreefoldRepetition:
		return "threefold_repetition"
	case chess.FivefoldRepetition:
		return "fivefold_repetition"
	case chess.FiftyMoveRule:
		return "fifty_move_rule"
	case chess.SeventyFiveMoveRule:
		return "seventyfive_move_rule"
	case chess.DrawOffer:
		return "draw_agreed"
	case chess.Resignation:
		return "resignation"
	default:
		return "unknown"
	}
}
