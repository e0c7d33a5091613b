package rules

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChess(t *testing.T) {
	t.Run("empty FEN starts the standard game", func(t *testing.T) {
		adapter, err := NewChess("")
		require.NoError(t, err)
		assert.Equal(t, White, adapter.SideToMove())
		assert.Len(t, adapter.LegalMoves(), 20)
	})

	t.Run("custom FEN", func(t *testing.T) {
		adapter, err := NewChess("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1")
		require.NoError(t, err)
		assert.Equal(t, Black, adapter.SideToMove())
	})

	t.Run("rejects garbage FEN", func(t *testing.T) {
		_, err := NewChess("not a position")
		assert.Error(t, err)
	})
}

func TestApply(t *testing.T) {
	t.Run("legal move advances the position", func(t *testing.T) {
		adapter, _ := NewChess("")
		canonical, err := adapter.Apply("e4")
		require.NoError(t, err)
		assert.Equal(t, "e4", canonical)
		assert.Equal(t, Black, adapter.SideToMove())
	})

	t.Run("canonicalizes decoration", func(t *testing.T) {
		// Agents regularly append a bogus check suffix.
		adapter, _ := NewChess("")
		canonical, err := adapter.Apply("e4+")
		require.NoError(t, err)
		assert.Equal(t, "e4", canonical)
	})

	t.Run("rejects illegal move with typed error", func(t *testing.T) {
		adapter, _ := NewChess("")
		_, err := adapter.Apply("Ke2")
		require.Error(t, err)

		var illegal *IllegalMoveError
		require.True(t, errors.As(err, &illegal))
		assert.Equal(t, "Ke2", illegal.Move)
		assert.NotEmpty(t, illegal.Reason)
	})

	t.Run("rejects empty move", func(t *testing.T) {
		adapter, _ := NewChess("")
		_, err := adapter.Apply("  ")
		var illegal *IllegalMoveError
		require.True(t, errors.As(err, &illegal))
	})

	t.Run("rejection leaves position unchanged", func(t *testing.T) {
		adapter, _ := NewChess("")
		before := adapter.FEN()
		_, err := adapter.Apply("Qd5")
		require.Error(t, err)
		assert.Equal(t, before, adapter.FEN())
		assert.Equal(t, White, adapter.SideToMove())
	})
}

func TestOutcome(t *testing.T) {
	t.Run("in progress has no outcome", func(t *testing.T) {
		adapter, _ := NewChess("")
		assert.False(t, adapter.IsOver())
		assert.Nil(t, adapter.Outcome())
	})

	t.Run("checkmate names a winner", func(t *testing.T) {
		adapter, _ := NewChess("")
		for _, move := range []string{"f3", "e5", "g4", "Qh4#"} {
			_, err := adapter.Apply(move)
			require.NoError(t, err)
		}

		require.True(t, adapter.IsOver())
		outcome := adapter.Outcome()
		require.NotNil(t, outcome)
		assert.Equal(t, "checkmate", outcome.Termination)
		require.NotNil(t, outcome.Winner)
		assert.Equal(t, Black, *outcome.Winner)
	})

	t.Run("stalemate is a draw", func(t *testing.T) {
		// Black to move with no legal moves and no check.
		adapter, err := NewChess("7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
		require.NoError(t, err)

		require.True(t, adapter.IsOver())
		outcome := adapter.Outcome()
		require.NotNil(t, outcome)
		assert.Equal(t, "stalemate", outcome.Termination)
		assert.Nil(t, outcome.Winner)
	})
}

func TestSide(t *testing.T) {
	assert.Equal(t, "White", White.String())
	assert.Equal(t, "Black", Black.String())
	assert.Equal(t, Black, White.Other())
	assert.Equal(t, White, Black.Other())
}

func TestDiagram(t *testing.T) {
	adapter, _ := NewChess("")
	assert.NotEmpty(t, adapter.Diagram())

	// The package-level helper tolerates a bad FEN by echoing it.
	assert.Equal(t, "junk", Diagram("junk"))
}
