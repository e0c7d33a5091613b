package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/gambit/internal/printer"
	"github.com/dyluth/gambit/internal/rules"
	"github.com/dyluth/gambit/pkg/scoreboard"
)

var (
	watchMatchID string
	watchBoard   bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow a running match from another process",
	Long: `Follow a match's moves live without being the process that runs it.

Subscribes to the match's state events and re-reads the durable record on
each one; a periodic poll covers events dropped by pub/sub. Exits when the
match reaches a terminal status.

Examples:
  gambit watch --match demo
  gambit watch --match demo --board`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchMatchID, "match", "", "Match ID to follow (required)")
	watchCmd.Flags().BoolVar(&watchBoard, "board", false, "Print the board after every move")
	watchCmd.MarkFlagRequired("match")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openScoreboard(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	sub, err := store.SubscribeEvents(ctx, watchMatchID)
	if err != nil {
		return printer.Error("Cannot subscribe to match events", err.Error(), nil)
	}
	defer sub.Close()

	poll := time.NewTicker(cfg.Match.PollInterval.Std())
	defer poll.Stop()

	// Render whatever has already happened, then follow.
	seen := 0
	if done, n, err := renderProgress(ctx, store, seen); err != nil {
		return err
	} else if done {
		return nil
	} else {
		seen = n
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-sub.Errors():
			if err != nil {
				printer.Warning("event stream: %v\n", err)
			}
		case _, ok := <-sub.Events():
			if !ok {
				return nil
			}
			done, n, err := renderProgress(ctx, store, seen)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
			seen = n
		case <-poll.C:
			// Pub/sub is at-most-once; polling catches dropped events.
			done, n, err := renderProgress(ctx, store, seen)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
			seen = n
		}
	}
}

// renderProgress prints any moves beyond the seen count and the verdict when
// the match has ended. Returns (terminal, newSeenCount, error).
func renderProgress(ctx context.Context, store *scoreboard.Client, seen int) (bool, int, error) {
	state, err := store.LoadState(ctx, watchMatchID)
	if err != nil {
		if scoreboard.IsNotFound(err) {
			// The match may not have started yet; keep waiting.
			return false, seen, nil
		}
		return false, seen, printer.Error("Cannot read match state", err.Error(), nil)
	}

	for i := seen; i < len(state.MoveLog); i++ {
		entry := state.MoveLog[i]
		printer.Move((i+2)/2, entry.Side, entry.Move, entry.AgentName)
		printer.Thought(entry.Explanation)
	}
	if len(state.MoveLog) > seen && watchBoard {
		printer.Board(rules.Diagram(state.FEN))
	}

	if state.Status.Terminal() {
		printer.Println()
		printVerdict(state)
		return true, len(state.MoveLog), nil
	}
	return false, len(state.MoveLog), nil
}

func printVerdict(state *scoreboard.MatchState) {
	if state.Outcome == nil {
		return
	}
	if state.Outcome.Winner == "" {
		printer.Verdict("draw ("+state.Outcome.TerminationReason+")", false)
		return
	}
	printer.Verdict(state.Outcome.Winner+" wins ("+state.Outcome.TerminationReason+")", true)
}
