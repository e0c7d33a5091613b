package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dyluth/gambit/internal/agent"
	"github.com/dyluth/gambit/internal/config"
	"github.com/dyluth/gambit/internal/match"
	"github.com/dyluth/gambit/internal/printer"
	"github.com/dyluth/gambit/internal/rules"
	"github.com/dyluth/gambit/internal/timespec"
	"github.com/dyluth/gambit/pkg/scoreboard"
)

var (
	playMatchID string
	playWhite   string
	playBlack   string
	playRetries int
	playTime    string
	playFEN     string
	playResume  bool
	playBoard   bool
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Run a match between two agents",
	Long: `Run one chess match between two configured agents to completion.

The engine publishes live state to Redis after every move, so a separate
process can follow along with 'gambit watch' or stop the match with
'gambit cancel'.

Examples:
  # Defaults: ChatGPT as White, Gemini as Black, untimed, 3 retries per turn
  gambit play

  # 5 minutes per side, unlimited retries, named match
  gambit play --match demo --time 5m --retries 0

  # Continue a previously interrupted match
  gambit play --match demo --resume`,
	RunE: runPlay,
}

func init() {
	playCmd.Flags().StringVar(&playMatchID, "match", "", "Match ID (generated if omitted)")
	playCmd.Flags().StringVar(&playWhite, "white", "", "Agent ID playing White")
	playCmd.Flags().StringVar(&playBlack, "black", "", "Agent ID playing Black")
	playCmd.Flags().IntVar(&playRetries, "retries", -1, "Rejected attempts per turn before forfeit (0 = unlimited)")
	playCmd.Flags().StringVar(&playTime, "time", "", "Clock budget per side, e.g. 5m (0 = untimed)")
	playCmd.Flags().StringVar(&playFEN, "fen", "", "Starting position (FEN)")
	playCmd.Flags().BoolVar(&playResume, "resume", false, "Continue the persisted match instead of starting fresh")
	playCmd.Flags().BoolVar(&playBoard, "board", false, "Print the board after every move")
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	// Ctrl-C requests cooperative cancellation; the engine records the
	// terminal state before exiting.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	white, black, err := resolveSides(cfg, registry)
	if err != nil {
		return err
	}

	maxRetries := *cfg.Match.MaxRetries
	if cmd.Flags().Changed("retries") {
		if playRetries < 0 {
			return printer.Error("Invalid retries", "--retries must be >= 0 (0 = unlimited)", nil)
		}
		maxRetries = playRetries
	}

	timePerSide := cfg.Match.TimePerSide.Std()
	if cmd.Flags().Changed("time") {
		timePerSide, err = timespec.ParseDuration(playTime)
		if err != nil {
			return printer.Error("Invalid time budget", err.Error(), []string{"Use a duration like 5m or seconds like 300"})
		}
	}

	store, err := openScoreboard(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	matchID := playMatchID
	if matchID == "" {
		matchID = uuid.NewString()
	}

	startFEN := firstNonEmpty(playFEN, cfg.Match.StartingFEN)
	adapter, clock, resume, err := prepareMatch(ctx, store, matchID, startFEN, timePerSide)
	if err != nil {
		return err
	}

	moveCount := 0
	if resume != nil {
		moveCount = len(resume.MoveHistory)
	}

	engine, err := match.NewEngine(match.Config{
		MatchID:    matchID,
		White:      white,
		Black:      black,
		Rules:      adapter,
		Store:      store,
		Clock:      clock,
		MaxRetries: maxRetries,
		Resume:     resume,
		OnMove: func(entry scoreboard.MoveLogEntry, snap match.ClockSnapshot) {
			moveCount++
			printMove(adapter, moveCount, entry, snap)
		},
	})
	if err != nil {
		return printer.Error("Cannot start match", err.Error(), nil)
	}

	printer.Step("Match %s: %s (White) vs %s (Black)\n", matchID, white.Name(), black.Name())
	if timePerSide > 0 {
		printer.Info("Clock: %s per side\n", timePerSide)
	}
	if maxRetries == 0 {
		printer.Info("Retries per turn: unlimited\n")
	} else {
		printer.Info("Retries per turn: %d\n", maxRetries)
	}
	printer.Println()

	result, err := engine.Run(ctx)
	if err != nil {
		return printer.Error(
			"Match aborted",
			err.Error(),
			[]string{"Check agent API keys and network connectivity, then resume with --resume"},
		)
	}

	printer.Println()
	printer.Verdict(result.Summary(), result.Winner != "")
	for i, attempt := range result.ForfeitAttempts {
		printer.Warning("rejected attempt %d: %s\n", i+1, attempt.Reason)
	}
	return nil
}

// resolveSides picks the gateways for White and Black from flags, config,
// and the registry's defaults, in that order.
func resolveSides(cfg *config.GambitConfig, registry *agent.Registry) (agent.Gateway, agent.Gateway, error) {
	whiteID := firstNonEmpty(playWhite, cfg.Match.White, "chatgpt")
	blackID := firstNonEmpty(playBlack, cfg.Match.Black, "gemini")

	white, ok := registry.ByID(whiteID)
	if !ok {
		return nil, nil, unknownAgent("white", whiteID, registry)
	}
	black, ok := registry.ByID(blackID)
	if !ok {
		return nil, nil, unknownAgent("black", blackID, registry)
	}
	return white, black, nil
}

// prepareMatch builds the rules adapter and clock, either fresh or from the
// persisted record when resuming.
func prepareMatch(ctx context.Context, store *scoreboard.Client, matchID, startFEN string, timePerSide time.Duration) (rules.Adapter, *match.Clock, *scoreboard.MatchState, error) {
	if playResume {
		state, err := store.LoadState(ctx, matchID)
		if err != nil {
			if scoreboard.IsNotFound(err) {
				return nil, nil, nil, printer.Error(
					"Nothing to resume",
					fmt.Sprintf("No persisted match with ID %q", matchID),
					[]string{"Start it fresh by dropping --resume"},
				)
			}
			return nil, nil, nil, printer.Error("Cannot load match", err.Error(), nil)
		}
		if state.Status.Terminal() {
			return nil, nil, nil, printer.Error(
				"Match already finished",
				fmt.Sprintf("Match %q ended with status %s", matchID, state.Status),
				[]string{"Reset it first: gambit reset --match " + matchID},
			)
		}

		adapter, err := rules.NewChess(state.FEN)
		if err != nil {
			return nil, nil, nil, printer.Error("Corrupt persisted position", err.Error(), nil)
		}
		clock := match.RestoreClock(
			msToDuration(state.WhiteRemainingMs),
			msToDuration(state.BlackRemainingMs),
			state.WhiteClockStarted,
			state.BlackClockStarted,
		)
		return adapter, clock, state, nil
	}

	adapter, err := rules.NewChess(startFEN)
	if err != nil {
		return nil, nil, nil, printer.Error(
			"Invalid starting position",
			err.Error(),
			[]string{"Pass a valid FEN to --fen, or omit it for the standard start"},
		)
	}

	// A fresh start replaces whatever record and cancel marker the ID had.
	if _, err := store.Reset(ctx, matchID); err != nil {
		return nil, nil, nil, printer.Error("Cannot initialise match record", err.Error(), nil)
	}

	return adapter, match.NewClock(timePerSide), nil, nil
}

func printMove(adapter rules.Adapter, moveCount int, entry scoreboard.MoveLogEntry, snap match.ClockSnapshot) {
	number := (moveCount + 1) / 2
	printer.Move(number, entry.Side, entry.Move, entry.AgentName)
	printer.Thought(entry.Explanation)
	if !snap.Unlimited {
		printer.Clocks(snap.White, snap.Black)
	}
	if playBoard {
		if chess, ok := adapter.(*rules.ChessAdapter); ok {
			printer.Board(chess.Diagram())
		}
	}
}

func unknownAgent(side, id string, registry *agent.Registry) error {
	known := ""
	for _, gw := range registry.All() {
		if known != "" {
			known += ", "
		}
		known += gw.ID()
	}
	return printer.Error(
		fmt.Sprintf("Unknown %s agent", side),
		fmt.Sprintf("No agent with ID %q is configured", id),
		[]string{"Available agents: " + known},
	)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func msToDuration(ms *int64) *time.Duration {
	if ms == nil {
		return nil
	}
	d := time.Duration(*ms) * time.Millisecond
	return &d
}
