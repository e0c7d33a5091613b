package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dyluth/gambit/internal/printer"
)

var resetMatchID string

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Replace a match record with a fresh one",
	Long: `Atomically replace the persisted match record with a fresh
in-progress state and clear any cancellation marker.

If the match is still being played, cancel it first. Resetting is
idempotent: two consecutive resets produce the same fresh record.`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().StringVar(&resetMatchID, "match", "", "Match ID to reset (required)")
	resetCmd.MarkFlagRequired("match")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openScoreboard(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if _, err := store.Reset(ctx, resetMatchID); err != nil {
		return printer.Error("Cannot reset match", err.Error(), nil)
	}

	printer.Success("Match %s reset\n", resetMatchID)
	return nil
}
