package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dyluth/gambit/internal/printer"
)

var cancelMatchID string

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Request cancellation of a running match",
	Long: `Set the cancellation marker for a match.

The running engine checks the marker at the top of every turn and after
every agent call, then records the match as cancelled. Setting the marker
is idempotent; cancelling an already-finished match has no effect.`,
	RunE: runCancel,
}

func init() {
	cancelCmd.Flags().StringVar(&cancelMatchID, "match", "", "Match ID to cancel (required)")
	cancelCmd.MarkFlagRequired("match")
	rootCmd.AddCommand(cancelCmd)
}

func runCancel(cmd *cobra.Command, args []string) error {
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

	if err := store.RequestCancel(ctx, cancelMatchID); err != nil {
		return printer.Error("Cannot request cancellation", err.Error(), nil)
	}

	printer.Success("Cancellation requested for match %s\n", cancelMatchID)
	printer.Info("The engine will stop at its next cancellation check.\n")
	return nil
}
