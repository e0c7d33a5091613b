package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/gambit/internal/api"
	"github.com/dyluth/gambit/internal/printer"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the observer HTTP API",
	Long: `Serve the read-only match API over HTTP.

Endpoints:
  GET  /healthz              Redis connectivity check
  GET  /api/state?match=ID   full match state (moves, names, outcome)
  GET  /api/tick?match=ID    live clock values, advanced on read
  POST /api/cancel?match=ID  request cooperative cancellation
  POST /api/reset?match=ID   replace the record with a fresh one
  GET  /api/agents           configured agents

The tick endpoint recomputes clocks from the persisted snapshot without
writing, so a frontend can poll it every second.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
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

	store, err := openScoreboard(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	server := api.NewServer(store, registry, serveAddr)
	if err := server.Start(); err != nil {
		return printer.Error("Cannot start API server", err.Error(), nil)
	}

	printer.Success("API listening on %s\n", serveAddr)
	<-ctx.Done()

	printer.Info("Shutting down...\n")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
