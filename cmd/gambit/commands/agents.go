package commands

import (
	"github.com/spf13/cobra"

	"github.com/dyluth/gambit/internal/printer"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List the configured agents",
	RunE:  runAgents,
}

func init() {
	rootCmd.AddCommand(agentsCmd)
}

func runAgents(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	for _, gw := range registry.All() {
		printer.Printf("%-12s %s\n", gw.ID(), gw.Name())
	}
	return nil
}
