package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

// configPath is the global --config flag, shared by all subcommands.
var configPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gambit",
	Short: "Gambit - LLM-vs-LLM chess match orchestrator",
	Long: `Gambit runs automated chess matches between two language-model agents.

The match engine enforces move legality, a per-turn retry budget, and
per-side clocks, and publishes live state to Redis so the match can be
watched, cancelled, or served over HTTP from a separate process.`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// Silence Cobra's default error and usage printing; printer.Error has
	// already written the detailed message to stderr.
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "gambit.yml", "Path to configuration file")
}
