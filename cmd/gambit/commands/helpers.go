package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dyluth/gambit/internal/agent"
	"github.com/dyluth/gambit/internal/config"
	"github.com/dyluth/gambit/internal/printer"
	"github.com/dyluth/gambit/pkg/scoreboard"
)

// loadConfig reads the configured gambit.yml. A missing file at the default
// path is not an error: the built-in config is used so the CLI works with
// zero setup.
func loadConfig() (*config.GambitConfig, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if configPath == "gambit.yml" {
			return config.Default(), nil
		}
		return nil, printer.Error(
			"Config file not found",
			fmt.Sprintf("No configuration file at %s", configPath),
			[]string{"Check the --config path, or omit it to use built-in defaults"},
		)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, printer.Error(
			"Invalid configuration",
			err.Error(),
			[]string{fmt.Sprintf("Fix %s and retry", configPath)},
		)
	}
	return cfg, nil
}

// openScoreboard connects to Redis and verifies connectivity.
func openScoreboard(ctx context.Context, cfg *config.GambitConfig) (*scoreboard.Client, error) {
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, printer.Error(
			"Invalid Redis URL",
			fmt.Sprintf("Could not parse %q: %v", cfg.RedisURL, err),
			[]string{"Set redis_url in gambit.yml, e.g. redis://localhost:6379"},
		)
	}

	client := scoreboard.NewClient(redisOpts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		client.Close()
		return nil, printer.Error(
			"Cannot connect to Redis",
			fmt.Sprintf("Could not reach Redis at %s: %v", cfg.RedisURL, err),
			[]string{
				"Start a local Redis: docker run -d -p 6379:6379 redis:7-alpine",
				"Or point redis_url at a running server",
			},
		)
	}

	return client, nil
}

// buildRegistry turns the configured agents into gateways, falling back to
// the built-in agent list when none are configured.
func buildRegistry(cfg *config.GambitConfig) (*agent.Registry, error) {
	specs := agent.DefaultSpecs()
	if len(cfg.Agents) > 0 {
		specs = specs[:0]
		for id, a := range cfg.Agents {
			specs = append(specs, agent.Spec{
				ID:          id,
				DisplayName: a.DisplayName,
				Provider:    a.Provider,
				Model:       a.Model,
			})
		}
	}

	registry, err := agent.NewRegistry(specs)
	if err != nil {
		return nil, printer.Error("Invalid agent configuration", err.Error(), nil)
	}
	return registry, nil
}
