// Package config loads and validates gambit.yml.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dyluth/gambit/internal/timespec"
)

// DefaultRedisURL is used when redis_url is not set.
const DefaultRedisURL = "redis://localhost:6379"

// DefaultPollInterval is the observer polling cadence when watching a match
// without pub/sub.
const DefaultPollInterval = 2 * time.Second

// Duration is a time.Duration that unmarshals from YAML strings like "5m"
// or bare second counts like "300".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := timespec.ParseDuration(value.Value)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a standard time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// GambitConfig represents the top-level gambit.yml configuration.
type GambitConfig struct {
	Version  string           `yaml:"version"`
	Match    *MatchConfig     `yaml:"match,omitempty"`
	Agents   map[string]Agent `yaml:"agents,omitempty"`
	RedisURL string           `yaml:"redis_url,omitempty"`
}

// MatchConfig specifies how a match is played.
type MatchConfig struct {
	White string `yaml:"white"` // agent id playing White
	Black string `yaml:"black"` // agent id playing Black

	// Rejected attempts allowed per turn before forfeit (0 = unlimited).
	MaxRetries *int `yaml:"max_retries,omitempty"`

	// Clock budget per side, e.g. "5m". Zero or unset = untimed.
	TimePerSide Duration `yaml:"time_per_side,omitempty"`

	// Optional non-standard starting position (FEN).
	StartingFEN string `yaml:"starting_fen,omitempty"`

	// How often watch falls back to polling the scoreboard.
	PollInterval Duration `yaml:"poll_interval,omitempty"`
}

// Agent represents a single configured agent.
type Agent struct {
	Provider    string `yaml:"provider"` // "openai" or "gemini"
	Model       string `yaml:"model,omitempty"`
	DisplayName string `yaml:"display_name,omitempty"`
}

// DefaultMaxRetries is applied when match.max_retries is not specified.
const DefaultMaxRetries = 3

// Validate performs strict validation on the configuration and applies
// defaults for omitted fields.
func (c *GambitConfig) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.RedisURL == "" {
		c.RedisURL = DefaultRedisURL
	}

	for name, agent := range c.Agents {
		if err := agent.Validate(name); err != nil {
			return err
		}
	}

	if c.Match == nil {
		c.Match = &MatchConfig{}
	}
	return c.Match.Validate(c.Agents)
}

// Validate checks a single agent configuration.
func (a *Agent) Validate(name string) error {
	if name == "" {
		return fmt.Errorf("agent id cannot be empty")
	}
	switch a.Provider {
	case "openai", "gemini":
	case "":
		return fmt.Errorf("agent '%s': provider is required", name)
	default:
		return fmt.Errorf("agent '%s': invalid provider: %s (must be 'openai' or 'gemini')", name, a.Provider)
	}
	return nil
}

// Validate checks the match section and applies defaults. Side assignments
// must reference configured agents when any agents are defined; with no
// agents section the built-in agent list is used and ids are checked later.
func (m *MatchConfig) Validate(agents map[string]Agent) error {
	if m.MaxRetries == nil {
		defaultRetries := DefaultMaxRetries
		m.MaxRetries = &defaultRetries
	}
	if *m.MaxRetries < 0 {
		return fmt.Errorf("match.max_retries must be >= 0 (0 = unlimited), got %d", *m.MaxRetries)
	}

	if m.TimePerSide < 0 {
		return fmt.Errorf("match.time_per_side cannot be negative")
	}

	if m.PollInterval == 0 {
		m.PollInterval = Duration(DefaultPollInterval)
	}
	if m.PollInterval < 0 {
		return fmt.Errorf("match.poll_interval cannot be negative")
	}

	if len(agents) > 0 {
		for _, side := range []struct{ label, id string }{
			{"white", m.White},
			{"black", m.Black},
		} {
			if side.id == "" {
				return fmt.Errorf("match.%s is required when agents are configured", side.label)
			}
			if _, ok := agents[side.id]; !ok {
				return fmt.Errorf("match.%s references unknown agent '%s'", side.label, side.id)
			}
		}
	}

	return nil
}

// Load reads and validates gambit.yml from the specified path.
func Load(path string) (*GambitConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config GambitConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns the built-in configuration used when no gambit.yml exists:
// the default agent list, three retries, untimed.
func Default() *GambitConfig {
	cfg := &GambitConfig{Version: "1.0"}
	if err := cfg.Validate(); err != nil {
		// The built-in config is always valid.
		panic(err)
	}
	return cfg
}
