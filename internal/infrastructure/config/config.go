package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Terminal  TerminalConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
	// CORSOrigins lists the browser origins allowed to call the API.
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
}

// TerminalConfig holds terminal session and shell runtime configuration.
type TerminalConfig struct {
	// AgentCommand is launched by agent sessions created without a command.
	AgentCommand string `envconfig:"TERMINAL_AGENT_COMMAND" default:"claude"`
	// AgentStartup is how long a new agent session reports itself as running.
	AgentStartup time.Duration `envconfig:"TERMINAL_AGENT_STARTUP" default:"5s"`
	Shell        string        `envconfig:"TERMINAL_SHELL" default:"/bin/bash"`
	WorkingDir   string        `envconfig:"TERMINAL_WORKDIR" default:""`
	Cols         int           `envconfig:"TERMINAL_COLS" default:"80"`
	Rows         int           `envconfig:"TERMINAL_ROWS" default:"24"`
	// SpawnFailureThreshold consecutive PTY start failures pause spawning
	// for SpawnCooldown.
	SpawnFailureThreshold uint32        `envconfig:"TERMINAL_SPAWN_FAILURE_THRESHOLD" default:"5"`
	SpawnCooldown         time.Duration `envconfig:"TERMINAL_SPAWN_COOLDOWN" default:"30s"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	// Global shares one bucket across all clients instead of one per IP.
	Global            bool `envconfig:"RATE_LIMIT_GLOBAL" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate rejects values the terminal runtime cannot work with.
func (c *Config) Validate() error {
	if c.Terminal.Cols <= 0 || c.Terminal.Rows <= 0 {
		return fmt.Errorf("invalid terminal size %dx%d", c.Terminal.Cols, c.Terminal.Rows)
	}
	if c.Terminal.AgentStartup < 0 {
		return fmt.Errorf("invalid agent startup window: %s", c.Terminal.AgentStartup)
	}
	if c.Terminal.SpawnCooldown < 0 {
		return fmt.Errorf("invalid spawn cooldown: %s", c.Terminal.SpawnCooldown)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8000",
			Host:        "0.0.0.0",
			CORSOrigins: []string{"*"},
		},
		Terminal: TerminalConfig{
			AgentCommand: "claude",
			AgentStartup: 5 * time.Second,
			Shell:        "/bin/bash",
			Cols:         80,
			Rows:         24,

			SpawnFailureThreshold: 5,
			SpawnCooldown:         30 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
			Global:            false,
		},
	}
}
