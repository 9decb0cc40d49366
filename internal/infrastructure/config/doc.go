// Package config provides 12-factor configuration management for the
// terminal host.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Terminal: agent command, agent startup window, shell and PTY defaults
//   - Logging: Log level and output format
//   - RateLimit: Per-IP or global rate limiting configuration
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST
//   - TERMINAL_AGENT_COMMAND, TERMINAL_AGENT_STARTUP, TERMINAL_SHELL,
//     TERMINAL_WORKDIR, TERMINAL_COLS, TERMINAL_ROWS
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED, RATE_LIMIT_GLOBAL
package config
