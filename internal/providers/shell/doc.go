// Package shell is the runtime that backs terminal sessions with real shell
// processes under a PTY (pseudo-terminal).
//
// Boot:
//   - Provider resolves the shell ($SHELL, then the configured fallback) and
//     the working directory in the background
//   - Runtime(ctx) blocks until boot finishes; a failed boot fails every spawn
//
// Processes:
//   - An empty command starts an interactive shell
//   - Any other command runs as "<shell> -lc <command>"
//   - TERM=xterm-256color plus configured variables on top of the host env
//   - PTY output is streamed to the session's surface; when a surface write
//     fails the shell is killed
//   - Resize maps to TIOCSWINSZ via creack/pty
//   - Consecutive PTY start failures open a circuit breaker; while it is
//     open Spawn fails fast with resilience.ErrCircuitOpen
//
// Example Usage:
//
//	provider := shell.NewProvider(shell.DefaultConfig(), logger)
//	provider.Start()
//
//	rt, err := provider.Runtime(ctx)
//	proc, err := rt.Spawn(ctx, surface, "")
//	proc.Resize(120, 40)
package shell
