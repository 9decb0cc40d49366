// Package main is the entry point for the terminal session server.
//
// The server hosts interactive terminals for a browser IDE: it keeps the
// session registry, spawns shells under a PTY on attach, and streams them
// over WebSocket.
//
// Architecture:
//
//	Browser (xterm) ⇄ WebSocket /terminals/:id/attach ⇄ terminal.Store ⇄ PTY shell
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Production mode
//	./server -port 8000
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
