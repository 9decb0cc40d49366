// Package terminal is the registry of terminal sessions and the protocol
// that binds each session to a live shell process.
//
// A Store starts with one agent session. Sessions are created without a
// process and attached later, once a presentation surface (a browser-side
// terminal) is available:
//
//	Created --attach ok--> Attached --resize--> Attached
//	Created --attach failed--> Created (error written to the surface)
//
// Session ids ("terminal-1", "terminal-2", ...) are derived from a sequential
// arena key and never reused. The store never terminates processes; a
// process exits on its own or when its surface goes away.
//
// Example Usage:
//
//	store := terminal.NewStore(provider, logger, terminal.DefaultOptions())
//	defer store.Close()
//
//	id := store.CreateSession(false, "")
//	store.SetActiveSession(id)
//	store.Attach(ctx, id, surface)
//	store.BroadcastResize(120, 40)
package terminal
