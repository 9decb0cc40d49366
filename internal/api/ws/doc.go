// Package ws attaches browser terminals to sessions over WebSocket.
//
// A connection to /terminals/:id/attach becomes the session's presentation:
// process output is streamed as binary frames, status and errors as JSON
// text frames. Attachment runs in its own goroutine so input is read from
// the moment the upgrade completes.
//
// Message Types (Client → Server):
//   - input: raw bytes for the process ({"type":"input","data":"ls\n"})
//   - resize: new dimensions, broadcast to every attached terminal
//   - ping: keep-alive ping
//
// Message Types (Server → Client):
//   - attached: the session is bound to a running process
//   - error: attach failed or a frame was rejected
//   - pong: keep-alive reply
//
// Example Usage:
//
//	handler := ws.NewHandler(store, metrics, logger)
//	router.GET("/terminals/:id/attach", handler.HandleAttach)
package ws
