package ws

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/webterm/internal/domain/terminal"
	"github.com/GriffinCanCode/AgentOS/webterm/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/webterm/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AgentOS/webterm/internal/shared/id"
)

const maxMessageSize = 64 * 1024

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// The CORS middleware rejects disallowed origins before the upgrade.
		// With the default CORS_ORIGINS of "*" every origin is allowed.
		return true
	},
}

// ClientMessage is a frame sent by the browser
type ClientMessage struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
	Cols int    `json:"cols,omitempty"`
	Rows int    `json:"rows,omitempty"`
}

// Handler manages terminal attach connections
type Handler struct {
	store   *terminal.Store
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(store *terminal.Store, metrics *monitoring.Metrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		store:   store,
		metrics: metrics,
		logger:  logger,
	}
}

// HandleAttach upgrades the request and attaches the connection to the
// session named in the path.
func (h *Handler) HandleAttach(c *gin.Context) {
	sessionID := c.Param("id")
	if _, ok := h.store.Session(sessionID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "terminal session not found"})
		return
	}

	cols, rows := initialSize(c, h.store)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	conn.SetReadLimit(maxMessageSize)

	connID := id.NewConnectionID()
	log := h.logger.With(
		zap.String("session_id", sessionID),
		zap.String("connection_id", connID.String()),
	)
	if traceID := tracing.GetTraceID(c.Request.Context()); traceID != "" {
		log = log.With(zap.String("trace_id", string(traceID)))
	}
	surface := newSurface(conn, cols, rows)

	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}
	log.Info("Terminal connection opened", zap.Int("cols", cols), zap.Int("rows", rows))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.attach(ctx, sessionID, surface, log)

	h.readLoop(sessionID, surface, log)

	surface.Close()
	log.Info("Terminal connection closed")
}

func (h *Handler) attach(ctx context.Context, sessionID string, surface *Surface, log *zap.Logger) {
	outcome := h.store.Attach(ctx, sessionID, surface)

	msg := map[string]interface{}{
		"type":       "attached",
		"session_id": sessionID,
	}
	if outcome != terminal.AttachAttached {
		msg["type"] = "error"
		msg["outcome"] = outcome.String()
	} else if proc, ok := h.store.Process(sessionID); ok {
		if p, ok := proc.(interface{ PID() int }); ok {
			log.Debug("Shell process bound", zap.Int("pid", p.PID()))
		}
	}
	if err := surface.sendJSON(msg); err != nil {
		log.Debug("Failed to send attach status", zap.Error(err))
		return
	}
	h.recordMessage("out", msg["type"].(string))
}

func (h *Handler) readLoop(sessionID string, surface *Surface, log *zap.Logger) {
	for {
		_, data, err := surface.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.recordMessage("in", "invalid")
			h.sendError(surface, "invalid message")
			continue
		}
		h.recordMessage("in", messageLabel(msg.Type))

		switch msg.Type {
		case "input":
			h.forwardInput(sessionID, surface, msg.Data, log)
		case "resize":
			if !terminal.ValidSize(msg.Cols, msg.Rows) {
				h.sendError(surface, "invalid terminal size")
				continue
			}
			surface.setSize(msg.Cols, msg.Rows)
			h.store.BroadcastResize(msg.Cols, msg.Rows)
		case "ping":
			if err := surface.sendJSON(map[string]interface{}{"type": "pong"}); err == nil {
				h.recordMessage("out", "pong")
			}
		default:
			h.sendError(surface, "unknown message type")
		}
	}
}

// forwardInput writes data to the session's process, but only while this
// connection is still the one the session is attached to.
func (h *Handler) forwardInput(sessionID string, surface *Surface, data string, log *zap.Logger) {
	if pres, ok := h.store.Presentation(sessionID); !ok || pres != terminal.Presentation(surface) {
		return
	}
	proc, ok := h.store.Process(sessionID)
	if !ok {
		return
	}
	w, ok := proc.(io.Writer)
	if !ok {
		return
	}
	if _, err := io.WriteString(w, data); err != nil {
		log.Debug("Failed to forward terminal input", zap.Error(err))
	}
}

func (h *Handler) sendError(surface *Surface, message string) {
	if err := surface.sendJSON(map[string]interface{}{
		"type":    "error",
		"message": message,
	}); err == nil {
		h.recordMessage("out", "error")
	}
}

func (h *Handler) recordMessage(direction, msgType string) {
	if h.metrics != nil {
		h.metrics.RecordWSMessage(direction, msgType)
	}
}

// messageLabel bounds the metric label set to the known frame types.
func messageLabel(msgType string) string {
	switch msgType {
	case "input", "resize", "ping":
		return msgType
	default:
		return "unknown"
	}
}

// initialSize reads cols and rows from the query string, falling back to
// the last broadcast size when they are missing or out of range. Zero leaves the choice to the runtime.
func initialSize(c *gin.Context, store *terminal.Store) (int, int) {
	cols, errCols := strconv.Atoi(c.Query("cols"))
	rows, errRows := strconv.Atoi(c.Query("rows"))
	if errCols == nil && errRows == nil && terminal.ValidSize(cols, rows) {
		return cols, rows
	}
	if cols, rows, ok := store.LastSize(); ok {
		return cols, rows
	}
	return 0, 0
}
