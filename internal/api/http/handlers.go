package http

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/webterm/internal/domain/terminal"
	"github.com/GriffinCanCode/AgentOS/webterm/internal/infrastructure/monitoring"
)

// Handlers contains the terminal REST handlers
type Handlers struct {
	store   *terminal.Store
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(store *terminal.Store, metrics *monitoring.Metrics, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		store:   store,
		metrics: metrics,
		logger:  logger,
	}
}

// CreateTerminalRequest is the body of POST /terminals
type CreateTerminalRequest struct {
	Agent   bool   `json:"agent"`
	Command string `json:"command" binding:"max=4096"`
}

// VisibilityRequest is the body of POST /terminals/visibility. Omitting
// visible flips the current value.
type VisibilityRequest struct {
	Visible *bool `json:"visible"`
}

// ResizeRequest is the body of POST /terminals/resize. The bounds match
// terminal.MaxSize.
type ResizeRequest struct {
	Cols int `json:"cols" binding:"required,min=1,max=1000"`
	Rows int `json:"rows" binding:"required,min=1,max=1000"`
}

// Register mounts the handlers on r
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/health", h.Health)

	terminals := r.Group("/terminals")
	terminals.GET("", h.ListTerminals)
	terminals.POST("", h.CreateTerminal)
	terminals.POST("/visibility", h.SetVisibility)
	terminals.POST("/resize", h.Resize)
	terminals.GET("/:id", h.GetTerminal)
	terminals.DELETE("/:id", h.RemoveTerminal)
	terminals.POST("/:id/activate", h.ActivateTerminal)
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	body := gin.H{
		"status":   "healthy",
		"service":  "webterm",
		"sessions": h.store.SessionCount(),
	}
	if h.metrics != nil {
		body["uptime_seconds"] = int64(h.metrics.UptimeDuration() / time.Second)
		body["metrics"] = h.metrics.Snapshot()
	}
	c.JSON(http.StatusOK, body)
}

// ListTerminals lists every session with the registry flags
func (h *Handlers) ListTerminals(c *gin.Context) {
	sessions := h.store.Sessions()

	c.JSON(http.StatusOK, gin.H{
		"sessions": sessions,
		"count":    len(sessions),
		"active":   h.store.ActiveSession(),
		"visible":  h.store.Visible(),
	})
}

// CreateTerminal registers a new session. The body is optional.
func (h *Handlers) CreateTerminal(c *gin.Context) {
	var req CreateTerminalRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := h.store.CreateSession(req.Agent, req.Command)
	info, _ := h.store.Session(id)

	c.JSON(http.StatusCreated, gin.H{
		"id":      id,
		"session": info,
	})
}

// GetTerminal returns one session
func (h *Handlers) GetTerminal(c *gin.Context) {
	info, ok := h.store.Session(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "terminal session not found"})
		return
	}
	c.JSON(http.StatusOK, info)
}

// RemoveTerminal drops a session from the registry
func (h *Handlers) RemoveTerminal(c *gin.Context) {
	id := c.Param("id")
	if !h.store.RemoveSession(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "terminal session not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id})
}

// ActivateTerminal focuses a session
func (h *Handlers) ActivateTerminal(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.store.Session(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "terminal session not found"})
		return
	}

	h.store.SetActiveSession(id)
	c.JSON(http.StatusOK, gin.H{"success": true, "active": id})
}

// SetVisibility sets or flips the terminal panel visibility
func (h *Handlers) SetVisibility(c *gin.Context) {
	var req VisibilityRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	visible := h.store.ToggleVisibility(req.Visible)
	c.JSON(http.StatusOK, gin.H{"visible": visible})
}

// Resize forwards new dimensions to every attached terminal
func (h *Handlers) Resize(c *gin.Context) {
	var req ResizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.store.BroadcastResize(req.Cols, req.Rows)
	c.JSON(http.StatusOK, gin.H{"success": true, "cols": req.Cols, "rows": req.Rows})
}

// bindOptionalJSON binds a JSON body, treating an empty body as zero values.
func bindOptionalJSON(c *gin.Context, v interface{}) error {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
