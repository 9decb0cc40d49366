package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Terminal metrics
	TerminalSessions        prometheus.Gauge
	TerminalSessionsCreated *prometheus.CounterVec
	AttachAttempts          *prometheus.CounterVec
	AttachDuration          prometheus.Histogram
	ResizeBroadcasts        prometheus.Counter
	ResizeFailures          prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	snapshot Snapshot
	mu       sync.RWMutex
	stop     chan struct{}
	stopOnce sync.Once
}

// Snapshot holds current metric values for the JSON health view
type Snapshot struct {
	TotalRequests     int64 `json:"total_requests"`
	TotalErrors       int64 `json:"total_errors"`
	Sessions          int64 `json:"sessions"`
	Attached          int64 `json:"attached"`
	AttachFailures    int64 `json:"attach_failures"`
	ActiveConnections int64 `json:"active_connections"`
}

// NewMetrics creates a metrics collector registered on reg. A nil reg uses
// the default Prometheus registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	m := &Metrics{
		startTime: time.Now(),
		stop:      make(chan struct{}),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webterm_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webterm_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		TerminalSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "webterm_terminal_sessions",
				Help: "Number of registered terminal sessions",
			},
		),
		TerminalSessionsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webterm_terminal_sessions_created_total",
				Help: "Total number of terminal sessions created",
			},
			[]string{"kind"},
		),
		AttachAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webterm_terminal_attach_total",
				Help: "Total number of attach attempts by outcome",
			},
			[]string{"outcome"},
		),
		AttachDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "webterm_terminal_attach_duration_seconds",
				Help:    "Time from attach request to outcome",
				Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),
		ResizeBroadcasts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "webterm_terminal_resize_broadcasts_total",
				Help: "Total number of resize broadcasts",
			},
		),
		ResizeFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "webterm_terminal_resize_failures_total",
				Help: "Total number of per-process resize failures",
			},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "webterm_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webterm_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "webterm_uptime_seconds",
				Help: "Uptime in seconds",
			},
		),
	}

	go m.updateUptime()

	return m
}

// updateUptime updates the uptime metric until Close is called
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Uptime.Set(time.Since(m.startTime).Seconds())
		case <-m.stop:
			return
		}
	}
}

// Close stops the uptime updater
func (m *Metrics) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// SetTerminalSessions sets the number of registered sessions
func (m *Metrics) SetTerminalSessions(count int) {
	m.TerminalSessions.Set(float64(count))
	m.mu.Lock()
	m.snapshot.Sessions = int64(count)
	m.mu.Unlock()
}

// IncTerminalSessionsCreated counts a created session by kind
func (m *Metrics) IncTerminalSessionsCreated(agent bool) {
	kind := "shell"
	if agent {
		kind = "agent"
	}
	m.TerminalSessionsCreated.WithLabelValues(kind).Inc()
}

// RecordAttach records the outcome of an attach attempt
func (m *Metrics) RecordAttach(outcome string, duration time.Duration) {
	m.AttachAttempts.WithLabelValues(outcome).Inc()
	m.AttachDuration.Observe(duration.Seconds())

	m.mu.Lock()
	if outcome == "attached" {
		m.snapshot.Attached++
	} else {
		m.snapshot.AttachFailures++
	}
	m.mu.Unlock()
}

// RecordResizeBroadcast records one broadcast and its per-process failures
func (m *Metrics) RecordResizeBroadcast(failed int) {
	m.ResizeBroadcasts.Inc()
	if failed > 0 {
		m.ResizeFailures.Add(float64(failed))
	}
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// Snapshot returns a copy of the tracked values
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// UptimeDuration returns time since the collector was created
func (m *Metrics) UptimeDuration() time.Duration {
	return time.Since(m.startTime)
}
