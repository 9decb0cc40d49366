package terminal

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/webterm/internal/infrastructure/monitoring"
)

// Options configures a Store.
type Options struct {
	// AgentCommand is used by agent sessions created without a command.
	AgentCommand string
	// AgentStartup is how long a new agent session reports IsRunning.
	AgentStartup time.Duration
}

// DefaultOptions returns the options used when none are supplied.
func DefaultOptions() Options {
	return Options{
		AgentCommand: "claude",
		AgentStartup: 5 * time.Second,
	}
}

// Store is the registry of terminal sessions. It owns id allocation, the
// visibility flag and the active-session pointer, and binds sessions to
// processes obtained from the runtime.
//
// Construct one per process and pass it to whoever needs it.
type Store struct {
	mu       sync.RWMutex
	sessions map[Key]*session    // Protected by mu
	timers   map[Key]*time.Timer // Protected by mu
	next     Key                 // Protected by mu
	visible  bool                // Protected by mu
	activeID string              // Protected by mu
	lastSize [2]int              // Protected by mu
	closed   bool                // Protected by mu

	provider RuntimeProvider
	opts     Options
	logger   *zap.Logger
	metrics  *monitoring.Metrics
}

// NewStore creates a store holding its initial agent session.
func NewStore(provider RuntimeProvider, logger *zap.Logger, opts Options) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.AgentCommand == "" {
		opts.AgentCommand = DefaultOptions().AgentCommand
	}
	if opts.AgentStartup <= 0 {
		opts.AgentStartup = DefaultOptions().AgentStartup
	}

	s := &Store{
		sessions: make(map[Key]*session),
		timers:   make(map[Key]*time.Timer),
		provider: provider,
		opts:     opts,
		logger:   logger,
	}
	s.CreateSession(true, "")
	return s
}

// WithMetrics adds metrics tracking to the store
func (s *Store) WithMetrics(metrics *monitoring.Metrics) *Store {
	s.metrics = metrics
	if metrics != nil {
		metrics.SetTerminalSessions(s.SessionCount())
	}
	return s
}

// CreateSession registers a new session without a process and returns its id.
// Agent sessions default to the configured agent command and report
// IsRunning until the startup window elapses.
func (s *Store) CreateSession(isAgent bool, command string) string {
	if isAgent && command == "" {
		command = s.opts.AgentCommand
	}

	s.mu.Lock()
	s.next++
	key := s.next
	s.sessions[key] = &session{
		key:       key,
		command:   command,
		isAgent:   isAgent,
		isRunning: isAgent && !s.closed,
		createdAt: time.Now(),
	}
	if isAgent && !s.closed {
		s.timers[key] = time.AfterFunc(s.opts.AgentStartup, func() {
			s.finishStartup(key)
		})
	}
	count := len(s.sessions)
	s.mu.Unlock()

	s.logger.Info("Terminal session created",
		zap.String("session_id", key.String()),
		zap.Bool("agent", isAgent),
		zap.String("command", command),
	)
	if s.metrics != nil {
		s.metrics.IncTerminalSessionsCreated(isAgent)
		s.metrics.SetTerminalSessions(count)
	}

	return key.String()
}

// finishStartup clears IsRunning once the agent startup window elapses.
func (s *Store) finishStartup(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.timers, key)
	if rec, ok := s.sessions[key]; ok {
		rec.isRunning = false
	}
}

// RemoveSession drops a session and cancels its pending startup timer. The
// bound process, if any, is left running.
func (s *Store) RemoveSession(id string) bool {
	key, ok := ParseKey(id)
	if !ok {
		return false
	}

	s.mu.Lock()
	if _, exists := s.sessions[key]; !exists {
		s.mu.Unlock()
		return false
	}
	delete(s.sessions, key)
	if timer, pending := s.timers[key]; pending {
		timer.Stop()
		delete(s.timers, key)
	}
	count := len(s.sessions)
	s.mu.Unlock()

	s.logger.Info("Terminal session removed", zap.String("session_id", id))
	if s.metrics != nil {
		s.metrics.SetTerminalSessions(count)
	}
	return true
}

// ToggleVisibility sets the visibility flag to *explicit, or flips it when
// explicit is nil. It returns the new value.
func (s *Store) ToggleVisibility(explicit *bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if explicit != nil {
		s.visible = *explicit
	} else {
		s.visible = !s.visible
	}
	return s.visible
}

// Visible reports the visibility flag.
func (s *Store) Visible() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.visible
}

// SetActiveSession records id as the focused session. The id is not validated.
func (s *Store) SetActiveSession(id string) {
	s.mu.Lock()
	s.activeID = id
	s.mu.Unlock()
}

// ActiveSession returns the focused session id.
func (s *Store) ActiveSession() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// SessionCount returns the number of registered sessions.
func (s *Store) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Session returns a snapshot of one session.
func (s *Store) Session(id string) (SessionInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.lookupLocked(id)
	if !ok {
		return SessionInfo{}, false
	}
	return rec.info(), true
}

// Sessions returns snapshots of every session in creation order.
func (s *Store) Sessions() []SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]Key, 0, len(s.sessions))
	for key := range s.sessions {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	infos := make([]SessionInfo, 0, len(keys))
	for _, key := range keys {
		infos = append(infos, s.sessions[key].info())
	}
	return infos
}

// Process returns the process bound to a session, if any.
func (s *Store) Process(id string) (Process, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.lookupLocked(id)
	if !ok || rec.process == nil {
		return nil, false
	}
	return rec.process, true
}

// Presentation returns the surface bound to a session, if any.
func (s *Store) Presentation(id string) (Presentation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.lookupLocked(id)
	if !ok || rec.presentation == nil {
		return nil, false
	}
	return rec.presentation, true
}

// LastSize returns the dimensions of the most recent resize broadcast.
func (s *Store) LastSize() (cols, rows int, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSize[0], s.lastSize[1], s.lastSize[0] > 0
}

// BroadcastResize resizes every attached process. Sessions without a process
// are skipped. Failures are logged per process. Sizes outside 1..MaxSize
// are ignored.
func (s *Store) BroadcastResize(cols, rows int) {
	if !ValidSize(cols, rows) {
		s.logger.Warn("Ignoring invalid terminal size", zap.Int("cols", cols), zap.Int("rows", rows))
		return
	}

	type target struct {
		id      string
		process Process
	}

	s.mu.Lock()
	s.lastSize = [2]int{cols, rows}
	targets := make([]target, 0, len(s.sessions))
	for key, rec := range s.sessions {
		if rec.process != nil {
			targets = append(targets, target{id: key.String(), process: rec.process})
		}
	}
	s.mu.Unlock()

	failed := 0
	for _, t := range targets {
		if err := t.process.Resize(cols, rows); err != nil {
			failed++
			s.logger.Warn("Failed to resize terminal",
				zap.String("session_id", t.id),
				zap.Int("cols", cols),
				zap.Int("rows", rows),
				zap.Error(err),
			)
		}
	}

	s.logger.Debug("Resize broadcast",
		zap.Int("cols", cols),
		zap.Int("rows", rows),
		zap.Int("processes", len(targets)),
		zap.Int("failed", failed),
	)
	if s.metrics != nil {
		s.metrics.RecordResizeBroadcast(failed)
	}
}

// Close cancels every pending startup timer. Sessions stay registered.
// Safe to call more than once.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for key, timer := range s.timers {
		timer.Stop()
		delete(s.timers, key)
	}
}

func (s *Store) lookupLocked(id string) (*session, bool) {
	key, ok := ParseKey(id)
	if !ok {
		return nil, false
	}
	rec, ok := s.sessions[key]
	return rec, ok
}
