package terminal

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrUnknownSession is logged when an operation names an id the store never issued or already dropped.
	ErrUnknownSession = errors.New("unknown terminal session")
	// ErrSpawnFailed wraps every failure to obtain a process from the runtime.
	ErrSpawnFailed = errors.New("failed to spawn shell process")
)

// idPrefix is the display prefix of every session id.
const idPrefix = "terminal-"

// Key is the arena index of a session record. The string id is derived from it.
type Key uint64

// String renders the key as a session id ("terminal-<n>").
func (k Key) String() string {
	return idPrefix + strconv.FormatUint(uint64(k), 10)
}

// ParseKey parses a session id back into its key. Only the canonical form
// produced by Key.String is accepted.
func ParseKey(id string) (Key, bool) {
	digits, ok := strings.CutPrefix(id, idPrefix)
	if !ok || digits == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	key := Key(n)
	if key.String() != id {
		return 0, false
	}
	return key, true
}

// Presentation is the visual surface a session renders to.
type Presentation interface {
	Write(p []byte) (int, error)
	// Size reports the surface dimensions in character cells.
	Size() (cols, rows int)
}

// MaxSize is the largest column or row count accepted from a client.
const MaxSize = 1000

// ValidSize reports whether cols and rows are both within 1..MaxSize.
func ValidSize(cols, rows int) bool {
	return cols > 0 && rows > 0 && cols <= MaxSize && rows <= MaxSize
}

// Process is a live shell process bound to a session.
type Process interface {
	Resize(cols, rows int) error
}

// Runtime spawns shell processes. An empty command asks for the runtime's
// default interactive shell.
type Runtime interface {
	Spawn(ctx context.Context, surface Presentation, command string) (Process, error)
}

// RuntimeProvider hands out the runtime once it has finished booting.
type RuntimeProvider interface {
	Runtime(ctx context.Context) (Runtime, error)
}

// AttachOutcome reports how an attach attempt ended.
type AttachOutcome int

const (
	// AttachAttached means the session now references both surface and process.
	AttachAttached AttachOutcome = iota
	// AttachUnknownSession means the id was not in the store; nothing changed.
	AttachUnknownSession
	// AttachSpawnFailed means the runtime failed; the error was written to the surface.
	AttachSpawnFailed
	// AttachDiscarded means the session was removed while the spawn was in flight.
	AttachDiscarded
)

// String returns the string representation of the outcome
func (o AttachOutcome) String() string {
	switch o {
	case AttachAttached:
		return "attached"
	case AttachUnknownSession:
		return "unknown_session"
	case AttachSpawnFailed:
		return "spawn_failed"
	case AttachDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// session is one record in the store's arena. Records are replaced whole on
// attachment, never mutated in place for presentation/process.
type session struct {
	key          Key
	command      string
	isAgent      bool
	isRunning    bool
	presentation Presentation
	process      Process
	createdAt    time.Time
	attachedAt   time.Time
}

// SessionInfo is the public representation of a session
type SessionInfo struct {
	ID             string     `json:"id"`
	Command        string     `json:"command,omitempty"`
	IsAgentSession bool       `json:"is_agent_session"`
	IsRunning      bool       `json:"is_running"`
	Attached       bool       `json:"attached"`
	CreatedAt      time.Time  `json:"created_at"`
	AttachedAt     *time.Time `json:"attached_at,omitempty"`
}

func (s *session) info() SessionInfo {
	info := SessionInfo{
		ID:             s.key.String(),
		Command:        s.command,
		IsAgentSession: s.isAgent,
		IsRunning:      s.isRunning,
		Attached:       s.process != nil,
		CreatedAt:      s.createdAt,
	}
	if !s.attachedAt.IsZero() {
		at := s.attachedAt
		info.AttachedAt = &at
	}
	return info
}
