package terminal

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/webterm/internal/shared/id"
)

// Attach binds surface and a freshly spawned process to the session id.
//
// The store is not locked while the runtime spawns, so readers keep seeing
// the unattached entry until the spawn completes. Failures never reach the
// caller: an unknown id is logged, a spawn failure is written to surface and
// leaves the session attachable again. Re-attaching an attached session
// replaces its process reference without stopping the old process.
//
// Callers must not attach the same unattached session twice concurrently.
// surface must be non-nil.
func (s *Store) Attach(ctx context.Context, sessionID string, surface Presentation) AttachOutcome {
	attempt := id.NewAttemptID()
	log := s.logger.With(
		zap.String("session_id", sessionID),
		zap.String("attempt_id", attempt.String()),
	)
	start := time.Now()

	s.mu.RLock()
	rec, ok := s.lookupLocked(sessionID)
	var (
		key     Key
		command string
	)
	if ok {
		key, command = rec.key, rec.command
	}
	s.mu.RUnlock()

	if !ok {
		log.Error("Attach failed", zap.Error(fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)))
		return s.finishAttach(AttachUnknownSession, start)
	}

	process, err := s.spawn(ctx, surface, command)
	if err != nil {
		log.Warn("Attach failed", zap.String("command", command), zap.Error(err))
		if _, werr := io.WriteString(surface, FormatError("Failed to spawn shell", err)); werr != nil {
			log.Warn("Failed to report spawn failure to terminal", zap.Error(werr))
		}
		return s.finishAttach(AttachSpawnFailed, start)
	}

	s.mu.Lock()
	current, exists := s.sessions[key]
	if exists {
		updated := *current
		updated.presentation = surface
		updated.process = process
		updated.attachedAt = time.Now()
		s.sessions[key] = &updated
	}
	s.mu.Unlock()

	if !exists {
		log.Warn("Session removed while attaching, dropping process reference")
		return s.finishAttach(AttachDiscarded, start)
	}

	log.Info("Terminal attached", zap.String("command", command), zap.Duration("took", time.Since(start)))
	return s.finishAttach(AttachAttached, start)
}

func (s *Store) spawn(ctx context.Context, surface Presentation, command string) (Process, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("%w: no runtime configured", ErrSpawnFailed)
	}

	rt, err := s.provider.Runtime(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: runtime unavailable: %w", ErrSpawnFailed, err)
	}

	process, err := rt.Spawn(ctx, surface, command)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSpawnFailed, err)
	}
	if process == nil {
		return nil, fmt.Errorf("%w: runtime returned no process", ErrSpawnFailed)
	}
	return process, nil
}

func (s *Store) finishAttach(outcome AttachOutcome, start time.Time) AttachOutcome {
	if s.metrics != nil {
		s.metrics.RecordAttach(outcome.String(), time.Since(start))
	}
	return outcome
}
