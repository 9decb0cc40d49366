package shell

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/webterm/internal/domain/terminal"
	"github.com/GriffinCanCode/AgentOS/webterm/internal/infrastructure/resilience"
)

// ErrNoShell is returned when no configured shell can be found on PATH.
var ErrNoShell = errors.New("no usable shell found")

var _ terminal.RuntimeProvider = (*Provider)(nil)

// Config holds shell runtime settings.
type Config struct {
	// Shell is used when $SHELL is unset or not executable.
	Shell string
	// WorkingDir is the initial directory. Falls back to $HOME, then /tmp.
	WorkingDir string
	// Env adds variables on top of the host environment.
	Env map[string]string
	// Cols and Rows are used when the surface does not report a size.
	Cols int
	Rows int
	// SpawnFailureThreshold consecutive PTY start failures open the spawn
	// breaker for SpawnCooldown.
	SpawnFailureThreshold uint32
	SpawnCooldown         time.Duration
}

// DefaultConfig returns the runtime defaults.
func DefaultConfig() Config {
	return Config{
		Shell:                 "/bin/bash",
		Cols:                  80,
		Rows:                  24,
		SpawnFailureThreshold: 5,
		SpawnCooldown:         30 * time.Second,
	}
}

// Provider boots the shell runtime in the background and hands it out once ready.
type Provider struct {
	cfg    Config
	logger *zap.Logger

	start sync.Once
	ready chan struct{}
	rt    *Runtime
	err   error
}

// NewProvider creates a provider. Nothing is resolved until Start or Runtime is called.
func NewProvider(cfg Config, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Cols <= 0 {
		cfg.Cols = DefaultConfig().Cols
	}
	if cfg.Rows <= 0 {
		cfg.Rows = DefaultConfig().Rows
	}
	return &Provider{
		cfg:    cfg,
		logger: logger,
		ready:  make(chan struct{}),
	}
}

// Start begins booting the runtime without waiting for it.
func (p *Provider) Start() {
	p.start.Do(func() {
		go p.boot()
	})
}

// Runtime waits for boot to finish. A failed boot is reported to every caller.
func (p *Provider) Runtime(ctx context.Context) (terminal.Runtime, error) {
	p.Start()

	select {
	case <-p.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if p.err != nil {
		return nil, p.err
	}
	return p.rt, nil
}

func (p *Provider) boot() {
	defer close(p.ready)

	shell, err := resolveShell(os.Getenv("SHELL"), p.cfg.Shell)
	if err != nil {
		p.err = err
		p.logger.Error("Shell runtime failed to boot", zap.Error(err))
		return
	}

	dir := resolveWorkingDir(p.cfg.WorkingDir, os.Getenv("HOME"), os.TempDir())

	p.rt = &Runtime{
		shell:      shell,
		workingDir: dir,
		env:        buildEnv(p.cfg.Env),
		cols:       p.cfg.Cols,
		rows:       p.cfg.Rows,
		breaker:    p.newBreaker(),
		logger:     p.logger,
	}
	p.logger.Info("Shell runtime ready",
		zap.String("shell", p.rt.Shell()),
		zap.String("working_dir", p.rt.WorkingDir()),
	)
}

func (p *Provider) newBreaker() *resilience.Breaker {
	return resilience.New("pty-spawn", resilience.Settings{
		FailureThreshold: p.cfg.SpawnFailureThreshold,
		Cooldown:         p.cfg.SpawnCooldown,
		OnStateChange: func(name string, from, to resilience.State) {
			p.logger.Warn("Spawn breaker changed state",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// resolveShell returns the first candidate found on PATH.
func resolveShell(candidates ...string) (string, error) {
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w (tried %q)", ErrNoShell, candidates)
}

// resolveWorkingDir returns the first candidate that is an existing directory.
func resolveWorkingDir(candidates ...string) string {
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
	}
	return "/"
}
