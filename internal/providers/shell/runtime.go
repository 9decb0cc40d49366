package shell

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"

	"github.com/creack/pty"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/webterm/internal/domain/terminal"
	"github.com/GriffinCanCode/AgentOS/webterm/internal/infrastructure/resilience"
)

var _ terminal.Runtime = (*Runtime)(nil)

// Runtime spawns shell processes under a PTY.
type Runtime struct {
	shell      string
	workingDir string
	env        []string
	cols       int
	rows       int
	breaker    *resilience.Breaker
	logger     *zap.Logger
}

// Shell returns the resolved shell path.
func (r *Runtime) Shell() string { return r.shell }

// WorkingDir returns the directory new processes start in.
func (r *Runtime) WorkingDir() string { return r.workingDir }

// Spawn starts a shell bound to surface. An empty command starts an
// interactive shell; anything else runs as "<shell> -lc <command>".
// Output is streamed to surface until the process exits or a write fails.
// A size that does not fit a PTY window fails with ErrInvalidSize.
// Repeated start failures trip the spawn breaker, after which Spawn fails
// fast with resilience.ErrCircuitOpen until the cooldown passes.
func (r *Runtime) Spawn(ctx context.Context, surface terminal.Presentation, command string) (terminal.Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var args []string
	if command != "" {
		args = []string{"-lc", command}
	}

	cmd := exec.Command(r.shell, args...)
	cmd.Dir = r.workingDir
	cmd.Env = r.env

	cols, rows := surface.Size()
	if cols <= 0 || rows <= 0 {
		cols, rows = r.cols, r.rows
	}

	size, err := winsize(cols, rows)
	if err != nil {
		return nil, err
	}

	var ptmx *os.File
	err = r.breaker.Do(func() error {
		var err error
		ptmx, err = pty.StartWithSize(cmd, size)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start PTY: %w", err)
	}

	proc := newProcess(cmd, ptmx, surface, r.logger.With(
		zap.Int("pid", cmd.Process.Pid),
		zap.String("command", command),
	))
	proc.cols, proc.rows = cols, rows

	go proc.pump()
	go proc.wait()

	r.logger.Debug("Shell process started",
		zap.Int("pid", cmd.Process.Pid),
		zap.String("command", command),
		zap.Int("cols", cols),
		zap.Int("rows", rows),
	)

	return proc, nil
}

// buildEnv returns the host environment plus TERM and the extra variables,
// in a stable order.
func buildEnv(extra map[string]string) []string {
	env := os.Environ()
	env = append(env, "TERM=xterm-256color")

	keys := make([]string, 0, len(extra))
	for key := range extra {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		env = append(env, fmt.Sprintf("%s=%s", key, extra[key]))
	}
	return env
}
