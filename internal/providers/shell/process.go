package shell

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/creack/pty"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/webterm/internal/domain/terminal"
)

var _ terminal.Process = (*Process)(nil)

var (
	// ErrProcessExited is returned by operations on a process that has exited.
	ErrProcessExited = errors.New("shell process has exited")
	// ErrInvalidSize is returned for window sizes a PTY cannot represent.
	ErrInvalidSize = errors.New("invalid terminal size")
)

// drainTimeout bounds how long wait lets the pump flush output after exit.
const drainTimeout = 2 * time.Second

// Process is a shell running under a PTY.
type Process struct {
	cmd     *exec.Cmd
	ptmx    *os.File
	surface terminal.Presentation
	logger  *zap.Logger

	mu      sync.RWMutex
	cols    int   // Protected by mu
	rows    int   // Protected by mu
	closed  bool  // Protected by mu
	exitErr error // Protected by mu

	pumpDone chan struct{}
	done     chan struct{}
}

func newProcess(cmd *exec.Cmd, ptmx *os.File, surface terminal.Presentation, logger *zap.Logger) *Process {
	return &Process{
		cmd:      cmd,
		ptmx:     ptmx,
		surface:  surface,
		logger:   logger,
		pumpDone: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Resize changes the PTY window size.
func (p *Process) Resize(cols, rows int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrProcessExited
	}

	ws, err := winsize(cols, rows)
	if err != nil {
		return err
	}
	if err := pty.Setsize(p.ptmx, ws); err != nil {
		return fmt.Errorf("failed to resize PTY: %w", err)
	}
	p.cols, p.rows = cols, rows
	return nil
}

// Size returns the last applied window size.
func (p *Process) Size() (cols, rows int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cols, p.rows
}

// Write sends raw input to the shell.
func (p *Process) Write(input []byte) (int, error) {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()

	if closed {
		return 0, ErrProcessExited
	}
	return p.ptmx.Write(input)
}

// Close kills the shell. Closing an exited process is a no-op.
func (p *Process) Close() error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()

	if closed {
		return nil
	}
	p.kill()
	return nil
}

// PID returns the OS process id.
func (p *Process) PID() int {
	return p.cmd.Process.Pid
}

// Done is closed once the process has exited and its PTY is released.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Err returns the exit error after Done is closed.
func (p *Process) Err() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.exitErr
}

// winsize converts cols and rows to a PTY window size. Values that do not
// fit in a uint16 are rejected instead of wrapping.
func winsize(cols, rows int) (*pty.Winsize, error) {
	if cols <= 0 || rows <= 0 || cols > math.MaxUint16 || rows > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, cols, rows)
	}
	return &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)}, nil
}

func (p *Process) kill() {
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.logger.Warn("Failed to kill shell process", zap.Error(err))
	}
}

// pump copies PTY output to the surface. A failed write means nobody is
// watching anymore, so the shell is killed.
func (p *Process) pump() {
	defer close(p.pumpDone)

	buf := make([]byte, 4096)
	for {
		n, err := p.ptmx.Read(buf)
		if n > 0 {
			if _, werr := p.surface.Write(buf[:n]); werr != nil {
				p.logger.Debug("Terminal surface gone, stopping shell", zap.Error(werr))
				p.kill()
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				p.logger.Debug("PTY read ended", zap.Error(err))
			}
			return
		}
	}
}

// wait reaps the process, lets the pump drain, then releases the PTY.
func (p *Process) wait() {
	err := p.cmd.Wait()

	p.mu.Lock()
	p.closed = true
	p.exitErr = err
	p.mu.Unlock()

	select {
	case <-p.pumpDone:
	case <-time.After(drainTimeout):
	}

	p.ptmx.Close()
	close(p.done)

	p.logger.Debug("Shell process exited", zap.Error(err))
}
