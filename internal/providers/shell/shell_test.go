package shell

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/webterm/internal/infrastructure/resilience"
)

type bufferSurface struct {
	mu   sync.Mutex
	buf  bytes.Buffer
	fail bool
	cols int
	rows int
}

func (s *bufferSurface) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return 0, errors.New("surface closed")
	}
	return s.buf.Write(p)
}

func (s *bufferSurface) Size() (int, int) {
	if s.cols == 0 && s.rows == 0 {
		return 100, 30
	}
	return s.cols, s.rows
}

func (s *bufferSurface) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func bootedRuntime(t *testing.T) *Runtime {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh on this host")
	}
	t.Setenv("SHELL", "/bin/sh")

	p := NewProvider(Config{WorkingDir: t.TempDir()}, zap.NewNop())
	rt, err := p.Runtime(context.Background())
	require.NoError(t, err)
	return rt.(*Runtime)
}

func spawn(t *testing.T, rt *Runtime, surface *bufferSurface, command string) *Process {
	t.Helper()
	proc, err := rt.Spawn(context.Background(), surface, command)
	if err != nil {
		t.Skipf("PTY unavailable: %v", err)
	}
	p := proc.(*Process)
	t.Cleanup(func() {
		p.Close()
		<-p.Done()
	})
	return p
}

func TestResolveShell(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh on this host")
	}

	path, err := resolveShell("", "/definitely/not/a/shell", "/bin/sh")
	require.NoError(t, err)
	assert.Equal(t, "/bin/sh", path)

	_, err = resolveShell("", "/definitely/not/a/shell")
	assert.ErrorIs(t, err, ErrNoShell)
}

func TestResolveWorkingDir(t *testing.T) {
	dir := t.TempDir()
	file := dir + "/file"
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	assert.Equal(t, dir, resolveWorkingDir("", "/definitely/missing", file, dir))
	assert.Equal(t, "/", resolveWorkingDir("/definitely/missing"))
}

func TestBuildEnv(t *testing.T) {
	env := buildEnv(map[string]string{"B": "2", "A": "1"})

	require.GreaterOrEqual(t, len(env), 3)
	tail := env[len(env)-3:]
	assert.Equal(t, []string{"TERM=xterm-256color", "A=1", "B=2"}, tail)
}

func TestProviderBootFailureReachesEveryCaller(t *testing.T) {
	t.Setenv("SHELL", "")
	p := NewProvider(Config{Shell: "/definitely/not/a/shell"}, zap.NewNop())

	for i := 0; i < 3; i++ {
		rt, err := p.Runtime(context.Background())
		assert.ErrorIs(t, err, ErrNoShell)
		assert.Nil(t, rt)
	}
}

func TestProviderFallsBackToConfiguredShell(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh on this host")
	}
	t.Setenv("SHELL", "/definitely/not/a/shell")
	dir := t.TempDir()

	p := NewProvider(Config{Shell: "/bin/sh", WorkingDir: dir}, zap.NewNop())
	p.Start()
	p.Start()

	rt, err := p.Runtime(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/bin/sh", rt.(*Runtime).Shell())
	assert.Equal(t, dir, rt.(*Runtime).WorkingDir())
}

func TestSpawnStreamsOutputToSurface(t *testing.T) {
	rt := bootedRuntime(t)
	surface := &bufferSurface{}

	proc := spawn(t, rt, surface, "echo hello-from-pty")

	select {
	case <-proc.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
	}

	assert.Contains(t, surface.String(), "hello-from-pty")
	assert.ErrorIs(t, proc.Resize(80, 24), ErrProcessExited)
	_, err := proc.Write([]byte("ls\n"))
	assert.ErrorIs(t, err, ErrProcessExited)
	assert.NoError(t, proc.Close())
}

func TestSpawnUsesSurfaceSizeAndResizes(t *testing.T) {
	rt := bootedRuntime(t)
	surface := &bufferSurface{}

	proc := spawn(t, rt, surface, "sleep 10")

	cols, rows := proc.Size()
	assert.Equal(t, 100, cols)
	assert.Equal(t, 30, rows)

	require.NoError(t, proc.Resize(132, 43))
	cols, rows = proc.Size()
	assert.Equal(t, 132, cols)
	assert.Equal(t, 43, rows)
	assert.Positive(t, proc.PID())
}

func TestResizeRejectsOversizedWindow(t *testing.T) {
	rt := bootedRuntime(t)
	proc := spawn(t, rt, &bufferSurface{}, "sleep 10")

	err := proc.Resize(65616, 24)
	assert.ErrorIs(t, err, ErrInvalidSize)

	cols, rows := proc.Size()
	assert.Equal(t, 100, cols)
	assert.Equal(t, 30, rows)

	ws, err := pty.GetsizeFull(proc.ptmx)
	require.NoError(t, err)
	assert.Equal(t, uint16(100), ws.Cols)
	assert.Equal(t, uint16(30), ws.Rows)
}

func TestSpawnRejectsOversizedSurface(t *testing.T) {
	rt := bootedRuntime(t)

	_, err := rt.Spawn(context.Background(), &bufferSurface{cols: 70000, rows: 24}, "")
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestWinsize(t *testing.T) {
	ws, err := winsize(math.MaxUint16, 1)
	require.NoError(t, err)
	assert.Equal(t, uint16(math.MaxUint16), ws.Cols)
	assert.Equal(t, uint16(1), ws.Rows)

	for _, size := range [][2]int{{0, 24}, {80, 0}, {math.MaxUint16 + 1, 24}, {80, 65616}} {
		_, err := winsize(size[0], size[1])
		assert.ErrorIs(t, err, ErrInvalidSize, "%v", size)
	}
}

func TestInteractiveInput(t *testing.T) {
	rt := bootedRuntime(t)
	surface := &bufferSurface{}

	proc := spawn(t, rt, surface, "")

	_, err := proc.Write([]byte("echo marker-$((40+2))\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return strings.Contains(surface.String(), "marker-42")
	}, 5*time.Second, 20*time.Millisecond)
}

func TestSurfaceFailureStopsProcess(t *testing.T) {
	rt := bootedRuntime(t)
	surface := &bufferSurface{fail: true}

	proc := spawn(t, rt, surface, "echo bye; sleep 30")

	select {
	case <-proc.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process kept running after its surface failed")
	}
	assert.Error(t, proc.Err())
}

func TestCloseKillsProcess(t *testing.T) {
	rt := bootedRuntime(t)
	proc := spawn(t, rt, &bufferSurface{}, "sleep 30")

	require.NoError(t, proc.Close())

	select {
	case <-proc.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit after Close")
	}
}

func TestSpawnHonorsCanceledContext(t *testing.T) {
	rt := bootedRuntime(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rt.Spawn(ctx, &bufferSurface{}, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSpawnFailuresTripBreaker(t *testing.T) {
	rt := &Runtime{
		shell:      "/definitely/not/a/shell",
		workingDir: t.TempDir(),
		cols:       80,
		rows:       24,
		breaker:    resilience.New("test", resilience.Settings{FailureThreshold: 2, Cooldown: time.Hour}),
		logger:     zap.NewNop(),
	}

	for i := 0; i < 2; i++ {
		_, err := rt.Spawn(context.Background(), &bufferSurface{}, "")
		require.Error(t, err)
		assert.NotErrorIs(t, err, resilience.ErrCircuitOpen)
	}

	_, err := rt.Spawn(context.Background(), &bufferSurface{}, "")
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
}
