package terminal

import (
	"bytes"
	"context"
	"errors"
	"sync"
)

type fakeSurface struct {
	mu   sync.Mutex
	buf  bytes.Buffer
	cols int
	rows int
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{cols: 80, rows: 24}
}

func (s *fakeSurface) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *fakeSurface) Size() (int, int) { return s.cols, s.rows }

func (s *fakeSurface) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

type resizeCall struct{ cols, rows int }

type fakeProcess struct {
	mu      sync.Mutex
	calls   []resizeCall
	command string
	err     error
}

func (p *fakeProcess) Resize(cols, rows int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, resizeCall{cols, rows})
	return p.err
}

func (p *fakeProcess) setErr(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func (p *fakeProcess) resizes() []resizeCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]resizeCall(nil), p.calls...)
}

// fakeRuntime spawns fakeProcesses, or fails with err when set. When gate is
// non-nil Spawn blocks until it is closed.
type fakeRuntime struct {
	mu       sync.Mutex
	err      error
	gate     chan struct{}
	entered  chan struct{}
	spawned  []*fakeProcess
	commands []string
}

func (r *fakeRuntime) Spawn(ctx context.Context, surface Presentation, command string) (Process, error) {
	if r.entered != nil {
		r.entered <- struct{}{}
	}
	if r.gate != nil {
		<-r.gate
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, command)
	if r.err != nil {
		return nil, r.err
	}
	p := &fakeProcess{command: command}
	r.spawned = append(r.spawned, p)
	return p, nil
}

func (r *fakeRuntime) Runtime(ctx context.Context) (Runtime, error) {
	return r, nil
}

func (r *fakeRuntime) lastCommand() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.commands) == 0 {
		return ""
	}
	return r.commands[len(r.commands)-1]
}

type failingProvider struct{ err error }

func (p failingProvider) Runtime(ctx context.Context) (Runtime, error) {
	return nil, p.err
}

var errBoom = errors.New("container refused to start")
