package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrSurfaceClosed is returned by writes after the connection went away.
var ErrSurfaceClosed = errors.New("terminal connection closed")

const writeTimeout = 10 * time.Second

// Surface presents a terminal over a websocket connection. Process output is
// sent as binary frames and control messages as JSON text frames. gorilla
// connections allow one concurrent writer, so every write goes through mu.
type Surface struct {
	conn *websocket.Conn

	mu     sync.Mutex
	cols   int  // Protected by mu
	rows   int  // Protected by mu
	closed bool // Protected by mu
}

func newSurface(conn *websocket.Conn, cols, rows int) *Surface {
	return &Surface{conn: conn, cols: cols, rows: rows}
}

// Write sends p to the browser as one binary frame.
func (s *Surface) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrSurfaceClosed
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		s.closed = true
		return 0, err
	}
	return len(p), nil
}

// Size reports the last dimensions announced by the browser. Zero means
// unknown and lets the runtime pick its default.
func (s *Surface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cols, s.rows
}

func (s *Surface) setSize(cols, rows int) {
	s.mu.Lock()
	s.cols, s.rows = cols, rows
	s.mu.Unlock()
}

func (s *Surface) sendJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSurfaceClosed
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteJSON(v); err != nil {
		s.closed = true
		return err
	}
	return nil
}

// Close marks the surface dead and closes the connection. Later writes fail,
// which stops the process pumping output into it.
func (s *Surface) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.conn.Close()
}
