package push

import (
	"sync"
	"time"
)

// DefaultReadTimeout is the socket read timeout outside of IDLE.
const DefaultReadTimeout = 60 * time.Second

// idleStopper makes sure DONE is only sent while an IDLE command is running
// and has not completed yet.
type idleStopper struct {
	mu         sync.Mutex
	accepting  bool
	connection Connection
}

// BeginAccepting binds the connection that is currently idling.
func (s *idleStopper) BeginAccepting(conn Connection) {
	if conn == nil {
		panic("push: idle stopper needs a connection")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.accepting = true
	s.connection = conn
}

func (s *idleStopper) StopAccepting() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accepting = false
	s.connection = nil
}

// RequestStop sends DONE on the bound connection. It does nothing when no
// IDLE is running. A connection that fails to take DONE is closed.
func (s *idleStopper) RequestStop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.accepting {
		return
	}
	s.accepting = false

	conn := s.connection
	if err := conn.SetReadTimeout(DefaultReadTimeout); err != nil {
		_ = conn.Close()
		return
	}
	if err := conn.SendContinuation(ContinuationDone); err != nil {
		_ = conn.Close()
	}
}

func (s *idleStopper) Accepting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepting
}
