package web

import (
	"sync"
	"time"
)

// sessionIdleTimeout is how long the configuration session survives
// without a portal request before it expires on its own.
const sessionIdleTimeout = 4 * time.Minute

// session tracks whether a configuration session is open. The poll
// loop starts one when the monitor enters configuration mode and asks
// SessionActive every tick; any portal request refreshes the idle
// deadline.
type session struct {
	mu     sync.Mutex
	expiry time.Time
	now    func() time.Time
}

func newSession() *session {
	return &session{now: time.Now}
}

// Start opens (or re-opens) the session with a fresh idle deadline.
func (s *session) Start() {
	s.mu.Lock()
	s.expiry = s.now().Add(sessionIdleTimeout)
	s.mu.Unlock()
}

// Stop closes the session immediately.
func (s *session) Stop() {
	s.mu.Lock()
	s.expiry = time.Time{}
	s.mu.Unlock()
}

// Active reports whether the session is open and not idle-expired.
func (s *session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.expiry.IsZero() && s.now().Before(s.expiry)
}

// Touch pushes the idle deadline forward. No-op if the session is
// closed or already expired.
func (s *session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.expiry.IsZero() && s.now().Before(s.expiry) {
		s.expiry = s.now().Add(sessionIdleTimeout)
	}
}
