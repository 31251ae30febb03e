package source

import "sync"

// Session holds the cookie credential for the candidate source. Rotation
// happens outside the request path (operator action or a refresh job);
// readers only ever see a complete value.
type Session struct {
	mu     sync.RWMutex
	cookie string
}

// NewSession creates a session with an initial cookie value
func NewSession(cookie string) *Session {
	return &Session{cookie: cookie}
}

// Cookie returns the current session cookie
func (s *Session) Cookie() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cookie
}

// Rotate replaces the session cookie
func (s *Session) Rotate(cookie string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cookie = cookie
}
