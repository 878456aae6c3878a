package client

import "sync"

// State holds the current access token. It lives in memory only and is never
// written to durable storage; a new process starts without one and recovers
// through the renewal path.
type State struct {
	mu     sync.RWMutex
	access string
}

// NewState returns an empty State.
func NewState() *State {
	return &State{}
}

// AccessToken returns the current access token, if any.
func (s *State) AccessToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access, s.access != ""
}

// SetAccess replaces the access token.
func (s *State) SetAccess(token string) {
	s.mu.Lock()
	s.access = token
	s.mu.Unlock()
}

// Clear drops the access token.
func (s *State) Clear() {
	s.SetAccess("")
}
