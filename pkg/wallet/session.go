// Package wallet bridges unsigned transactions to an external signing wallet
// over a session-topic relay, correlating each request with its response.
package wallet

import "sync"

// Session is one settled wallet-connection session: the relay topic traffic is
// published to, the signing account, and the chains the wallet agreed to serve
// (CAIP-2 identifiers such as "eip155:137").
type Session struct {
	Topic   string
	Address string
	Chains  []string
}

// SupportsChain reports whether the wallet agreed to serve the given chain.
func (s Session) SupportsChain(caip string) bool {
	for _, c := range s.Chains {
		if c == caip {
			return true
		}
	}
	return false
}

// SessionStore tracks the active wallet session. Session establishment and
// teardown happen in the connection layer; the store only observes the result.
type SessionStore struct {
	mu     sync.RWMutex
	active *Session
}

// NewSessionStore creates an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{}
}

// Settle records a newly settled session, replacing any previous one.
func (s *SessionStore) Settle(sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = &sess
}

// Delete drops the active session.
func (s *SessionStore) Delete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = nil
}

// Active returns a copy of the active session, if any.
func (s *SessionStore) Active() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return Session{}, false
	}
	return *s.active, true
}

// Address returns the connected account address, or "" when disconnected.
func (s *SessionStore) Address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return ""
	}
	return s.active.Address
}
