package session

import (
	"sync"

	"github.com/udara94/interpret-academy-client/internal/domain"
)

// Store is the sole mutable holder of the current session token. It performs
// no validity judgement; the Manager consults and updates it.
type Store struct {
	mu    sync.RWMutex
	token *domain.Token
}

// NewStore creates an empty token store.
func NewStore() *Store {
	return &Store{}
}

// Get returns the current token, or false when no token is held.
func (s *Store) Get() (domain.Token, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == nil {
		return domain.Token{}, false
	}
	return *s.token, true
}

// Set replaces the token atomically. Concurrent readers observe either the
// previous token or the new one, never a partial write.
func (s *Store) Set(tok domain.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = &tok
}

// Clear removes the token. Idempotent.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = nil
}
