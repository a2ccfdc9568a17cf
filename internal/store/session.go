package store

import (
	"sync"

	"github.com/efreitasn/marketmatch/internal/domain"
)

// SessionStore keeps the clearing history of every instrument.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string][]*domain.Session // symbol → sessions (chronological)
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string][]*domain.Session),
	}
}

// Append records a finished session.
func (s *SessionStore) Append(session *domain.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.Symbol] = append(s.sessions[session.Symbol], session)
}

// ListBySymbol returns a page of the symbol's sessions, newest first, and
// the total number of sessions.
func (s *SessionStore) ListBySymbol(symbol string, page, limit int) ([]*domain.Session, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.sessions[symbol]
	reversed := make([]*domain.Session, len(all))
	for i, sess := range all {
		reversed[len(all)-1-i] = sess
	}
	return paginate(reversed, page, limit), len(all)
}

// Latest returns the most recent session of symbol, or nil.
func (s *SessionStore) Latest(symbol string) *domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.sessions[symbol]
	if len(all) == 0 {
		return nil
	}
	return all[len(all)-1]
}
