package encounter

import (
	"log/slog"
	"sync"
	"time"

	"github.com/quizmon/quizmon/internal/domain"
)

// DefaultSessionTTL is how long an encounter stays answerable.
const DefaultSessionTTL = 15 * time.Minute

// SessionStore holds the authoritative server-side copy of every in-flight
// encounter, including the hidden correct answers. It lives for the process
// lifetime only; expiry is a logical check at read time plus a periodic
// sweep, never a preemptive interrupt.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.EncounterSession
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*domain.EncounterSession)}
}

// Get returns the session for the id, or ErrSessionNotFound when the id is
// unknown or the session has expired. Expired entries are deleted on read.
func (s *SessionStore) Get(id string) (*domain.EncounterSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if sess.Expired(time.Now()) {
		delete(s.sessions, id)
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Set inserts or overwrites a session.
func (s *SessionStore) Set(sess *domain.EncounterSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
}

// Update overwrites an existing session and fails with ErrSessionMissing
// when no prior entry exists for the id.
func (s *SessionStore) Update(sess *domain.EncounterSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sess.ID]; !ok {
		return ErrSessionMissing
	}
	s.sessions[sess.ID] = sess
	return nil
}

// Delete removes a session. Deleting an absent id is a no-op.
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// PruneExpired removes all currently-expired sessions and returns how many
// were deleted. Called opportunistically after writes and by the sweeper.
func (s *SessionStore) PruneExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	pruned := 0
	for id, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, id)
			pruned++
		}
	}
	if pruned > 0 {
		slog.Debug("Pruned expired encounter sessions", "count", pruned)
	}
	return pruned
}

// Len reports the number of stored sessions, expired or not.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
