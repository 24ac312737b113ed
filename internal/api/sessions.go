package api

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"appraisal/server/internal/engine"
)

var ErrSessionNotFound = errors.New("session not found")

// session is one report session. Its controller is only touched while mu is held.
type session struct {
	mu             sync.Mutex
	id             uuid.UUID
	organizationID string
	controller     *engine.Controller
	createdAt      time.Time
	// lastUsed is unix nanoseconds, read by the idle sweep without taking mu
	lastUsed atomic.Int64
}

func (s *session) touch(now time.Time) {
	s.lastUsed.Store(now.UnixNano())
}

// SessionStore keeps the live report sessions in memory
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*session
	now      func() time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[uuid.UUID]*session),
		now:      time.Now,
	}
}

func (s *SessionStore) add(organizationID string, controller *engine.Controller) *session {
	sess := &session{
		id:             uuid.New(),
		organizationID: organizationID,
		controller:     controller,
		createdAt:      s.now().UTC(),
	}
	sess.touch(sess.createdAt)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.id] = sess
	return sess
}

func (s *SessionStore) get(raw string) (*session, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.touch(s.now())
	return sess, nil
}

func (s *SessionStore) remove(raw string) error {
	id, err := uuid.Parse(raw)
	if err != nil {
		return ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Len returns the number of live sessions
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// ExpireIdle removes sessions not used since cutoff and returns their ids
func (s *SessionStore) ExpireIdle(cutoff time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []string
	for id, sess := range s.sessions {
		if time.Unix(0, sess.lastUsed.Load()).Before(cutoff) {
			delete(s.sessions, id)
			expired = append(expired, id.String())
		}
	}
	return expired
}
