package handlers

import (
	"sync"
	"time"

	"github.com/MegaGrindStone/gemini-web-chat/internal/chat"
	"github.com/google/uuid"
)

// sessionStore keeps the page sessions in memory. A session exists from page load until it has been idle
// for longer than ttl; nothing survives a restart.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	ttl      time.Duration

	newSession func() *chat.Session
	now        func() time.Time
	// onEvict, when set, is called with the id of every swept session.
	onEvict func(id string)
}

type sessionEntry struct {
	session  *chat.Session
	lastSeen time.Time
}

func newSessionStore(ttl time.Duration, newSession func() *chat.Session) *sessionStore {
	return &sessionStore{
		sessions:   make(map[string]*sessionEntry),
		ttl:        ttl,
		newSession: newSession,
		now:        time.Now,
	}
}

func validSessionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// create starts a new page session and returns its id.
func (s *sessionStore) create() string {
	id := uuid.New().String()
	s.get(id)
	return id
}

// get returns the session with the given id, creating it when it does not exist (for example after a
// server restart while the page stayed open).
func (s *sessionStore) get(id string) *chat.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	e, ok := s.sessions[id]
	if !ok {
		e = &sessionEntry{session: s.newSession()}
		s.sessions[id] = e
	}
	e.lastSeen = now

	return e.session
}

func (s *sessionStore) lookup(id string) (*chat.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	return e.session, true
}

// touch marks a session as active, so a long pending reply does not get its session swept.
func (s *sessionStore) touch(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.sessions[id]; ok {
		e.lastSeen = s.now()
	}
}

// sweep drops idle sessions. Sessions waiting for a reply are kept. Callers hold s.mu.
func (s *sessionStore) sweep(now time.Time) {
	for id, e := range s.sessions {
		if now.Sub(e.lastSeen) > s.ttl && !e.session.Loading() {
			delete(s.sessions, id)
			if s.onEvict != nil {
				s.onEvict(id)
			}
		}
	}
}
