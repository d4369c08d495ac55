// Package session keeps per-browser state: the tutor transcript and the API
// key the student typed in. Sessions live in memory only.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/isdmx/tutorbox/apperror"
	"github.com/isdmx/tutorbox/tutor"
)

// Session is a snapshot of one browser session.
type Session struct {
	ID         string
	APIKey     string
	Transcript tutor.Transcript
	CreatedAt  time.Time
	LastSeen   time.Time
}

// Store is an in-memory, concurrency-safe session registry.
type Store struct {
	mu           sync.Mutex
	sessions     map[string]*Session
	systemPrompt string
	ttl          time.Duration
	now          func() time.Time
}

// NewStore creates a Store whose new sessions start with systemPrompt and
// expire after ttl without activity.
func NewStore(systemPrompt string, ttl time.Duration) *Store {
	return &Store{
		sessions:     make(map[string]*Session),
		systemPrompt: systemPrompt,
		ttl:          ttl,
		now:          time.Now,
	}
}

// Create starts a new session.
func (s *Store) Create() Session {
	now := s.now()
	sess := &Session{
		ID:         uuid.NewString(),
		Transcript: tutor.NewTranscript(s.systemPrompt),
		CreatedAt:  now,
		LastSeen:   now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	return *sess
}

// Get returns the session and marks it as active.
func (s *Store) Get(id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookup(id)
	if err != nil {
		return Session{}, err
	}
	return *sess, nil
}

// SetAPIKey stores the key the student entered for this session.
func (s *Store) SetAPIKey(id, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookup(id)
	if err != nil {
		return err
	}
	sess.APIKey = key
	return nil
}

// SetTranscript replaces the session's transcript.
func (s *Store) SetTranscript(id string, transcript tutor.Transcript) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookup(id)
	if err != nil {
		return err
	}
	sess.Transcript = transcript
	return nil
}

// Reset clears the conversation but keeps the API key.
func (s *Store) Reset(id string) error {
	return s.SetTranscript(id, tutor.NewTranscript(s.systemPrompt))
}

// Delete removes a session. Deleting an unknown session is not an error.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Sweep evicts sessions idle for longer than the TTL and returns how many
// were removed.
func (s *Store) Sweep() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if sess.LastSeen.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// lookup must be called with mu held.
func (s *Store) lookup(id string) (*Session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, apperror.NotFound("session", id)
	}
	sess.LastSeen = s.now()
	return sess, nil
}
