package session

import (
	"sync"
	"time"
)

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the time source used for activity stamps and expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store is the process-wide mapping from user ID to session state.
// Every mutation goes through one mutex, so sweeps never interleave with a
// handler's merge on the same entry.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	now      func() time.Time
}

// NewStore constructs an empty in-memory store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		sessions: make(map[int64]*Session),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns a copy of the user's session. The boolean is false when none exists.
func (s *Store) Get(userID int64) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return Session{}, false
	}
	return sess.clone(), true
}

// Set merges patch into the user's session, creating it when absent, and
// stamps LastActivity. A nil patch deletes the session. Patches that would
// leave the session in an invalid state are rejected and Set reports false.
func (s *Store) Set(userID int64, patch *Patch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setLocked(userID, patch)
}

func (s *Store) setLocked(userID int64, patch *Patch) bool {
	if patch == nil {
		delete(s.sessions, userID)
		return true
	}
	current, ok := s.sessions[userID]
	next := Session{}
	if ok {
		next = current.clone()
	}
	patch.apply(&next)
	if !next.Valid() {
		return false
	}
	next.LastActivity = s.now()
	s.sessions[userID] = &next
	return true
}

// Delete removes the user's session.
func (s *Store) Delete(userID int64) {
	s.Set(userID, nil)
}

// Reset replaces any existing session with an empty one.
func (s *Store) Reset(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(userID, nil)
	s.setLocked(userID, &Patch{})
}

// Touch refreshes the activity stamp without changing any field.
func (s *Store) Touch(userID int64) {
	s.Set(userID, &Patch{})
}

// SelectChain focuses chain, clears any pending input and, when target is
// non-nil, makes it the editable message.
func (s *Store) SelectChain(userID int64, chain string, target *MessageRef) {
	none := PendingNone
	shown := ""
	s.Set(userID, &Patch{
		Chain:   &chain,
		Target:  target,
		Shown:   &shown,
		Pending: &none,
	})
}

// Track records ref as the editable message and the text it currently shows.
func (s *Store) Track(userID int64, ref MessageRef, shown string) {
	s.Set(userID, &Patch{Target: &ref, Shown: &shown})
}

// AwaitPoolID switches the session to expect a pool identifier.
func (s *Store) AwaitPoolID(userID int64) error {
	pending := PendingPoolID
	if !s.Set(userID, &Patch{Pending: &pending}) {
		return ErrNoChain
	}
	return nil
}

// ClearPending returns the session to plain command parsing.
func (s *Store) ClearPending(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[userID]; !ok {
		return
	}
	none := PendingNone
	s.setLocked(userID, &Patch{Pending: &none})
}

// Pending reports whether the user has a pending structured input.
func (s *Store) Pending(userID int64) PendingInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userID]; ok {
		return sess.Pending
	}
	return PendingNone
}

// SweepIdle deletes every session whose last activity is older than maxAge
// and returns how many were removed.
func (s *Store) SweepIdle(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-maxAge)
	removed := 0
	for id, sess := range s.sessions {
		if sess.LastActivity.Before(cutoff) {
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
