// Package session implements the server-side session store. Browsers
// carry only an opaque session ID cookie; the bearer token and all
// per-user state stay in this store.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Keys under which well-known session values are stored.
const (
	KeyToken     = "token"
	KeyUser      = "user"
	KeyTenant    = "tenant"
	KeyDesign    = "design"
	KeyListState = "list_state"
	KeyFlash     = "flash"
)

// ErrNoSession is returned when a session ID is unknown or expired.
var ErrNoSession = fmt.Errorf("session not found")

type record struct {
	values   map[string]json.RawMessage
	lastSeen time.Time
}

// Store is an in-memory TTL session store keyed by opaque UUIDs.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*record
	ttl      time.Duration
	now      func() time.Time
}

// NewStore creates a store whose sessions expire after ttl of inactivity.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*record),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create allocates a fresh session and returns its ID.
func (s *Store) Create() string {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &record{
		values:   make(map[string]json.RawMessage),
		lastSeen: s.now(),
	}
	return id
}

// Set stores a JSON-encoded value under key. Unknown session IDs return
// ErrNoSession.
func (s *Store) Set(id, key string, v any) error {
	encoded, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode session value %s: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.live(id)
	if rec == nil {
		return ErrNoSession
	}
	rec.values[key] = encoded
	rec.lastSeen = s.now()
	return nil
}

// Get decodes the value under key into out. Missing keys leave out
// untouched and report found=false.
func (s *Store) Get(id, key string, out any) (bool, error) {
	s.mu.Lock()
	rec := s.live(id)
	if rec == nil {
		s.mu.Unlock()
		return false, ErrNoSession
	}
	encoded, ok := rec.values[key]
	rec.lastSeen = s.now()
	s.mu.Unlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(encoded, out); err != nil {
		return false, fmt.Errorf("decode session value %s: %w", key, err)
	}
	return true, nil
}

// Delete removes one key from the session, if present.
func (s *Store) Delete(id, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec := s.live(id); rec != nil {
		delete(rec.values, key)
	}
}

// Clear drops the whole session. Used on logout and on token expiry.
func (s *Store) Clear(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Exists reports whether the session ID refers to a live session.
func (s *Store) Exists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live(id) != nil
}

// live returns the record for id if it has not expired, expiring it
// otherwise. Caller holds the lock.
func (s *Store) live(id string) *record {
	rec, ok := s.sessions[id]
	if !ok {
		return nil
	}
	if s.now().Sub(rec.lastSeen) > s.ttl {
		delete(s.sessions, id)
		return nil
	}
	return rec
}

// Janitor evicts idle sessions until ctx is cancelled. Run it as a
// goroutine beside the server.
func (s *Store) Janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Store) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.ttl)
	for id, rec := range s.sessions {
		if rec.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
		}
	}
}
