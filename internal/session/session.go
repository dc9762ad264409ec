// Package session carries the authenticated identity through one client or request scope.
package session

import (
	"sync"

	"github.com/router-for-me/DiaryHub/internal/models"
)

// PersistFunc is called with the new session after every change; nil means logged out.
type PersistFunc func(*models.Session)

// Scope holds the current session of one client or request. A nil Scope is anonymous.
type Scope struct {
	mu      sync.RWMutex
	current *models.Session
	persist PersistFunc
}

// NewScope creates a scope starting from initial (nil for anonymous).
func NewScope(initial *models.Session, persist PersistFunc) *Scope {
	s := &Scope{persist: persist}
	if initial != nil {
		copied := *initial
		s.current = &copied
	}
	return s
}

// Anonymous returns a scope with no identity.
func Anonymous() *Scope { return NewScope(nil, nil) }

// Current returns a copy of the session, or nil when anonymous.
func (s *Scope) Current() *models.Session {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	copied := *s.current
	copied.Followers = models.CloneStrings(s.current.Followers)
	copied.Following = models.CloneStrings(s.current.Following)
	return &copied
}

// Authenticated reports whether the scope has an identity.
func (s *Scope) Authenticated() bool { return s.Current() != nil }

// UID returns the current uid or "".
func (s *Scope) UID() string {
	if cur := s.Current(); cur != nil {
		return cur.UID
	}
	return ""
}

// Username returns the current username or "".
func (s *Scope) Username() string {
	if cur := s.Current(); cur != nil {
		return cur.Username
	}
	return ""
}

// IsAdmin reports whether the current identity holds the admin capability.
func (s *Scope) IsAdmin() bool {
	if cur := s.Current(); cur != nil {
		return cur.IsAdmin
	}
	return false
}

// Set replaces the session.
func (s *Scope) Set(sess models.Session) {
	if s == nil {
		return
	}
	s.mu.Lock()
	copied := sess
	s.current = &copied
	persist := s.persist
	s.mu.Unlock()
	if persist != nil {
		persist(&copied)
	}
}

// Clear logs the scope out; clearing an anonymous scope is a no-op.
func (s *Scope) Clear() {
	if s == nil {
		return
	}
	s.mu.Lock()
	wasSet := s.current != nil
	s.current = nil
	persist := s.persist
	s.mu.Unlock()
	if wasSet && persist != nil {
		persist(nil)
	}
}
