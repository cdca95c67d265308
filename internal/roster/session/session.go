// Package session holds the identity a client is logged in as.
package session

import (
	"context"
	"sync"

	"github.com/aussiebroadwan/roster/internal/roster/domain"
)

// Identity is who is logged in and which of their roles they are acting as.
type Identity struct {
	Username   string
	ActiveRole domain.Role
}

// Session is owned by one client. The zero value is an empty session ready
// to use.
type Session struct {
	mu       sync.RWMutex
	identity Identity
	active   bool
}

func New() *Session { return &Session{} }

// Start records a login, replacing any identity already held.
func (s *Session) Start(username string, role domain.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identity = Identity{Username: username, ActiveRole: role}
	s.active = true
}

// Current returns the logged-in identity, or false when nobody is.
func (s *Session) Current() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.active {
		return Identity{}, false
	}
	return s.identity, true
}

// End logs out. Ending an empty session is a no-op.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identity = Identity{}
	s.active = false
}

type ctxKey struct{}

func WithContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session carried by ctx, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKey{}).(*Session)
	return s
}
