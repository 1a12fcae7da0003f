// Package identity tags each session binding with a token so results of
// asynchronous work started under an older binding can be recognised and
// dropped.
package identity

import (
	"sync"
)

// Token identifies one binding of a session. The zero Token is never current.
type Token struct {
	SessionID  string
	generation uint64
}

// Tracker holds the currently bound session. Every Bind and Release
// invalidates all previously issued tokens.
type Tracker struct {
	mu         sync.RWMutex
	generation uint64
	current    Token
	bound      bool
}

// NewTracker creates a tracker with nothing bound
func NewTracker() *Tracker {
	return &Tracker{}
}

// Bind makes sessionID the current session and returns its token.
// Binding the same id again still issues a fresh token.
func (t *Tracker) Bind(sessionID string) Token {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.generation++
	t.current = Token{SessionID: sessionID, generation: t.generation}
	t.bound = true
	return t.current
}

// Release unbinds the current session, invalidating every issued token
func (t *Tracker) Release() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.generation++
	t.current = Token{}
	t.bound = false
}

// IsCurrent reports whether tok belongs to the active binding
func (t *Tracker) IsCurrent(tok Token) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.bound && tok.generation != 0 && tok == t.current
}

// Current returns the active token, if any
func (t *Tracker) Current() (Token, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.current, t.bound
}
