package gateway

import (
	"errors"
	"fmt"
)

// Error kinds reported by the gateway. Match with errors.Is.
var (
	ErrNotFound     = errors.New("session not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTransport    = errors.New("transport failure")
)

// Error describes a failed gateway call
type Error struct {
	Op         string // "fetch", "persist", ...
	SessionID  string
	Kind       error // one of ErrNotFound, ErrUnauthorized, ErrTransport
	StatusCode int   // 0 when no response was received
	Err        error // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s session %s: %v", e.Op, e.SessionID, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the gateway error kind carried by err, or nil
func KindOf(err error) error {
	for _, kind := range []error{ErrNotFound, ErrUnauthorized, ErrTransport} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
