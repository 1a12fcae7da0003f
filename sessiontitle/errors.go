package sessiontitle

import (
	"errors"

	"github.com/xiaoyuanzhu-com/session-title/gateway"
)

var (
	ErrEmptySessionID   = errors.New("session id is required")
	ErrNotBound         = errors.New("no session bound")
	ErrEmptyTitle       = errors.New("title is empty")
	ErrUpdateInProgress = errors.New("title update already in progress")
	ErrSessionChanged   = errors.New("session changed before update completed")
	ErrClosed           = errors.New("engine is shut down")
)

// PersistError is a failed manual save. Message is safe to show to users.
type PersistError struct {
	SessionID string
	Message   string
	Err       error
}

func (e *PersistError) Error() string {
	return e.Message + ": " + e.Err.Error()
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

func userMessage(err error) string {
	switch gateway.KindOf(err) {
	case gateway.ErrUnauthorized:
		return "Not authorized to rename this session"
	case gateway.ErrNotFound:
		return "This session no longer exists"
	default:
		return "Failed to update title. Please try again."
	}
}
