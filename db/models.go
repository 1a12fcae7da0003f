package db

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a mutation targets a row that does not exist
var ErrNotFound = errors.New("not found")

// ErrExists is returned when inserting a row whose key is already taken
var ErrExists = errors.New("already exists")

// ChatSession is the remote store's record of one conversation
type ChatSession struct {
	ID                string `json:"id"`
	Description       string `json:"description"`
	IsTitleCustomized bool   `json:"isTitleCustomized"`
	WorkingDir        string `json:"workingDir"`
	MessageCount      int    `json:"messageCount"`
	CreatedAt         int64  `json:"createdAt"`
	UpdatedAt         int64  `json:"updatedAt"`
}

// ChatMessage is a single message within a chat session
type ChatMessage struct {
	ID        int64  `json:"id"`
	SessionID string `json:"sessionId"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"createdAt"`
}

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// scanChatSession scans a row into a ChatSession
func scanChatSession(row interface{ Scan(...any) error }) (ChatSession, error) {
	var s ChatSession
	var customized int
	err := row.Scan(
		&s.ID, &s.Description, &customized, &s.WorkingDir,
		&s.MessageCount, &s.CreatedAt, &s.UpdatedAt,
	)
	s.IsTitleCustomized = customized == 1
	return s, err
}

// scanChatMessage scans a row into a ChatMessage
func scanChatMessage(row interface{ Scan(...any) error }) (ChatMessage, error) {
	var m ChatMessage
	err := row.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt)
	return m, err
}

// NowMs returns the current time as Unix milliseconds (int64)
func NowMs() int64 {
	return time.Now().UnixMilli()
}
