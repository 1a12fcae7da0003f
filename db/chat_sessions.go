package db

import (
	"database/sql"
	"errors"

	"github.com/mattn/go-sqlite3"
)

const chatSessionColumns = `
	s.id, s.description, s.is_title_customized, s.working_dir,
	(SELECT COUNT(*) FROM chat_messages m WHERE m.session_id = s.id),
	s.created_at, s.updated_at`

// CreateChatSession inserts a new chat session
func (d *DB) CreateChatSession(id, workingDir, description string) (*ChatSession, error) {
	now := NowMs()
	_, err := d.Run(`
		INSERT INTO chat_sessions (id, description, is_title_customized, working_dir, created_at, updated_at)
		VALUES (?, ?, 0, ?, ?, ?)
	`, id, description, workingDir, now, now)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return nil, ErrExists
		}
		return nil, err
	}

	return &ChatSession{
		ID:          id,
		Description: description,
		WorkingDir:  workingDir,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// GetChatSession retrieves a chat session by ID, returns nil if not found
func (d *DB) GetChatSession(id string) (*ChatSession, error) {
	return SelectOne(d,
		`SELECT `+chatSessionColumns+` FROM chat_sessions s WHERE s.id = ?`,
		[]QueryParam{id},
		func(row *sql.Row) (ChatSession, error) {
			return scanChatSession(row)
		},
	)
}

// ListChatSessions returns all chat sessions, most recently updated first
func (d *DB) ListChatSessions() ([]ChatSession, error) {
	return Select(d,
		`SELECT `+chatSessionColumns+` FROM chat_sessions s ORDER BY s.updated_at DESC, s.id`,
		nil,
		func(rows *sql.Rows) (ChatSession, error) {
			return scanChatSession(rows)
		},
	)
}

// UpdateChatSessionTitle sets the description and marks the title as customized.
// Every other column is left untouched. Returns ErrNotFound for unknown sessions.
func (d *DB) UpdateChatSessionTitle(id, title string) (*ChatSession, error) {
	result, err := d.Run(`
		UPDATE chat_sessions
		SET description = ?, is_title_customized = 1, updated_at = ?
		WHERE id = ?
	`, title, NowMs(), id)
	if err != nil {
		return nil, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	return d.GetChatSession(id)
}

// DeleteChatSession removes a session and, through the foreign key, its messages
func (d *DB) DeleteChatSession(id string) error {
	result, err := d.Run(`DELETE FROM chat_sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendChatMessage adds a message to a session and bumps the session's updated_at
func (d *DB) AppendChatMessage(sessionID, role, content string) (*ChatMessage, error) {
	var msg *ChatMessage
	err := d.Transaction(func(tx *sql.Tx) error {
		now := NowMs()
		result, err := tx.Exec(`UPDATE chat_sessions SET updated_at = ? WHERE id = ?`, now, sessionID)
		if err != nil {
			return err
		}
		if affected, _ := result.RowsAffected(); affected == 0 {
			return ErrNotFound
		}

		result, err = tx.Exec(`
			INSERT INTO chat_messages (session_id, role, content, created_at)
			VALUES (?, ?, ?, ?)
		`, sessionID, role, content, now)
		if err != nil {
			return err
		}

		id, err := result.LastInsertId()
		if err != nil {
			return err
		}

		msg = &ChatMessage{ID: id, SessionID: sessionID, Role: role, Content: content, CreatedAt: now}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// ListChatMessages returns a session's messages in insertion order
func (d *DB) ListChatMessages(sessionID string) ([]ChatMessage, error) {
	return Select(d,
		`SELECT id, session_id, role, content, created_at
		 FROM chat_messages WHERE session_id = ? ORDER BY id`,
		[]QueryParam{sessionID},
		func(rows *sql.Rows) (ChatMessage, error) {
			return scanChatMessage(rows)
		},
	)
}
