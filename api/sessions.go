package api

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xiaoyuanzhu-com/session-title/db"
	"github.com/xiaoyuanzhu-com/session-title/log"
)

var sessionsLogger = log.GetLogger("ApiSessions")

// SessionDetail is the body of GET /api/sessions/:id
type SessionDetail struct {
	SessionID string           `json:"sessionId"`
	Metadata  *db.ChatSession  `json:"metadata"`
	Messages  []db.ChatMessage `json:"messages"`
}

// TitleUpdateResult is the body of PUT /api/sessions/:id/title
type TitleUpdateResult struct {
	Success  bool            `json:"success"`
	Metadata *db.ChatSession `json:"metadata"`
}

// ListSessions handles GET /api/sessions
func (h *Handlers) ListSessions(c *gin.Context) {
	sessions, err := h.server.DB().ListChatSessions()
	if err != nil {
		sessionsLogger.Error().Err(err).Msg("failed to list sessions")
		RespondInternalError(c, "Failed to list sessions")
		return
	}
	RespondList(c, sessions)
}

// CreateSession handles POST /api/sessions
func (h *Handlers) CreateSession(c *gin.Context) {
	var body struct {
		ID          string `json:"id"`
		WorkingDir  string `json:"workingDir"`
		Description string `json:"description"`
	}
	// An empty body creates a session with defaults
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		RespondBadRequest(c, "Invalid request body")
		return
	}

	id := strings.TrimSpace(body.ID)
	if id == "" {
		id = uuid.NewString()
	}

	session, err := h.server.DB().CreateChatSession(id, body.WorkingDir, body.Description)
	if errors.Is(err, db.ErrExists) {
		RespondConflict(c, "Session already exists")
		return
	}
	if err != nil {
		sessionsLogger.Error().Err(err).Str("sessionId", id).Msg("failed to create session")
		RespondInternalError(c, "Failed to create session")
		return
	}

	h.server.Notifications().NotifySessionCreated(id)
	RespondCreated(c, session, "/api/sessions/"+id)
}

// GetSession handles GET /api/sessions/:id
func (h *Handlers) GetSession(c *gin.Context) {
	id := c.Param("id")

	session, err := h.server.DB().GetChatSession(id)
	if err != nil {
		sessionsLogger.Error().Err(err).Str("sessionId", id).Msg("failed to get session")
		RespondInternalError(c, "Failed to get session")
		return
	}
	if session == nil {
		RespondNotFound(c, "Session not found")
		return
	}

	messages, err := h.server.DB().ListChatMessages(id)
	if err != nil {
		sessionsLogger.Error().Err(err).Str("sessionId", id).Msg("failed to list messages")
		RespondInternalError(c, "Failed to get session")
		return
	}
	if messages == nil {
		messages = []db.ChatMessage{}
	}

	RespondData(c, SessionDetail{SessionID: id, Metadata: session, Messages: messages})
}

// DeleteSession handles DELETE /api/sessions/:id
func (h *Handlers) DeleteSession(c *gin.Context) {
	id := c.Param("id")

	err := h.server.DB().DeleteChatSession(id)
	if errors.Is(err, db.ErrNotFound) {
		RespondNotFound(c, "Session not found")
		return
	}
	if err != nil {
		sessionsLogger.Error().Err(err).Str("sessionId", id).Msg("failed to delete session")
		RespondInternalError(c, "Failed to delete session")
		return
	}
	RespondNoContent(c)
}

// AppendMessage handles POST /api/sessions/:id/messages
func (h *Handlers) AppendMessage(c *gin.Context) {
	id := c.Param("id")

	var body struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondBadRequest(c, "Invalid request body")
		return
	}
	if body.Role != db.RoleUser && body.Role != db.RoleAssistant {
		RespondValidationError(c, "Invalid message", []ErrorDetail{
			{Field: "role", Message: "must be user or assistant"},
		})
		return
	}

	msg, err := h.server.DB().AppendChatMessage(id, body.Role, body.Content)
	if errors.Is(err, db.ErrNotFound) {
		RespondNotFound(c, "Session not found")
		return
	}
	if err != nil {
		sessionsLogger.Error().Err(err).Str("sessionId", id).Msg("failed to append message")
		RespondInternalError(c, "Failed to append message")
		return
	}

	count := 0
	if session, err := h.server.DB().GetChatSession(id); err == nil && session != nil {
		count = session.MessageCount
	}
	h.server.Notifications().NotifySessionMessageAdded(id, body.Role, count)

	RespondCreated(c, msg, "")
}

// UpdateSessionTitle handles PUT /api/sessions/:id/title.
// The title is stored as given; empty and long titles are accepted.
func (h *Handlers) UpdateSessionTitle(c *gin.Context) {
	id := c.Param("id")

	var body struct {
		Title *string `json:"title"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			RespondUnprocessable(c, "Invalid title", []ErrorDetail{
				{Field: "title", Message: "must be a string"},
			})
			return
		}
		RespondBadRequest(c, "Invalid request body")
		return
	}
	if body.Title == nil {
		RespondUnprocessable(c, "Invalid title", []ErrorDetail{
			{Field: "title", Message: "is required"},
		})
		return
	}

	session, err := h.server.DB().UpdateChatSessionTitle(id, *body.Title)
	if errors.Is(err, db.ErrNotFound) {
		RespondNotFound(c, "Session not found")
		return
	}
	if err != nil {
		sessionsLogger.Error().Err(err).Str("sessionId", id).Msg("failed to update session title")
		RespondInternalError(c, "Failed to update title")
		return
	}

	sessionsLogger.Info().Str("sessionId", id).Str("title", session.Description).Msg("session title updated")
	h.server.Notifications().NotifySessionTitleUpdated(id, session.Description, session.IsTitleCustomized)

	RespondData(c, TitleUpdateResult{Success: true, Metadata: session})
}
