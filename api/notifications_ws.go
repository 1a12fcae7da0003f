package api

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/xiaoyuanzhu-com/session-title/log"
	"github.com/xiaoyuanzhu-com/session-title/notifications"
)

const wsWriteTimeout = 5 * time.Second

// NotificationWebSocket handles GET /api/notifications/ws. It carries the same
// events as the SSE stream, one JSON text message per event.
func (h *Handlers) NotificationWebSocket(c *gin.Context) {
	// Gin wraps the response writer; hijacking needs the original
	var w http.ResponseWriter = c.Writer
	if unwrapper, ok := c.Writer.(interface{ Unwrap() http.ResponseWriter }); ok {
		w = unwrapper.Unwrap()
	}

	log.MarkHijacked(c)
	conn, err := websocket.Accept(w, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // Auth is handled by the secret key middleware
	})
	if err != nil {
		notifLogger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Abort Gin context to prevent middleware from writing headers on hijacked connection
	c.Abort()

	events, unsubscribe := h.server.Notifications().Subscribe()
	defer unsubscribe()

	// CloseRead discards client messages and cancels ctx when the peer goes away
	ctx := conn.CloseRead(c.Request.Context())

	if err := writeEvent(ctx, conn, notifications.Event{
		Type:      notifications.EventConnected,
		Timestamp: time.Now().UnixMilli(),
	}); err != nil {
		return
	}

	notifLogger.Debug().Msg("client connected to notification websocket")

	pingTicker := time.NewTicker(heartbeatInterval)
	defer pingTicker.Stop()

	shutdown := h.server.ShutdownContext().Done()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			if err := writeEvent(ctx, conn, event); err != nil {
				if ctx.Err() == nil {
					notifLogger.Warn().Err(err).Msg("WebSocket write failed")
				}
				return
			}

		case <-pingTicker.C:
			if err := conn.Ping(ctx); err != nil {
				notifLogger.Debug().Err(err).Msg("WebSocket ping failed")
				return
			}

		case <-shutdown:
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return

		case <-ctx.Done():
			notifLogger.Debug().Msg("client disconnected from notification websocket")
			return
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, event notifications.Event) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, event)
}
