package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/xiaoyuanzhu-com/session-title/gateway"
	"github.com/xiaoyuanzhu-com/session-title/notifications"
)

func TestNotificationWebSocket(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	header := http.Header{}
	header.Set(gateway.SecretKeyHeader, testSecret)
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/api/notifications/ws", &websocket.DialOptions{
		HTTPHeader: header,
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	var ev notifications.Event
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		t.Fatalf("read connected event: %v", err)
	}
	if ev.Type != notifications.EventConnected {
		t.Fatalf("expected connected event, got %+v", ev)
	}

	doRequest(t, srv, http.MethodPost, "/api/sessions", `{"id":"ws1"}`)

	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev.Type != notifications.EventSessionCreated || ev.SessionID != "ws1" {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestNotificationWebSocket_RequiresSecret(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/api/notifications/ws", nil)
	if err == nil {
		t.Fatal("expected dial to fail without secret")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 response, got %v", resp)
	}
}
