package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/xiaoyuanzhu-com/session-title/api"
	"github.com/xiaoyuanzhu-com/session-title/server"
)

// setupCLI points the global flags at a fresh store and ledger
func setupCLI(t *testing.T) *server.Server {
	t.Helper()

	srv, err := server.New(&server.Config{
		Env:          "development",
		DatabasePath: filepath.Join(t.TempDir(), "database.sqlite"),
		SecretKey:    "cli-secret",
	})
	if err != nil {
		t.Fatalf("server.New failed: %v", err)
	}
	api.SetupRoutes(srv.Router(), api.NewHandlers(srv))
	ts := httptest.NewServer(srv.Router())

	remoteURL = ts.URL + "/api"
	secretKey = "cli-secret"
	ledgerPath = filepath.Join(t.TempDir(), "ledger.sqlite")
	timeout = 5 * time.Second
	providedTitle = ""

	t.Cleanup(func() {
		ts.Close()
		srv.Shutdown(context.Background())
		remoteURL, secretKey, ledgerPath, providedTitle = "", "", "", ""
	})
	return srv
}

func newTestCmd() (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())
	return cmd, &out
}

func TestDeriveCmd(t *testing.T) {
	cmd, out := newTestCmd()

	if err := runDerive(cmd, []string{"How", "do", "I", "reverse", "a", "linked", "list", "in", "Python?"}); err != nil {
		t.Fatalf("runDerive failed: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "How do I reverse a linked list in Python?" {
		t.Errorf("unexpected output %q", got)
	}

	cmd, out = newTestCmd()
	runDerive(cmd, []string{"   "})
	if got := strings.TrimSpace(out.String()); got != "New Chat" {
		t.Errorf("expected placeholder, got %q", got)
	}
}

func TestFirstMessageRenameAndEdited(t *testing.T) {
	srv := setupCLI(t)
	if _, err := srv.DB().CreateChatSession("s1", "", ""); err != nil {
		t.Fatalf("create session: %v", err)
	}

	cmd, out := newTestCmd()
	if err := runFirstMessage(cmd, []string{"s1", "How do I reverse a linked list in Python?"}); err != nil {
		t.Fatalf("runFirstMessage failed: %v", err)
	}
	if !strings.Contains(out.String(), "title:    How do I reverse a linked list in Python?") ||
		!strings.Contains(out.String(), "source:   auto_generated") {
		t.Errorf("unexpected first-message output:\n%s", out.String())
	}

	cmd, out = newTestCmd()
	if err := runRename(cmd, []string{"s1", "Linked Lists"}); err != nil {
		t.Fatalf("runRename failed: %v", err)
	}
	if !strings.Contains(out.String(), "source:   manual") {
		t.Errorf("unexpected rename output:\n%s", out.String())
	}

	session, _ := srv.DB().GetChatSession("s1")
	if session.Description != "Linked Lists" {
		t.Errorf("store holds %q", session.Description)
	}

	cmd, out = newTestCmd()
	if err := runEdited(cmd, nil); err != nil {
		t.Fatalf("runEdited failed: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "s1" {
		t.Errorf("expected s1 in edited list, got %q", got)
	}

	// A stale provided title loses to the store for edited sessions
	providedTitle = "New Chat"
	cmd, out = newTestCmd()
	if err := runShow(cmd, []string{"s1"}); err != nil {
		t.Fatalf("runShow failed: %v", err)
	}
	if !strings.Contains(out.String(), "title:    Linked Lists") || !strings.Contains(out.String(), "source:   remote") {
		t.Errorf("unexpected show output:\n%s", out.String())
	}
}

func TestRenameUnknownSessionFails(t *testing.T) {
	setupCLI(t)

	cmd, _ := newTestCmd()
	err := runRename(cmd, []string{"ghost", "Anything"})
	if err == nil || !strings.Contains(err.Error(), "no longer exists") {
		t.Errorf("expected a user-visible failure, got %v", err)
	}
}
