package db

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(Config{Path: filepath.Join(t.TempDir(), "nested", "test.sqlite")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestOpen_AppliesMigrations(t *testing.T) {
	d := openTestDB(t)

	version, err := d.CurrentVersion()
	if err != nil {
		t.Fatalf("current version: %v", err)
	}
	if version != 1 {
		t.Errorf("expected schema version 1, got %d", version)
	}
}

func TestOpen_ReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.sqlite")

	d, err := Open(Config{Path: path})
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := d.SetValue("k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}
	d.Close()

	d, err = Open(Config{Path: path})
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer d.Close()

	value, found, err := d.GetValue("k")
	if err != nil || !found || value != "v" {
		t.Errorf("expected persisted value v, got %q found=%v err=%v", value, found, err)
	}
}

func TestOpen_RequiresPath(t *testing.T) {
	if _, err := Open(Config{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestKV_GetSet(t *testing.T) {
	d := openTestDB(t)

	if _, found, err := d.GetValue("missing"); err != nil || found {
		t.Fatalf("expected missing key, found=%v err=%v", found, err)
	}

	if err := d.SetValue("a", "1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := d.SetValue("a", "2"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	value, found, err := d.GetValue("a")
	if err != nil || !found || value != "2" {
		t.Errorf("expected 2, got %q found=%v err=%v", value, found, err)
	}
}

func TestKV_ValuesWithPrefix(t *testing.T) {
	d := openTestDB(t)

	for key, value := range map[string]string{
		"title:a": "true",
		"title:b": "false",
		"other:c": "true",
	} {
		if err := d.SetValue(key, value); err != nil {
			t.Fatalf("set %s: %v", key, err)
		}
	}

	got, err := d.ValuesWithPrefix("title:")
	if err != nil {
		t.Fatalf("prefix: %v", err)
	}

	want := map[string]string{"title:a": "true", "title:b": "false"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("prefix mismatch (-want +got):\n%s", diff)
	}
}

func TestChatSessions_CreateGetList(t *testing.T) {
	d := openTestDB(t)

	if _, err := d.CreateChatSession("s1", "/tmp/a", "First"); err != nil {
		t.Fatalf("create s1: %v", err)
	}
	if _, err := d.CreateChatSession("s2", "/tmp/b", ""); err != nil {
		t.Fatalf("create s2: %v", err)
	}
	if _, err := d.AppendChatMessage("s2", RoleUser, "hello"); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := d.GetChatSession("s2")
	if err != nil || got == nil {
		t.Fatalf("get s2: %v %v", got, err)
	}
	want := ChatSession{ID: "s2", WorkingDir: "/tmp/b", MessageCount: 1}
	if diff := cmp.Diff(want, *got, cmpopts.IgnoreFields(ChatSession{}, "CreatedAt", "UpdatedAt")); diff != "" {
		t.Errorf("session mismatch (-want +got):\n%s", diff)
	}

	missing, err := d.GetChatSession("nope")
	if err != nil || missing != nil {
		t.Errorf("expected nil for missing session, got %v %v", missing, err)
	}

	list, err := d.ListChatSessions()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(list))
	}
}

func TestChatSessions_UpdateTitlePreservesMetadata(t *testing.T) {
	d := openTestDB(t)

	created, err := d.CreateChatSession("s1", "/work", "Original description")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	d.AppendChatMessage("s1", RoleUser, "Hello, this is a test message")
	d.AppendChatMessage("s1", RoleAssistant, "Hello! How can I help you today?")

	updated, err := d.UpdateChatSessionTitle("s1", "Updated description")
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if updated.Description != "Updated description" || !updated.IsTitleCustomized {
		t.Errorf("unexpected title state: %+v", updated)
	}
	if updated.WorkingDir != created.WorkingDir || updated.MessageCount != 2 || updated.CreatedAt != created.CreatedAt {
		t.Errorf("expected other metadata preserved, got %+v", updated)
	}
}

func TestChatSessions_UpdateTitleAcceptsEmptyAndLong(t *testing.T) {
	d := openTestDB(t)
	d.CreateChatSession("s1", "", "Original")

	for _, title := range []string{"", strings.Repeat("A", 1000)} {
		updated, err := d.UpdateChatSessionTitle("s1", title)
		if err != nil {
			t.Fatalf("update %d chars: %v", len(title), err)
		}
		if updated.Description != title {
			t.Errorf("expected description of %d chars, got %d", len(title), len(updated.Description))
		}
	}
}

func TestChatSessions_UpdateTitleNotFound(t *testing.T) {
	d := openTestDB(t)

	_, err := d.UpdateChatSessionTitle("nonexistent", "x")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestChatMessages_OrderAndMissingSession(t *testing.T) {
	d := openTestDB(t)
	d.CreateChatSession("s1", "", "")

	for _, content := range []string{"one", "two", "three"} {
		if _, err := d.AppendChatMessage("s1", RoleUser, content); err != nil {
			t.Fatalf("append %s: %v", content, err)
		}
	}

	msgs, err := d.ListChatMessages("s1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var contents []string
	for _, m := range msgs {
		contents = append(contents, m.Content)
	}
	if diff := cmp.Diff([]string{"one", "two", "three"}, contents); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	if _, err := d.AppendChatMessage("ghost", RoleUser, "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown session, got %v", err)
	}
}

func TestChatSessions_DeleteCascades(t *testing.T) {
	d := openTestDB(t)
	d.CreateChatSession("s1", "", "")
	d.AppendChatMessage("s1", RoleUser, "hi")

	if err := d.DeleteChatSession("s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	msgs, err := d.ListChatMessages("s1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("expected messages removed with session, got %d", len(msgs))
	}
	if err := d.DeleteChatSession("s1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestChatSessions_CreateDuplicate(t *testing.T) {
	d := openTestDB(t)

	if _, err := d.CreateChatSession("dup", "", ""); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if _, err := d.CreateChatSession("dup", "", ""); !errors.Is(err, ErrExists) {
		t.Errorf("expected ErrExists, got %v", err)
	}
}

func seedActivity(t *testing.T, d *DB) {
	t.Helper()
	at := func(s string) int64 {
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			t.Fatalf("parse %s: %v", s, err)
		}
		return ts.UnixMilli()
	}

	sessions := []struct {
		id, dir, description, updated string
	}{
		{"s1", "/a", "One", "2024-01-01T10:00:00Z"},
		{"s2", "/a", "Two", "2024-01-01T12:00:00Z"},
		{"s3", "/b", "Three", "2024-01-07T09:00:00Z"},
		{"s4", "/c", "", "2024-01-02T09:00:00Z"},
	}
	for _, s := range sessions {
		if _, err := d.CreateChatSession(s.id, s.dir, s.description); err != nil {
			t.Fatalf("create %s: %v", s.id, err)
		}
	}

	d.AppendChatMessage("s1", RoleUser, "start")
	d.AppendChatMessage("s1", RoleAssistant, "reply")
	d.AppendChatMessage("s3", RoleUser, "only")
	d.AppendChatMessage("s4", RoleUser, "untitled")

	d.Run(`UPDATE chat_messages SET created_at = ? WHERE session_id = 's1' AND content = 'start'`, at("2024-01-01T10:00:00Z"))
	d.Run(`UPDATE chat_messages SET created_at = ? WHERE session_id = 's1' AND content = 'reply'`, at("2024-01-01T10:30:00Z"))
	d.Run(`UPDATE chat_messages SET created_at = ? WHERE session_id = 's4'`, at("2024-01-02T09:00:00Z"))
	for _, s := range sessions {
		d.Run(`UPDATE chat_sessions SET updated_at = ? WHERE id = ?`, at(s.updated), s.id)
	}
}

func TestSessionInsights(t *testing.T) {
	d := openTestDB(t)
	seedActivity(t, d)

	got, err := d.GetSessionInsights()
	if err != nil {
		t.Fatalf("insights: %v", err)
	}

	want := &SessionInsights{
		TotalSessions:      3,
		MostActiveDirs:     []DirCount{{Dir: "/a", Count: 2}, {Dir: "/b", Count: 1}},
		AvgSessionDuration: 10,
		RecentActivity:     []DayCount{{Date: "2024-01-07", Count: 1}, {Date: "2024-01-01", Count: 2}},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("insights mismatch (-want +got):\n%s", diff)
	}
}

func TestSessionInsights_Empty(t *testing.T) {
	d := openTestDB(t)
	d.CreateChatSession("untitled", "/x", "")

	got, err := d.GetSessionInsights()
	if err != nil {
		t.Fatalf("insights: %v", err)
	}
	want := &SessionInsights{MostActiveDirs: []DirCount{}, RecentActivity: []DayCount{}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("insights mismatch (-want +got):\n%s", diff)
	}
}

func TestActivityHeatmap(t *testing.T) {
	d := openTestDB(t)
	seedActivity(t, d)

	got, err := d.GetActivityHeatmap()
	if err != nil {
		t.Fatalf("heatmap: %v", err)
	}

	// 2024-01-01 is the Monday of ISO week 1 and 2024-01-07 its Sunday
	want := []HeatmapCell{
		{Week: 0, Day: 0, Count: 1},
		{Week: 0, Day: 1, Count: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("heatmap mismatch (-want +got):\n%s", diff)
	}
}
