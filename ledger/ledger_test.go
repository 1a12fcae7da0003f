package ledger

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/xiaoyuanzhu-com/session-title/db"
)

type failingStore struct {
	getErr error
	setErr error
	sets   int
}

func (f *failingStore) GetValue(key string) (string, bool, error) {
	return "", false, f.getErr
}

func (f *failingStore) SetValue(key, value string) error {
	f.sets++
	return f.setErr
}

func TestLedger_DefaultsToFalse(t *testing.T) {
	l := New(NewMemoryStore())

	if l.Get("never-seen") {
		t.Error("expected absent entry to read as false")
	}
}

func TestLedger_SetThenGet(t *testing.T) {
	store := NewMemoryStore()
	l := New(store)

	l.Set("s1", true)
	if !l.Get("s1") {
		t.Error("expected s1 to be manually edited")
	}
	if l.Get("s2") {
		t.Error("expected other sessions unaffected")
	}

	value, found, _ := store.GetValue("session_title_manually_edited:s1")
	if !found || value != "true" {
		t.Errorf("expected namespaced key with value true, got %q found=%v", value, found)
	}
}

func TestLedger_ReadFailureDegradesToFalse(t *testing.T) {
	l := New(&failingStore{getErr: errors.New("disk on fire")})

	if l.Get("s1") {
		t.Error("expected read failure to degrade to false")
	}
}

func TestLedger_WriteFailureIsSwallowed(t *testing.T) {
	store := &failingStore{setErr: errors.New("read-only")}
	l := New(store)

	// Must not panic or surface anything
	l.Set("s1", true)

	if store.sets != 1 {
		t.Errorf("expected exactly one write attempt, got %d", store.sets)
	}
}

func TestLedger_MalformedValueReadsFalse(t *testing.T) {
	store := NewMemoryStore()
	store.SetValue(Key("s1"), "maybe")

	if New(store).Get("s1") {
		t.Error("expected malformed value to read as false")
	}
}

func TestSessionID_RoundTrip(t *testing.T) {
	id, ok := SessionID(Key("abc-123"))
	if !ok || id != "abc-123" {
		t.Errorf("expected abc-123, got %q ok=%v", id, ok)
	}
	if _, ok := SessionID("other:abc"); ok {
		t.Error("expected foreign key to be rejected")
	}
}

func TestLedger_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.sqlite")

	d, err := db.Open(db.Config{Path: path})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	New(d).Set("s1", true)
	d.Close()

	d, err = db.Open(db.Config{Path: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer d.Close()

	if !New(d).Get("s1") {
		t.Error("expected manual-edit flag to survive a restart")
	}
}
