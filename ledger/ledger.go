// Package ledger records, durably and per session, whether a session's title
// was ever set explicitly by the user.
package ledger

import (
	"strconv"
	"strings"
	"sync"

	"github.com/xiaoyuanzhu-com/session-title/log"
)

// KeyPrefix namespaces ledger entries inside a shared key/value store
const KeyPrefix = "session_title_manually_edited:"

var logger = log.GetLogger("Ledger")

// Store is the durable key/value capability backing the ledger.
// *db.DB satisfies it.
type Store interface {
	GetValue(key string) (string, bool, error)
	SetValue(key, value string) error
}

// Ledger is a session-keyed boolean store. Reads degrade to false and
// writes are best-effort; neither ever reports an error to the caller.
type Ledger struct {
	store Store
}

// New creates a ledger over store
func New(store Store) *Ledger {
	return &Ledger{store: store}
}

// Key returns the namespaced store key for a session
func Key(sessionID string) string {
	return KeyPrefix + sessionID
}

// SessionID reverses Key. ok is false for keys outside the ledger namespace.
func SessionID(key string) (string, bool) {
	if !strings.HasPrefix(key, KeyPrefix) {
		return "", false
	}
	return strings.TrimPrefix(key, KeyPrefix), true
}

// Get reports whether the session was manually titled. Absent entries and
// read failures both read as false.
func (l *Ledger) Get(sessionID string) bool {
	value, found, err := l.store.GetValue(Key(sessionID))
	if err != nil {
		logger.Warn().Err(err).Str("sessionId", sessionID).Msg("ledger read failed, assuming not manually edited")
		return false
	}
	if !found {
		return false
	}

	edited, err := strconv.ParseBool(value)
	if err != nil {
		logger.Warn().Str("sessionId", sessionID).Str("value", value).Msg("ignoring malformed ledger entry")
		return false
	}
	return edited
}

// Set records the flag for a session. A failed write is logged and dropped.
func (l *Ledger) Set(sessionID string, edited bool) {
	if err := l.store.SetValue(Key(sessionID), strconv.FormatBool(edited)); err != nil {
		logger.Warn().Err(err).Str("sessionId", sessionID).Bool("edited", edited).Msg("ledger write failed")
	}
}

// MemoryStore is an in-process Store
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) GetValue(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	return value, ok, nil
}

func (m *MemoryStore) SetValue(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}
