// Package sessiontitle resolves the title of the bound chat session from a
// provided value, the remote store, the first user message and manual
// edits, discarding asynchronous results that belong to an older binding.
package sessiontitle

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/xiaoyuanzhu-com/session-title/gateway"
	"github.com/xiaoyuanzhu-com/session-title/identity"
	"github.com/xiaoyuanzhu-com/session-title/log"
	"github.com/xiaoyuanzhu-com/session-title/title"
)

var logger = log.GetLogger("SessionTitle")

const (
	defaultFetchTimeout   = 10 * time.Second
	defaultPersistTimeout = 15 * time.Second

	subscriberBuffer = 16
)

// Gateway reads and writes titles in the remote store
type Gateway interface {
	FetchMetadata(ctx context.Context, sessionID string) (gateway.Metadata, error)
	PersistTitle(ctx context.Context, sessionID, title string) error
}

// Ledger records which sessions were ever titled by hand. Get never fails
// and Set is best-effort.
type Ledger interface {
	Get(sessionID string) bool
	Set(sessionID string, edited bool)
}

// Option configures an Engine
type Option func(*Engine)

// WithFetchTimeout bounds each remote metadata read
func WithFetchTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.fetchTimeout = d
		}
	}
}

// WithPersistTimeout bounds each title write
func WithPersistTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.persistTimeout = d
		}
	}
}

// Engine owns the title state of one bound session at a time.
// All methods are safe for concurrent use.
type Engine struct {
	gateway        Gateway
	ledger         Ledger
	tracker        *identity.Tracker
	fetchTimeout   time.Duration
	persistTimeout time.Duration

	mu            sync.Mutex
	state         State
	bound         bool
	closed        bool
	autoAttempted bool
	messages      []Message
	ctx           context.Context
	cancel        context.CancelFunc

	subsMu      sync.Mutex
	subscribers map[int]chan State
	nextSubID   int

	wg sync.WaitGroup
}

// New creates an engine with nothing bound
func New(gw Gateway, l Ledger, opts ...Option) *Engine {
	e := &Engine{
		gateway:        gw,
		ledger:         l,
		tracker:        identity.NewTracker(),
		fetchTimeout:   defaultFetchTimeout,
		persistTimeout: defaultPersistTimeout,
		state:          State{Source: SourceNone},
		subscribers:    make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Bind switches the engine to sessionID. Anything still in flight for the
// previous binding is cancelled and its result will be dropped.
// providedTitle is an optional title already known to the caller.
func (e *Engine) Bind(sessionID, providedTitle string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return ErrEmptySessionID
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if e.cancel != nil {
		e.cancel()
	}

	tok := e.tracker.Bind(sessionID)
	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.bound = true
	e.autoAttempted = false
	e.messages = nil

	edited := e.ledger.Get(sessionID)
	e.state = State{
		SessionID:      sessionID,
		Source:         SourceNone,
		ManuallyEdited: edited,
	}

	// A provided title paints immediately unless the session was edited by
	// hand, in which case the remote store holds the current value.
	provided := strings.TrimSpace(providedTitle)
	if provided != "" && !edited {
		e.state.Title = provided
		e.state.Source = SourceProvided
		e.state.Stabilized = true
	}

	if e.state.Source != SourceProvided {
		e.state.Reconciling = true
		e.wg.Add(1)
		go e.reconcile(e.ctx, tok)
	}

	logger.Debug().
		Str("sessionId", sessionID).
		Bool("manuallyEdited", edited).
		Str("source", string(e.state.Source)).
		Msg("session bound")

	e.publishLocked()
	return nil
}

// reconcile reads the persisted title once per binding
func (e *Engine) reconcile(ctx context.Context, tok identity.Token) {
	defer e.wg.Done()

	fetchCtx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
	meta, err := e.gateway.FetchMetadata(fetchCtx, tok.SessionID)
	cancel()

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.tracker.IsCurrent(tok) {
		logger.Debug().Str("sessionId", tok.SessionID).Msg("discarding stale metadata fetch")
		return
	}

	e.state.Reconciling = false
	if err != nil {
		logger.Warn().Err(err).Str("sessionId", tok.SessionID).Msg("failed to fetch session metadata")
	} else {
		e.applyRemoteLocked(meta.Description)
	}

	e.maybeAutoGenerateLocked()
	e.publishLocked()
}

func (e *Engine) applyRemoteLocked(description string) {
	if e.state.Source == SourceManual {
		// A manual save in this binding is newer than anything we read
		return
	}
	if description == "" {
		return
	}
	if e.state.Stabilized && !e.state.ManuallyEdited {
		return
	}

	e.state.Title = description
	e.state.Source = SourceRemote
	e.state.Stabilized = true
}

// SetMessages records the live message list of the bound session
func (e *Engine) SetMessages(messages []Message) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.bound {
		return
	}

	e.messages = append(e.messages[:0:0], messages...)
	if e.maybeAutoGenerateLocked() {
		e.publishLocked()
	}
}

// maybeAutoGenerateLocked starts the one auto-generation attempt of this
// binding when the session holds exactly one user message and no title.
// The write holds Updating like a manual save, so the two never overlap.
func (e *Engine) maybeAutoGenerateLocked() bool {
	s := e.state
	switch {
	case !e.bound, e.autoAttempted:
		return false
	case s.Reconciling, s.Stabilized, s.Updating, s.AutoGenerating:
		return false
	case s.Source != SourceNone, s.ManuallyEdited:
		return false
	case len(e.messages) != 1 || e.messages[0].Role != RoleUser:
		return false
	}

	candidate := title.Derive(e.messages[0].Content)
	if candidate == "" {
		return false
	}

	tok, _ := e.tracker.Current()
	e.autoAttempted = true
	e.state.Updating = true
	e.state.AutoGenerating = true
	e.wg.Add(1)
	go e.autoGenerate(e.ctx, tok, candidate)
	return true
}

func (e *Engine) autoGenerate(ctx context.Context, tok identity.Token, candidate string) {
	defer e.wg.Done()

	persistCtx, cancel := context.WithTimeout(ctx, e.persistTimeout)
	err := e.gateway.PersistTitle(persistCtx, tok.SessionID, candidate)
	cancel()

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.tracker.IsCurrent(tok) {
		logger.Debug().Str("sessionId", tok.SessionID).Msg("discarding stale auto-generated title")
		return
	}

	e.state.Updating = false
	e.state.AutoGenerating = false
	defer e.publishLocked()

	if err != nil {
		logger.Warn().Err(err).Str("sessionId", tok.SessionID).Msg("failed to persist auto-generated title")
		return
	}

	// A manual edit may have landed while the write was in flight
	if e.state.ManuallyEdited || e.state.Source == SourceManual || e.state.Stabilized || e.ledger.Get(tok.SessionID) {
		logger.Debug().Str("sessionId", tok.SessionID).Msg("auto-generated title superseded")
		return
	}

	e.state.Title = candidate
	e.state.Source = SourceAutoGenerated
	e.state.Stabilized = true

	logger.Info().Str("sessionId", tok.SessionID).Str("title", candidate).Msg("auto-generated session title")
}

// UpdateTitle saves a title entered by the user. It blocks until the remote
// write completes. Only one write, manual or auto-generated, may be
// outstanding at a time. Confirming a title that was not set by hand still
// persists it so the session is recorded as manually edited.
func (e *Engine) UpdateTitle(ctx context.Context, newTitle string) error {
	trimmed := strings.TrimSpace(newTitle)

	e.mu.Lock()
	if !e.bound {
		e.mu.Unlock()
		return ErrNotBound
	}
	if trimmed == "" {
		e.mu.Unlock()
		return ErrEmptyTitle
	}
	if e.state.Updating {
		e.mu.Unlock()
		return ErrUpdateInProgress
	}
	if trimmed == e.state.Title && e.state.Source == SourceManual {
		e.state.Error = ""
		e.publishLocked()
		e.mu.Unlock()
		return nil
	}

	tok, _ := e.tracker.Current()
	e.state.Updating = true
	e.publishLocked()
	e.mu.Unlock()

	persistCtx, cancel := context.WithTimeout(ctx, e.persistTimeout)
	err := e.gateway.PersistTitle(persistCtx, tok.SessionID, trimmed)
	cancel()

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.tracker.IsCurrent(tok) {
		if err == nil {
			// The write reached the store even though the view moved on
			e.ledger.Set(tok.SessionID, true)
		}
		logger.Debug().Str("sessionId", tok.SessionID).Msg("discarding stale title update")
		return ErrSessionChanged
	}

	e.state.Updating = false
	if err != nil {
		msg := userMessage(err)
		e.state.Error = msg
		e.publishLocked()

		logger.Warn().Err(err).Str("sessionId", tok.SessionID).Msg("failed to persist title")
		return &PersistError{SessionID: tok.SessionID, Message: msg, Err: err}
	}

	e.state.Title = trimmed
	e.state.Source = SourceManual
	e.state.Stabilized = true
	e.state.ManuallyEdited = true
	e.state.Error = ""
	e.ledger.Set(tok.SessionID, true)
	e.publishLocked()

	logger.Info().Str("sessionId", tok.SessionID).Str("title", trimmed).Msg("session title updated")
	return nil
}

// Unbind drops the current session. Late results are ignored.
func (e *Engine) Unbind() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.bound {
		return
	}
	e.unbindLocked()
	e.publishLocked()
}

func (e *Engine) unbindLocked() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.tracker.Release()
	e.bound = false
	e.messages = nil
	e.state = State{Source: SourceNone}
}

// Snapshot returns the current state
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Subscribe returns a channel receiving every state change. Slow readers
// miss intermediate states. Call the returned func to unsubscribe.
func (e *Engine) Subscribe() (<-chan State, func()) {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()

	ch := make(chan State, subscriberBuffer)
	if e.subscribers == nil {
		close(ch)
		return ch, func() {}
	}

	id := e.nextSubID
	e.nextSubID++
	e.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.subsMu.Lock()
			defer e.subsMu.Unlock()
			if sub, ok := e.subscribers[id]; ok {
				delete(e.subscribers, id)
				close(sub)
			}
		})
	}
}

func (e *Engine) publishLocked() {
	snapshot := e.state

	e.subsMu.Lock()
	defer e.subsMu.Unlock()

	for _, ch := range e.subscribers {
		select {
		case ch <- snapshot:
		default:
		}
	}
}

// Shutdown unbinds, waits for background work to finish and closes all
// subscriptions
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	if e.bound {
		e.unbindLocked()
	}
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	e.subsMu.Lock()
	for id, ch := range e.subscribers {
		delete(e.subscribers, id)
		close(ch)
	}
	e.subscribers = nil
	e.subsMu.Unlock()

	return err
}
