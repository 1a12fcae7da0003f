// Package gateway talks to the remote session store: it reads a session's
// persisted metadata and writes new titles.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xiaoyuanzhu-com/session-title/log"
)

const (
	defaultTimeout    = 15 * time.Second
	defaultMaxRetries = 3
	defaultBackoff    = 500 * time.Millisecond

	// SecretKeyHeader carries the shared secret on every request
	SecretKeyHeader = "x-secret-key"
)

var logger = log.GetLogger("Gateway")

// Metadata is the persisted state of a session the title engine cares about.
// An empty Description means the store has no title.
type Metadata struct {
	Description       string
	IsTitleCustomized bool
}

// Message is one message of a session's history
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session is a session's metadata together with its messages
type Session struct {
	ID       string
	Metadata Metadata
	Messages []Message
}

// Config holds client configuration
type Config struct {
	BaseURL    string // e.g. http://localhost:12345/api
	SecretKey  string
	Timeout    time.Duration // per attempt
	MaxRetries int           // attempts for idempotent calls
	Backoff    time.Duration // multiplied by the attempt number
	HTTPClient *http.Client
}

// Client is an HTTP implementation of the remote title gateway
type Client struct {
	baseURL    string
	secretKey  string
	maxRetries int
	backoff    time.Duration
	http       *http.Client
}

// New creates a client from cfg, filling in defaults
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:  cfg.SecretKey,
		maxRetries: retries,
		backoff:    backoff,
		http:       httpClient,
	}
}

type sessionEnvelope struct {
	Data struct {
		SessionID string `json:"sessionId"`
		Metadata  struct {
			Description       string `json:"description"`
			IsTitleCustomized bool   `json:"isTitleCustomized"`
		} `json:"metadata"`
		Messages []Message `json:"messages"`
	} `json:"data"`
}

// FetchMetadata reads the persisted metadata of a session
func (c *Client) FetchMetadata(ctx context.Context, sessionID string) (Metadata, error) {
	session, err := c.GetSession(ctx, sessionID)
	if err != nil {
		return Metadata{}, err
	}
	return session.Metadata, nil
}

// GetSession reads a session's metadata and message history
func (c *Client) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	var env sessionEnvelope
	if err := c.do(ctx, "fetch", sessionID, http.MethodGet, c.sessionURL(sessionID), nil, &env); err != nil {
		return nil, err
	}

	return &Session{
		ID: sessionID,
		Metadata: Metadata{
			Description:       env.Data.Metadata.Description,
			IsTitleCustomized: env.Data.Metadata.IsTitleCustomized,
		},
		Messages: env.Data.Messages,
	}, nil
}

// PersistTitle stores a new title for a session. The call is idempotent.
func (c *Client) PersistTitle(ctx context.Context, sessionID, title string) error {
	body := map[string]string{"title": title}
	return c.do(ctx, "persist", sessionID, http.MethodPut, c.sessionURL(sessionID)+"/title", body, nil)
}

// CreateSession creates a session in the remote store. An empty id lets the
// server choose one; the created id is returned.
func (c *Client) CreateSession(ctx context.Context, sessionID, workingDir string) (string, error) {
	body := map[string]string{"id": sessionID, "workingDir": workingDir}
	var env struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	// Not idempotent, so no retries
	if err := c.attempt(ctx, "create", sessionID, http.MethodPost, c.baseURL+"/sessions", body, &env); err != nil {
		return "", err
	}
	return env.Data.ID, nil
}

// AppendMessage adds a message to a session's history
func (c *Client) AppendMessage(ctx context.Context, sessionID string, msg Message) error {
	return c.attempt(ctx, "append", sessionID, http.MethodPost, c.sessionURL(sessionID)+"/messages", msg, nil)
}

func (c *Client) sessionURL(sessionID string) string {
	return c.baseURL + "/sessions/" + url.PathEscape(sessionID)
}

// do runs an idempotent request with retries on transient failures
func (c *Client) do(ctx context.Context, op, sessionID, method, target string, body, out any) error {
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		err := c.attempt(ctx, op, sessionID, method, target, body, out)
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) || attempt == c.maxRetries {
			break
		}

		backoff := time.Duration(attempt) * c.backoff
		logger.Debug().
			Err(err).
			Str("op", op).
			Str("sessionId", sessionID).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("retrying gateway call")

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return &Error{Op: op, SessionID: sessionID, Kind: ErrTransport, Err: ctx.Err()}
		}
	}

	return lastErr
}

// attempt performs a single request
func (c *Client) attempt(ctx context.Context, op, sessionID, method, target string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, SessionID: sessionID, Kind: ErrTransport, Err: fmt.Errorf("marshal request: %w", err)}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return &Error{Op: op, SessionID: sessionID, Kind: ErrTransport, Err: fmt.Errorf("create request: %w", err)}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.secretKey != "" {
		req.Header.Set(SecretKeyHeader, c.secretKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Op: op, SessionID: sessionID, Kind: ErrTransport, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Op: op, SessionID: sessionID, Kind: ErrTransport, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{
			Op:         op,
			SessionID:  sessionID,
			Kind:       kindForStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Err:        errors.New(errorMessage(respBody)),
		}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &Error{Op: op, SessionID: sessionID, Kind: ErrTransport, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func kindForStatus(status int) error {
	switch status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	default:
		return ErrTransport
	}
}

// isRetryable reports whether a failure is transient: no response at all,
// rate limiting, or a server-side error
func isRetryable(err error) bool {
	var gwErr *Error
	if !errors.As(err, &gwErr) || gwErr.Kind != ErrTransport {
		return false
	}
	if errors.Is(gwErr.Err, context.Canceled) || errors.Is(gwErr.Err, context.DeadlineExceeded) {
		return false
	}
	switch {
	case gwErr.StatusCode == 0:
		return true
	case gwErr.StatusCode == http.StatusTooManyRequests:
		return true
	case gwErr.StatusCode >= 500:
		return true
	default:
		return false
	}
}

// errorMessage extracts the message of the api error envelope, falling back
// to the raw body
func errorMessage(body []byte) string {
	var env struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Message != "" {
		return env.Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "empty response"
	}
	return msg
}
