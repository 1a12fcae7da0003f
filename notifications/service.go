package notifications

import (
	"sync"
	"time"
)

// EventType represents the type of notification event
type EventType string

const (
	EventConnected           EventType = "connected"
	EventSessionCreated      EventType = "session-created"
	EventSessionTitleUpdated EventType = "session-title-updated"
	EventSessionMessageAdded EventType = "session-message-added"
)

// Event represents a notification event
type Event struct {
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"`
	SessionID string    `json:"sessionId,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// Service manages SSE subscriptions and event broadcasting
type Service struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
	done        chan struct{}
	closeOnce   sync.Once
}

// NewService creates a new notification service
func NewService() *Service {
	return &Service{
		subscribers: make(map[chan Event]struct{}),
		done:        make(chan struct{}),
	}
}

// Subscribe creates a new subscription channel
// Returns the event channel and an unsubscribe function
func (s *Service) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 10)

	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	unsubscribe := func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		// Only close if the channel is still in subscribers map
		if _, exists := s.subscribers[ch]; exists {
			delete(s.subscribers, ch)
			close(ch)
		}
	}

	return ch, unsubscribe
}

// Notify broadcasts an event to all subscribers
func (s *Service) Notify(event Event) {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// Channel full, skip this subscriber
		}
	}
}

// NotifySessionCreated sends a session-created event
func (s *Service) NotifySessionCreated(sessionID string) {
	s.Notify(Event{
		Type:      EventSessionCreated,
		SessionID: sessionID,
	})
}

// NotifySessionTitleUpdated sends a session-title-updated event.
// customized is false for titles written by auto-generation.
func (s *Service) NotifySessionTitleUpdated(sessionID, title string, customized bool) {
	s.Notify(Event{
		Type:      EventSessionTitleUpdated,
		SessionID: sessionID,
		Data: map[string]any{
			"title":             title,
			"isTitleCustomized": customized,
		},
	})
}

// NotifySessionMessageAdded sends a session-message-added event
func (s *Service) NotifySessionMessageAdded(sessionID, role string, messageCount int) {
	s.Notify(Event{
		Type:      EventSessionMessageAdded,
		SessionID: sessionID,
		Data: map[string]any{
			"role":         role,
			"messageCount": messageCount,
		},
	})
}

// Done is closed when the service shuts down
func (s *Service) Done() <-chan struct{} {
	return s.done
}

// Shutdown closes the notification service
func (s *Service) Shutdown() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		close(s.done)

		// Close all subscriber channels
		for ch := range s.subscribers {
			close(ch)
		}
		s.subscribers = make(map[chan Event]struct{})
	})
}

// SubscriberCount returns the number of active subscribers
func (s *Service) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}
