package notifications

import (
	"testing"
	"time"
)

func TestNotify_FansOutToSubscribers(t *testing.T) {
	s := NewService()
	defer s.Shutdown()

	a, unsubA := s.Subscribe()
	b, unsubB := s.Subscribe()
	defer unsubA()
	defer unsubB()

	s.NotifySessionTitleUpdated("s1", "Budget Plan", true)

	for _, ch := range []<-chan Event{a, b} {
		select {
		case ev := <-ch:
			if ev.Type != EventSessionTitleUpdated || ev.SessionID != "s1" {
				t.Errorf("unexpected event %+v", ev)
			}
			if ev.Timestamp == 0 {
				t.Error("expected timestamp to be filled in")
			}
			data := ev.Data.(map[string]any)
			if data["title"] != "Budget Plan" || data["isTitleCustomized"] != true {
				t.Errorf("unexpected data %v", data)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestNotify_SkipsFullSubscribers(t *testing.T) {
	s := NewService()
	defer s.Shutdown()

	ch, unsub := s.Subscribe()
	defer unsub()

	for i := 0; i < 50; i++ {
		s.NotifySessionCreated("s1")
	}
	if len(ch) != cap(ch) {
		t.Errorf("expected full buffer, got %d/%d", len(ch), cap(ch))
	}
}

func TestUnsubscribe(t *testing.T) {
	s := NewService()
	defer s.Shutdown()

	ch, unsub := s.Subscribe()
	if s.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", s.SubscriberCount())
	}

	unsub()
	unsub()

	if s.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", s.SubscriberCount())
	}
	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed")
	}
}

func TestShutdown_ClosesEverything(t *testing.T) {
	s := NewService()
	ch, unsub := s.Subscribe()

	s.Shutdown()
	s.Shutdown()
	unsub()

	if _, ok := <-ch; ok {
		t.Error("expected subscriber channel to be closed")
	}
	select {
	case <-s.Done():
	default:
		t.Error("expected done channel to be closed")
	}

	late, _ := s.Subscribe()
	if _, ok := <-late; ok {
		t.Error("expected subscription after shutdown to be closed")
	}
}
