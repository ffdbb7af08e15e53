package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/herald-hq/herald/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingSubscriber struct {
	name string
	err  error
	pan  bool

	mu     sync.Mutex
	events []Event
}

func (s *recordingSubscriber) Name() string { return s.name }

func (s *recordingSubscriber) HandleAlertEvent(ctx context.Context, ev Event) error {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
	if s.pan {
		panic("subscriber exploded")
	}
	return s.err
}

func (s *recordingSubscriber) seen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestFanoutDeliversToAllSubscribers(t *testing.T) {
	a := &recordingSubscriber{name: "a"}
	b := &recordingSubscriber{name: "b"}
	fanout := NewFanout(testLogger(), a, b)

	fanout.Publish(context.Background(), Event{
		Action: models.AlertEventCreated,
		Alert:  &models.Alert{ID: 1},
	})

	if a.seen() != 1 || b.seen() != 1 {
		t.Errorf("subscribers saw %d/%d events, want 1/1", a.seen(), b.seen())
	}
}

func TestFanoutIsolatesFailures(t *testing.T) {
	panicking := &recordingSubscriber{name: "panicking", pan: true}
	failing := &recordingSubscriber{name: "failing", err: errors.New("downstream unavailable")}
	healthy := &recordingSubscriber{name: "healthy"}
	fanout := NewFanout(testLogger(), panicking, failing, healthy)

	// Publish must return normally and still reach the healthy subscriber.
	fanout.Publish(context.Background(), Event{
		Action: models.AlertEventUpdated,
		Alert:  &models.Alert{ID: 2},
	})

	if healthy.seen() != 1 {
		t.Errorf("healthy subscriber saw %d events, want 1", healthy.seen())
	}

	// A second publish works the same; failures are per-delivery, not sticky.
	fanout.Publish(context.Background(), Event{
		Action: models.AlertEventExpired,
		Alert:  &models.Alert{ID: 2},
	})
	if healthy.seen() != 2 {
		t.Errorf("healthy subscriber saw %d events after second publish, want 2", healthy.seen())
	}
}

func TestFanoutSkipsNilSubscribers(t *testing.T) {
	healthy := &recordingSubscriber{name: "healthy"}
	fanout := NewFanout(testLogger(), nil, healthy)

	fanout.Publish(context.Background(), Event{
		Action: models.AlertEventCreated,
		Alert:  &models.Alert{ID: 3},
	})
	if healthy.seen() != 1 {
		t.Errorf("subscriber saw %d events, want 1", healthy.seen())
	}
}
