// Package events fans alert lifecycle events out to independent,
// failure-isolated subscribers.
package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/herald-hq/herald/pkg/models"
)

// Event describes one alert lifecycle occurrence delivered to every
// subscriber.
type Event struct {
	Action models.AlertEventAction
	Alert  *models.Alert
	// Recipients is the full resolved audience for the event.
	Recipients []*models.User
	// ActorID identifies the administrator behind created/updated events.
	ActorID *models.UserID
	// Diff carries the changed fields on updated events.
	Diff map[string]any
}

// Subscriber consumes alert lifecycle events. Implementations must treat
// delivery as best-effort; a returned error is logged and goes nowhere.
type Subscriber interface {
	Name() string
	HandleAlertEvent(ctx context.Context, ev Event) error
}

// Fanout invokes every registered subscriber concurrently, each inside
// its own failure boundary. No subscriber can block or break another, or
// feed a result back into the triggering operation.
type Fanout struct {
	subscribers []Subscriber
	log         *slog.Logger
}

// NewFanout builds a fan-out over the given subscribers.
func NewFanout(log *slog.Logger, subs ...Subscriber) *Fanout {
	filtered := make([]Subscriber, 0, len(subs))
	for _, sub := range subs {
		if sub != nil {
			filtered = append(filtered, sub)
		}
	}
	return &Fanout{
		subscribers: filtered,
		log:         log.With("component", "event_fanout"),
	}
}

// Publish delivers the event to all subscribers and waits for them to
// finish. Errors and panics are contained per subscriber.
func (f *Fanout) Publish(ctx context.Context, ev Event) {
	var wg sync.WaitGroup
	for _, sub := range f.subscribers {
		wg.Add(1)
		go func(sub Subscriber) {
			defer wg.Done()
			f.notify(ctx, sub, ev)
		}(sub)
	}
	wg.Wait()
}

func (f *Fanout) notify(ctx context.Context, sub Subscriber, ev Event) {
	defer func() {
		if rec := recover(); rec != nil {
			f.log.Error("subscriber panicked",
				"subscriber", sub.Name(), "action", ev.Action, "alert_id", ev.Alert.ID, "panic", rec)
		}
	}()
	if err := sub.HandleAlertEvent(ctx, ev); err != nil {
		f.log.Error("subscriber failed",
			"subscriber", sub.Name(), "action", ev.Action, "alert_id", ev.Alert.ID, "error", err)
	}
}
