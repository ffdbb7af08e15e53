package events

import (
	"context"
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

// AnalyticsSubscriber records alert lifecycle events as Prometheus
// counters exposed on /metrics.
type AnalyticsSubscriber struct{}

// NewAnalyticsSubscriber constructs the metrics recorder.
func NewAnalyticsSubscriber() *AnalyticsSubscriber {
	return &AnalyticsSubscriber{}
}

// Name implements Subscriber.
func (s *AnalyticsSubscriber) Name() string { return "analytics" }

// HandleAlertEvent implements Subscriber.
func (s *AnalyticsSubscriber) HandleAlertEvent(ctx context.Context, ev Event) error {
	metrics.GetOrCreateCounter(fmt.Sprintf(
		`herald_alert_events_total{action=%q,severity=%q}`,
		ev.Action, ev.Alert.Severity)).Inc()
	metrics.GetOrCreateCounter(fmt.Sprintf(
		`herald_alert_event_recipients_total{action=%q}`,
		ev.Action)).Add(len(ev.Recipients))
	return nil
}
