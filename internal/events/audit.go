package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/herald-hq/herald/pkg/models"
)

// AuditStore persists lifecycle audit entries. *sqlite.DB satisfies it.
type AuditStore interface {
	InsertAuditEntry(ctx context.Context, entry *models.AuditEntry) error
}

// AuditSubscriber writes one durable audit row per lifecycle event.
type AuditSubscriber struct {
	store AuditStore
	log   *slog.Logger
}

// NewAuditSubscriber constructs the audit recorder.
func NewAuditSubscriber(store AuditStore, log *slog.Logger) *AuditSubscriber {
	return &AuditSubscriber{store: store, log: log.With("component", "audit_subscriber")}
}

// Name implements Subscriber.
func (s *AuditSubscriber) Name() string { return "audit" }

// HandleAlertEvent implements Subscriber.
func (s *AuditSubscriber) HandleAlertEvent(ctx context.Context, ev Event) error {
	details := map[string]any{
		"severity":      string(ev.Alert.Severity),
		"delivery_type": string(ev.Alert.DeliveryType),
	}
	for k, v := range ev.Diff {
		details["diff."+k] = v
	}

	entry := &models.AuditEntry{
		AlertID:        ev.Alert.ID,
		Action:         ev.Action,
		ActorID:        ev.ActorID,
		RecipientCount: len(ev.Recipients),
		Details:        details,
	}
	if err := s.store.InsertAuditEntry(ctx, entry); err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}
