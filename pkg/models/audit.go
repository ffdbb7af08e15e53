package models

import "time"

// AlertEventAction names a lifecycle event fanned out to subscribers.
type AlertEventAction string

const (
	AlertEventCreated  AlertEventAction = "created"
	AlertEventUpdated  AlertEventAction = "updated"
	AlertEventReminder AlertEventAction = "reminder"
	AlertEventExpired  AlertEventAction = "expired"
)

// AuditEntry is a persisted record of one alert lifecycle event.
type AuditEntry struct {
	ID             int64            `json:"id"`
	AlertID        AlertID          `json:"alert_id"`
	Action         AlertEventAction `json:"action"`
	ActorID        *UserID          `json:"actor_id,omitempty"`
	RecipientCount int              `json:"recipient_count"`
	Details        map[string]any   `json:"details,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}
