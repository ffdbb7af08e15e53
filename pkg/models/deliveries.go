package models

import "time"

// DeliveryStatus tracks the channel-level progress of one delivery
// record. Distinct from the user's semantic acknowledgment state, which
// lives on UserAlertPreference.
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusRead      DeliveryStatus = "read"
	DeliveryStatusSnoozed   DeliveryStatus = "snoozed"
)

// NotificationDelivery records whether and when a specific alert was sent
// to a specific user over a specific channel. Unique per
// (AlertID, UserID, DeliveryType).
type NotificationDelivery struct {
	ID           int64             `json:"id"`
	AlertID      AlertID           `json:"alert_id"`
	UserID       UserID            `json:"user_id"`
	DeliveryType DeliveryType      `json:"delivery_type"`
	Status       DeliveryStatus    `json:"status"`
	DeliveredAt  *time.Time        `json:"delivered_at,omitempty"`
	ReadAt       *time.Time        `json:"read_at,omitempty"`
	SnoozedUntil *time.Time        `json:"snoozed_until,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}
