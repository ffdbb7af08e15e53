package channels

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/herald-hq/herald/internal/sqlite"
	"github.com/herald-hq/herald/pkg/models"
)

// DeliveryStore persists per-channel delivery records. *sqlite.DB
// satisfies it.
type DeliveryStore interface {
	GetDelivery(ctx context.Context, alertID models.AlertID, userID models.UserID, deliveryType models.DeliveryType) (*models.NotificationDelivery, error)
	CreateDelivery(ctx context.Context, d *models.NotificationDelivery) error
	UpdateDelivery(ctx context.Context, d *models.NotificationDelivery) error
}

// InAppChannel delivers alerts as persisted in-app notifications.
// Repeated sends for the same (alert, user) are idempotent at the
// delivery-record level: an existing pending record is promoted to
// delivered, anything else is left untouched.
type InAppChannel struct {
	store DeliveryStore
	log   *slog.Logger
	now   func() time.Time
}

// NewInAppChannel constructs the in-app channel over a delivery store.
func NewInAppChannel(store DeliveryStore, log *slog.Logger) *InAppChannel {
	return &InAppChannel{
		store: store,
		log:   log.With("component", "inapp_channel"),
		now:   time.Now,
	}
}

// Type implements Channel.
func (c *InAppChannel) Type() models.DeliveryType {
	return models.DeliveryTypeInApp
}

// Send implements Channel.
func (c *InAppChannel) Send(ctx context.Context, alert *models.Alert, user *models.User) bool {
	now := c.now()

	existing, err := c.store.GetDelivery(ctx, alert.ID, user.ID, models.DeliveryTypeInApp)
	if err != nil && !errors.Is(err, sqlite.ErrNotFound) {
		c.log.Error("failed to look up delivery record", "alert_id", alert.ID, "user_id", user.ID, "error", err)
		return false
	}

	if existing != nil {
		if existing.Status != models.DeliveryStatusPending {
			// Already delivered (or further along); repeat send is a no-op.
			return true
		}
		existing.Status = models.DeliveryStatusDelivered
		existing.DeliveredAt = &now
		if err := c.store.UpdateDelivery(ctx, existing); err != nil {
			c.log.Error("failed to promote pending delivery", "alert_id", alert.ID, "user_id", user.ID, "error", err)
			return false
		}
		return true
	}

	delivery := &models.NotificationDelivery{
		AlertID:      alert.ID,
		UserID:       user.ID,
		DeliveryType: models.DeliveryTypeInApp,
		Status:       models.DeliveryStatusDelivered,
		DeliveredAt:  &now,
		Metadata: map[string]string{
			"message_id": uuid.NewString(),
			"severity":   string(alert.Severity),
		},
	}
	if err := c.store.CreateDelivery(ctx, delivery); err != nil {
		c.log.Error("failed to create delivery record", "alert_id", alert.ID, "user_id", user.ID, "error", err)
		return false
	}
	return true
}
