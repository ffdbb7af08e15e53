// Package channels implements pluggable per-medium alert delivery and
// the batched bulk dispatch strategy.
package channels

import (
	"context"
	"log/slog"

	"github.com/herald-hq/herald/pkg/models"
)

// Channel is a single delivery medium. Send reports success; it must
// never panic past its own boundary and must bound its own blocking.
type Channel interface {
	Type() models.DeliveryType
	Send(ctx context.Context, alert *models.Alert, user *models.User) bool
}

// Registry maps delivery types to channel implementations. It is
// assembled once at startup and read-only afterwards.
type Registry struct {
	byType map[models.DeliveryType]Channel
	log    *slog.Logger
}

// NewRegistry builds a registry from the given channels.
func NewRegistry(log *slog.Logger, chs ...Channel) *Registry {
	r := &Registry{
		byType: make(map[models.DeliveryType]Channel, len(chs)),
		log:    log.With("component", "channel_registry"),
	}
	for _, ch := range chs {
		if ch == nil {
			continue
		}
		r.byType[ch.Type()] = ch
	}
	return r
}

// Get returns the channel registered for a delivery type.
func (r *Registry) Get(t models.DeliveryType) (Channel, bool) {
	ch, ok := r.byType[t]
	return ch, ok
}

// SendNotification delivers an alert to one recipient over the alert's
// configured delivery type. An unregistered type fails softly: false is
// returned and the failure is logged, never raised into the caller.
func (r *Registry) SendNotification(ctx context.Context, alert *models.Alert, user *models.User) bool {
	ch, ok := r.byType[alert.DeliveryType]
	if !ok {
		r.log.Warn("no channel registered for delivery type",
			"delivery_type", alert.DeliveryType, "alert_id", alert.ID, "user_id", user.ID)
		return false
	}
	return r.send(ctx, ch, alert, user)
}

// send wraps a channel call in a panic boundary so a misbehaving channel
// cannot take down a dispatch batch.
func (r *Registry) send(ctx context.Context, ch Channel, alert *models.Alert, user *models.User) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("channel send panicked",
				"delivery_type", ch.Type(), "alert_id", alert.ID, "user_id", user.ID, "panic", rec)
			ok = false
		}
	}()
	return ch.Send(ctx, alert, user)
}
