package channels

import (
	"context"
	"log/slog"

	"github.com/herald-hq/herald/internal/config"
	"github.com/herald-hq/herald/pkg/models"
)

// SMSChannel is a placeholder for a future SMS provider integration.
// It logs sends and reports them as delivered when enabled.
type SMSChannel struct {
	cfg config.SMSConfig
	log *slog.Logger
}

// NewSMSChannel constructs the placeholder SMS channel.
func NewSMSChannel(cfg config.SMSConfig, log *slog.Logger) *SMSChannel {
	return &SMSChannel{cfg: cfg, log: log.With("component", "sms_channel")}
}

// Type implements Channel.
func (c *SMSChannel) Type() models.DeliveryType {
	return models.DeliveryTypeSMS
}

// Send implements Channel.
func (c *SMSChannel) Send(ctx context.Context, alert *models.Alert, user *models.User) bool {
	if !c.cfg.Enabled {
		c.log.Warn("sms channel not configured, dropping send",
			"alert_id", alert.ID, "user_id", user.ID)
		return false
	}
	c.log.Info("sms notification sent",
		"alert_id", alert.ID,
		"user_id", user.ID,
		"sender", c.cfg.Sender,
		"title", alert.Title)
	return true
}
