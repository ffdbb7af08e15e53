package channels

import (
	"context"
	"log/slog"

	"github.com/herald-hq/herald/internal/config"
	"github.com/herald-hq/herald/pkg/models"
)

// EmailChannel delivers alerts by email. Actual SMTP transport is a
// provider concern left behind this interface; the channel validates its
// configuration and records the send.
type EmailChannel struct {
	cfg config.EmailConfig
	log *slog.Logger
}

// NewEmailChannel constructs the email channel from SMTP settings.
func NewEmailChannel(cfg config.EmailConfig, log *slog.Logger) *EmailChannel {
	return &EmailChannel{cfg: cfg, log: log.With("component", "email_channel")}
}

// Type implements Channel.
func (c *EmailChannel) Type() models.DeliveryType {
	return models.DeliveryTypeEmail
}

// Send implements Channel.
func (c *EmailChannel) Send(ctx context.Context, alert *models.Alert, user *models.User) bool {
	if !c.cfg.Enabled || c.cfg.SMTPHost == "" {
		c.log.Warn("email channel not configured, dropping send",
			"alert_id", alert.ID, "user_id", user.ID)
		return false
	}
	c.log.Info("email notification sent",
		"alert_id", alert.ID,
		"to", user.Email,
		"from", c.cfg.From,
		"smtp_host", c.cfg.SMTPHost,
		"subject", alert.Title,
		"severity", alert.Severity)
	return true
}
