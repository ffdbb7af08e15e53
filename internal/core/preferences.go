package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/herald-hq/herald/internal/sqlite"
	"github.com/herald-hq/herald/pkg/models"
)

// FindOrCreatePreference returns the acknowledgment record for a
// (user, alert) pair, creating an unread one if none exists. Creation is
// idempotent: a concurrent duplicate insert resolves to the existing row.
func FindOrCreatePreference(ctx context.Context, db *sqlite.DB, userID models.UserID, alertID models.AlertID) (*models.UserAlertPreference, error) {
	pref, err := db.GetPreference(ctx, userID, alertID)
	if err == nil {
		return pref, nil
	}
	if !errors.Is(err, sqlite.ErrNotFound) {
		return nil, fmt.Errorf("failed to load preference: %w", err)
	}

	pref = &models.UserAlertPreference{UserID: userID, AlertID: alertID}
	if err := db.CreatePreference(ctx, pref); err != nil {
		return nil, fmt.Errorf("failed to create preference: %w", err)
	}
	return pref, nil
}

// MarkAlertAsRead transitions the user's preference for an alert to read.
// Re-marking a read preference is a logged no-op.
func MarkAlertAsRead(ctx context.Context, db *sqlite.DB, log *slog.Logger, userID models.UserID, alertID models.AlertID) error {
	pref, alert, err := loadPreferenceAndAlert(ctx, db, userID, alertID)
	if err != nil {
		return err
	}

	now := time.Now()
	if !pref.MarkRead(now) {
		log.Debug("alert already read", "user_id", userID, "alert_id", alertID)
		return nil
	}
	if err := db.UpdatePreference(ctx, pref); err != nil {
		return fmt.Errorf("failed to persist read state: %w", err)
	}

	markDeliveryRead(ctx, db, log, alert, userID, now)
	log.Info("alert marked as read", "user_id", userID, "alert_id", alertID)
	return nil
}

// SnoozeAlert starts a snooze window of the given number of hours on the
// user's preference for an alert. Snoozing a read alert is rejected with
// a warning: the user has already acknowledged it.
func SnoozeAlert(ctx context.Context, db *sqlite.DB, log *slog.Logger, userID models.UserID, alertID models.AlertID, hours int) error {
	if hours <= 0 {
		return &ValidationError{Field: "hours", Message: "snooze duration must be at least one hour"}
	}
	pref, alert, err := loadPreferenceAndAlert(ctx, db, userID, alertID)
	if err != nil {
		return err
	}

	now := time.Now()
	if !pref.Snooze(now, hours) {
		log.Warn("snooze rejected for read alert", "user_id", userID, "alert_id", alertID)
		return nil
	}
	if err := db.UpdatePreference(ctx, pref); err != nil {
		return fmt.Errorf("failed to persist snooze state: %w", err)
	}

	markDeliverySnoozed(ctx, db, log, alert, userID, pref.SnoozedUntil)
	log.Info("alert snoozed", "user_id", userID, "alert_id", alertID, "hours", hours)
	return nil
}

// UnsnoozeAlert clears the snooze window on the user's preference.
// Idempotent; stale snooze fields are cleared regardless of state.
func UnsnoozeAlert(ctx context.Context, db *sqlite.DB, log *slog.Logger, userID models.UserID, alertID models.AlertID) error {
	pref, _, err := loadPreferenceAndAlert(ctx, db, userID, alertID)
	if err != nil {
		return err
	}

	pref.Unsnooze()
	if err := db.UpdatePreference(ctx, pref); err != nil {
		return fmt.Errorf("failed to persist unsnooze: %w", err)
	}
	log.Info("alert unsnoozed", "user_id", userID, "alert_id", alertID)
	return nil
}

func loadPreferenceAndAlert(ctx context.Context, db *sqlite.DB, userID models.UserID, alertID models.AlertID) (*models.UserAlertPreference, *models.Alert, error) {
	alert, err := db.GetAlert(ctx, alertID)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return nil, nil, ErrAlertNotFound
		}
		return nil, nil, fmt.Errorf("failed to load alert: %w", err)
	}
	pref, err := db.GetPreference(ctx, userID, alertID)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return nil, nil, ErrPreferenceNotFound
		}
		return nil, nil, fmt.Errorf("failed to load preference: %w", err)
	}
	return pref, alert, nil
}

// Delivery records mirror acknowledgment events on the alert's channel.
// Failures here are bookkeeping only and never abort the acknowledgment.

func markDeliveryRead(ctx context.Context, db *sqlite.DB, log *slog.Logger, alert *models.Alert, userID models.UserID, now time.Time) {
	delivery, err := db.GetDelivery(ctx, alert.ID, userID, alert.DeliveryType)
	if err != nil {
		if !errors.Is(err, sqlite.ErrNotFound) {
			log.Warn("failed to load delivery for read update", "alert_id", alert.ID, "user_id", userID, "error", err)
		}
		return
	}
	delivery.Status = models.DeliveryStatusRead
	readAt := now
	delivery.ReadAt = &readAt
	if err := db.UpdateDelivery(ctx, delivery); err != nil {
		log.Warn("failed to update delivery read state", "alert_id", alert.ID, "user_id", userID, "error", err)
	}
}

func markDeliverySnoozed(ctx context.Context, db *sqlite.DB, log *slog.Logger, alert *models.Alert, userID models.UserID, until *time.Time) {
	delivery, err := db.GetDelivery(ctx, alert.ID, userID, alert.DeliveryType)
	if err != nil {
		if !errors.Is(err, sqlite.ErrNotFound) {
			log.Warn("failed to load delivery for snooze update", "alert_id", alert.ID, "user_id", userID, "error", err)
		}
		return
	}
	delivery.Status = models.DeliveryStatusSnoozed
	delivery.SnoozedUntil = until
	if err := db.UpdateDelivery(ctx, delivery); err != nil {
		log.Warn("failed to update delivery snooze state", "alert_id", alert.ID, "user_id", userID, "error", err)
	}
}
