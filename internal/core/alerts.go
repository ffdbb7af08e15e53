package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/herald-hq/herald/internal/events"
	"github.com/herald-hq/herald/internal/sqlite"
	"github.com/herald-hq/herald/pkg/models"
)

// defaultReminderFrequencyMinutes applies when a create request leaves
// the reminder cadence unset.
const defaultReminderFrequencyMinutes = 60

// CreateAlert validates and persists a new alert, resolves its audience,
// and publishes a created event so subscribers can notify recipients.
// Validation failures surface before anything is written.
func CreateAlert(ctx context.Context, db *sqlite.DB, log *slog.Logger, fanout *events.Fanout, req models.CreateAlertRequest, actorID models.UserID) (*models.Alert, error) {
	now := time.Now().UTC()

	alert := &models.Alert{
		Title:                    req.Title,
		Message:                  req.Message,
		Severity:                 req.Severity,
		DeliveryType:             req.DeliveryType,
		ReminderFrequencyMinutes: req.ReminderFrequencyMinutes,
		StartsAt:                 now,
		ExpiresAt:                req.ExpiresAt,
		IsActive:                 true,
		RemindersEnabled:         true,
		Visibility:               req.Visibility,
		CreatedBy:                actorID,
		Status:                   models.AlertStatusActive,
	}
	if req.StartsAt != nil {
		alert.StartsAt = req.StartsAt.UTC()
	}
	if req.RemindersEnabled != nil {
		alert.RemindersEnabled = *req.RemindersEnabled
	}
	if alert.Severity == "" {
		alert.Severity = models.AlertSeverityInfo
	}
	if alert.DeliveryType == "" {
		alert.DeliveryType = models.DeliveryTypeInApp
	}
	if alert.ReminderFrequencyMinutes == 0 {
		alert.ReminderFrequencyMinutes = defaultReminderFrequencyMinutes
	}

	if err := validateAlert(ctx, db, alert); err != nil {
		return nil, err
	}
	if err := db.CreateAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to create alert: %w", err)
	}
	log.Info("alert created",
		"alert_id", alert.ID, "severity", alert.Severity, "visibility", alert.Visibility.Type)

	publishLifecycleEvent(ctx, db, log, fanout, events.Event{
		Action:  models.AlertEventCreated,
		Alert:   alert,
		ActorID: &actorID,
	})
	return alert, nil
}

// UpdateAlert applies the non-nil fields of req to an existing alert,
// re-validates, persists, and publishes an updated event carrying the
// changed fields. Recipients are re-resolved from the new visibility, so
// a widened scope notifies the newly included users.
func UpdateAlert(ctx context.Context, db *sqlite.DB, log *slog.Logger, fanout *events.Fanout, alertID models.AlertID, req models.UpdateAlertRequest, actorID models.UserID) (*models.Alert, error) {
	alert, err := db.GetAlert(ctx, alertID)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to load alert: %w", err)
	}

	diff := applyAlertUpdate(alert, req)
	if len(diff) == 0 {
		return alert, nil
	}

	if err := validateAlert(ctx, db, alert); err != nil {
		return nil, err
	}
	if err := db.UpdateAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to update alert: %w", err)
	}
	log.Info("alert updated", "alert_id", alert.ID, "changed", len(diff))

	publishLifecycleEvent(ctx, db, log, fanout, events.Event{
		Action:  models.AlertEventUpdated,
		Alert:   alert,
		ActorID: &actorID,
		Diff:    diff,
	})
	return alert, nil
}

// ArchiveAlert retires an alert permanently. Archived alerts keep their
// audit trail and acknowledgment records but never surface in feeds or
// reminder sweeps again, and no event is published.
func ArchiveAlert(ctx context.Context, db *sqlite.DB, log *slog.Logger, alertID models.AlertID) error {
	alert, err := db.GetAlert(ctx, alertID)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return ErrAlertNotFound
		}
		return fmt.Errorf("failed to load alert: %w", err)
	}
	if alert.Status == models.AlertStatusArchived {
		return nil
	}

	alert.Status = models.AlertStatusArchived
	alert.IsActive = false
	if err := db.UpdateAlert(ctx, alert); err != nil {
		return fmt.Errorf("failed to archive alert: %w", err)
	}
	log.Info("alert archived", "alert_id", alert.ID)
	return nil
}

// GetAlertsForUser returns the user's alert feed: every deliverable
// alert whose visibility includes them, paired with their acknowledgment
// state. Missing acknowledgment records are created as unread so the
// reminder sweep sees the recipient.
func GetAlertsForUser(ctx context.Context, db *sqlite.DB, log *slog.Logger, userID models.UserID) ([]models.AlertFeedItem, error) {
	user, err := db.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.Active() {
		return []models.AlertFeedItem{}, nil
	}

	now := time.Now().UTC()
	alerts, err := db.ListDeliverableAlerts(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}

	teamIDs, err := db.ListUserTeamIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user teams: %w", err)
	}

	feed := make([]models.AlertFeedItem, 0, len(alerts))
	for _, alert := range alerts {
		if !UserInScope(user, alert.Visibility, teamIDs) {
			continue
		}
		pref, err := FindOrCreatePreference(ctx, db, userID, alert.ID)
		if err != nil {
			log.Error("failed to ensure preference for feed",
				"user_id", userID, "alert_id", alert.ID, "error", err)
			continue
		}
		feed = append(feed, models.AlertFeedItem{
			Alert:            alert,
			Preference:       pref,
			State:            pref.State(now),
			AvailableActions: pref.AvailableActions(now),
		})
	}
	return feed, nil
}

// applyAlertUpdate patches alert in place from the request's non-nil
// fields and returns the set of changed fields keyed by name.
func applyAlertUpdate(alert *models.Alert, req models.UpdateAlertRequest) map[string]any {
	diff := make(map[string]any)

	if req.Title != nil && *req.Title != alert.Title {
		alert.Title = *req.Title
		diff["title"] = alert.Title
	}
	if req.Message != nil && *req.Message != alert.Message {
		alert.Message = *req.Message
		diff["message"] = alert.Message
	}
	if req.Severity != nil && *req.Severity != alert.Severity {
		alert.Severity = *req.Severity
		diff["severity"] = alert.Severity
	}
	if req.DeliveryType != nil && *req.DeliveryType != alert.DeliveryType {
		alert.DeliveryType = *req.DeliveryType
		diff["delivery_type"] = alert.DeliveryType
	}
	if req.ReminderFrequencyMinutes != nil && *req.ReminderFrequencyMinutes != alert.ReminderFrequencyMinutes {
		alert.ReminderFrequencyMinutes = *req.ReminderFrequencyMinutes
		diff["reminder_frequency_minutes"] = alert.ReminderFrequencyMinutes
	}
	if req.StartsAt != nil && !req.StartsAt.Equal(alert.StartsAt) {
		alert.StartsAt = req.StartsAt.UTC()
		diff["starts_at"] = alert.StartsAt
	}
	if req.ExpiresAt != nil {
		if alert.ExpiresAt == nil || !req.ExpiresAt.Equal(*alert.ExpiresAt) {
			expires := req.ExpiresAt.UTC()
			alert.ExpiresAt = &expires
			diff["expires_at"] = alert.ExpiresAt
		}
	}
	if req.IsActive != nil && *req.IsActive != alert.IsActive {
		alert.IsActive = *req.IsActive
		diff["is_active"] = alert.IsActive
	}
	if req.RemindersEnabled != nil && *req.RemindersEnabled != alert.RemindersEnabled {
		alert.RemindersEnabled = *req.RemindersEnabled
		diff["reminders_enabled"] = alert.RemindersEnabled
	}
	if req.Visibility != nil {
		alert.Visibility = *req.Visibility
		diff["visibility"] = alert.Visibility
	}
	return diff
}

func validateAlert(ctx context.Context, dir Directory, alert *models.Alert) error {
	if alert.Title == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	switch alert.Severity {
	case models.AlertSeverityInfo, models.AlertSeverityWarning, models.AlertSeverityCritical:
	default:
		return &ValidationError{Field: "severity", Message: fmt.Sprintf("unknown severity %q", alert.Severity)}
	}
	switch alert.DeliveryType {
	case models.DeliveryTypeInApp, models.DeliveryTypeEmail, models.DeliveryTypeSMS:
	default:
		return &ValidationError{Field: "delivery_type", Message: fmt.Sprintf("unknown delivery type %q", alert.DeliveryType)}
	}
	if alert.ReminderFrequencyMinutes < 1 {
		return &ValidationError{Field: "reminder_frequency_minutes", Message: "must be at least one minute"}
	}
	if alert.ExpiresAt != nil && !alert.ExpiresAt.After(alert.StartsAt) {
		return &ValidationError{Field: "expires_at", Message: "expiry must be after start time"}
	}
	return ValidateVisibility(ctx, dir, alert.Visibility)
}

// publishLifecycleEvent resolves the alert's audience and hands the
// event to the fan-out. Resolution failures degrade to an event with no
// recipients rather than failing the triggering operation.
func publishLifecycleEvent(ctx context.Context, db *sqlite.DB, log *slog.Logger, fanout *events.Fanout, ev events.Event) {
	recipients, err := ResolveAudience(ctx, db, ev.Alert.Visibility)
	if err != nil {
		log.Error("failed to resolve audience for event",
			"alert_id", ev.Alert.ID, "action", ev.Action, "error", err)
	}
	ev.Recipients = recipients
	fanout.Publish(ctx, ev)
}
