package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/herald-hq/herald/pkg/models"
)

const (
	insertAlertQuery = `INSERT INTO alerts (
    title,
    message,
    severity,
    delivery_type,
    reminder_frequency_minutes,
    starts_at,
    expires_at,
    is_active,
    reminders_enabled,
    visibility_type,
    visibility_targets,
    created_by,
    status
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id, created_at, updated_at`

	selectAlertBase = `SELECT
    id,
    title,
    message,
    severity,
    delivery_type,
    reminder_frequency_minutes,
    starts_at,
    expires_at,
    is_active,
    reminders_enabled,
    visibility_type,
    visibility_targets,
    created_by,
    status,
    created_at,
    updated_at
FROM alerts`

	updateAlertQuery = `UPDATE alerts
SET title = ?,
    message = ?,
    severity = ?,
    delivery_type = ?,
    reminder_frequency_minutes = ?,
    starts_at = ?,
    expires_at = ?,
    is_active = ?,
    reminders_enabled = ?,
    visibility_type = ?,
    visibility_targets = ?,
    status = ?,
    updated_at = datetime('now')
WHERE id = ?`

	listDeliverableAlertsQuery = selectAlertBase + `
WHERE status = 'active'
  AND is_active = 1
  AND starts_at <= ?
  AND (expires_at IS NULL OR expires_at > ?)
ORDER BY created_at DESC`

	listReminderDueAlertsQuery = selectAlertBase + `
WHERE status = 'active'
  AND is_active = 1
  AND reminders_enabled = 1
  AND starts_at <= ?
  AND (expires_at IS NULL OR expires_at > ?)`

	listExpiryCandidatesQuery = selectAlertBase + `
WHERE status = 'active'
  AND expires_at IS NOT NULL
  AND expires_at <= ?`

	markAlertExpiredQuery = `UPDATE alerts
SET status = 'expired',
    is_active = 0,
    updated_at = datetime('now')
WHERE id = ? AND status = 'active'`
)

// CreateAlert inserts a new alert and populates its generated fields.
func (db *DB) CreateAlert(ctx context.Context, alert *models.Alert) error {
	if alert == nil {
		return fmt.Errorf("alert payload is required")
	}
	targetsJSON, err := json.Marshal(alert.Visibility.TargetIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal visibility targets: %w", err)
	}

	row := db.writeDB.QueryRowContext(ctx, insertAlertQuery,
		alert.Title,
		alert.Message,
		string(alert.Severity),
		string(alert.DeliveryType),
		alert.ReminderFrequencyMinutes,
		alert.StartsAt,
		nullableTime(alert.ExpiresAt),
		boolToInt(alert.IsActive),
		boolToInt(alert.RemindersEnabled),
		string(alert.Visibility.Type),
		string(targetsJSON),
		int64(alert.CreatedBy),
		string(alert.Status),
	)

	var (
		id        int64
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&id, &createdAt, &updatedAt); err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	alert.ID = models.AlertID(id)
	alert.CreatedAt = createdAt
	alert.UpdatedAt = updatedAt
	return nil
}

// UpdateAlert persists changes to an existing alert.
func (db *DB) UpdateAlert(ctx context.Context, alert *models.Alert) error {
	if alert == nil {
		return fmt.Errorf("alert payload is required")
	}
	targetsJSON, err := json.Marshal(alert.Visibility.TargetIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal visibility targets: %w", err)
	}

	res, err := db.writeDB.ExecContext(ctx, updateAlertQuery,
		alert.Title,
		alert.Message,
		string(alert.Severity),
		string(alert.DeliveryType),
		alert.ReminderFrequencyMinutes,
		alert.StartsAt,
		nullableTime(alert.ExpiresAt),
		boolToInt(alert.IsActive),
		boolToInt(alert.RemindersEnabled),
		string(alert.Visibility.Type),
		string(targetsJSON),
		string(alert.Status),
		int64(alert.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to update alert: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GetAlert retrieves an alert by its identifier.
func (db *DB) GetAlert(ctx context.Context, alertID models.AlertID) (*models.Alert, error) {
	row := db.readDB.QueryRowContext(ctx, selectAlertBase+" WHERE id = ?", int64(alertID))
	alert, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return alert, err
}

// ListAlerts returns all alerts, newest first.
func (db *DB) ListAlerts(ctx context.Context) ([]*models.Alert, error) {
	return db.queryAlerts(ctx, selectAlertBase+" ORDER BY created_at DESC")
}

// ListDeliverableAlerts returns alerts that may be shown to recipients:
// active, started, and not past expiry as of now.
func (db *DB) ListDeliverableAlerts(ctx context.Context, now time.Time) ([]*models.Alert, error) {
	return db.queryAlerts(ctx, listDeliverableAlertsQuery, now, now)
}

// ListReminderDueAlerts returns deliverable alerts with reminders enabled.
func (db *DB) ListReminderDueAlerts(ctx context.Context, now time.Time) ([]*models.Alert, error) {
	return db.queryAlerts(ctx, listReminderDueAlertsQuery, now, now)
}

// ListExpiryCandidates returns active alerts whose expiry time has passed.
func (db *DB) ListExpiryCandidates(ctx context.Context, now time.Time) ([]*models.Alert, error) {
	return db.queryAlerts(ctx, listExpiryCandidatesQuery, now)
}

// MarkAlertExpired converges a past-expiry alert's stored status.
func (db *DB) MarkAlertExpired(ctx context.Context, alertID models.AlertID) error {
	if _, err := db.writeDB.ExecContext(ctx, markAlertExpiredQuery, int64(alertID)); err != nil {
		return fmt.Errorf("failed to mark alert expired: %w", err)
	}
	return nil
}

func (db *DB) queryAlerts(ctx context.Context, query string, args ...any) ([]*models.Alert, error) {
	rows, err := db.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}
	return alerts, nil
}

func scanAlert(scanner interface{ Scan(dest ...any) error }) (*models.Alert, error) {
	var (
		id               int64
		title            string
		message          string
		severity         string
		deliveryType     string
		frequencyMinutes int
		startsAt         time.Time
		expiresAt        sql.NullTime
		isActive         int64
		remindersEnabled int64
		visibilityType   string
		targetsJSON      string
		createdBy        int64
		status           string
		createdAt        time.Time
		updatedAt        time.Time
	)
	if err := scanner.Scan(&id, &title, &message, &severity, &deliveryType, &frequencyMinutes, &startsAt, &expiresAt, &isActive, &remindersEnabled, &visibilityType, &targetsJSON, &createdBy, &status, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan alert: %w", err)
	}

	var targets []int64
	if targetsJSON != "" {
		if err := json.Unmarshal([]byte(targetsJSON), &targets); err != nil {
			return nil, fmt.Errorf("failed to unmarshal visibility targets: %w", err)
		}
	}

	alert := &models.Alert{
		ID:                       models.AlertID(id),
		Title:                    title,
		Message:                  message,
		Severity:                 models.AlertSeverity(severity),
		DeliveryType:             models.DeliveryType(deliveryType),
		ReminderFrequencyMinutes: frequencyMinutes,
		StartsAt:                 startsAt,
		IsActive:                 isActive == 1,
		RemindersEnabled:         remindersEnabled == 1,
		Visibility: models.Visibility{
			Type:      models.VisibilityType(visibilityType),
			TargetIDs: targets,
		},
		CreatedBy: models.UserID(createdBy),
		Status:    models.AlertStatus(status),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
	if expiresAt.Valid {
		alert.ExpiresAt = &expiresAt.Time
	}
	return alert, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
