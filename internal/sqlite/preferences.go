package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/herald-hq/herald/pkg/models"
)

const (
	insertPreferenceQuery = `INSERT INTO user_alert_preferences (
    user_id,
    alert_id,
    is_read,
    is_snoozed,
    snoozed_until,
    last_reminder_sent,
    reminder_count
) VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id, created_at, updated_at`

	selectPreferenceBase = `SELECT
    id,
    user_id,
    alert_id,
    is_read,
    is_snoozed,
    snoozed_until,
    last_reminder_sent,
    reminder_count,
    created_at,
    updated_at
FROM user_alert_preferences`

	updatePreferenceQuery = `UPDATE user_alert_preferences
SET is_read = ?,
    is_snoozed = ?,
    snoozed_until = ?,
    last_reminder_sent = ?,
    reminder_count = ?,
    updated_at = datetime('now')
WHERE id = ?`

	// Preferences due a reminder: unread, outside any snooze window, and
	// either never reminded or last reminded before the frequency cutoff.
	listDueReminderQuery = selectPreferenceBase + `
WHERE alert_id = ?
  AND is_read = 0
  AND (is_snoozed = 0 OR snoozed_until IS NULL OR snoozed_until <= ?)
  AND (last_reminder_sent IS NULL OR last_reminder_sent <= ?)`
)

// CreatePreference inserts a preference row for a (user, alert) pair.
// A duplicate insert under the unique constraint is resolved as a lookup
// of the existing row, making creation idempotent under races.
func (db *DB) CreatePreference(ctx context.Context, pref *models.UserAlertPreference) error {
	if pref == nil {
		return fmt.Errorf("preference payload is required")
	}

	row := db.writeDB.QueryRowContext(ctx, insertPreferenceQuery,
		int64(pref.UserID),
		int64(pref.AlertID),
		boolToInt(pref.IsRead),
		boolToInt(pref.IsSnoozed),
		nullableTime(pref.SnoozedUntil),
		nullableTime(pref.LastReminderSent),
		pref.ReminderCount,
	)

	var (
		id        int64
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&id, &createdAt, &updatedAt); err != nil {
		if IsUniqueConstraintError(err) {
			existing, lookupErr := db.GetPreference(ctx, pref.UserID, pref.AlertID)
			if lookupErr != nil {
				return fmt.Errorf("failed to load existing preference after duplicate insert: %w", lookupErr)
			}
			*pref = *existing
			return nil
		}
		return fmt.Errorf("failed to insert preference: %w", err)
	}
	pref.ID = id
	pref.CreatedAt = createdAt
	pref.UpdatedAt = updatedAt
	return nil
}

// GetPreference retrieves the preference for a (user, alert) pair.
func (db *DB) GetPreference(ctx context.Context, userID models.UserID, alertID models.AlertID) (*models.UserAlertPreference, error) {
	row := db.readDB.QueryRowContext(ctx, selectPreferenceBase+" WHERE user_id = ? AND alert_id = ?", int64(userID), int64(alertID))
	pref, err := scanPreference(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return pref, err
}

// UpdatePreference persists the stored acknowledgment flags and reminder
// bookkeeping of an existing preference.
func (db *DB) UpdatePreference(ctx context.Context, pref *models.UserAlertPreference) error {
	if pref == nil {
		return fmt.Errorf("preference payload is required")
	}
	res, err := db.writeDB.ExecContext(ctx, updatePreferenceQuery,
		boolToInt(pref.IsRead),
		boolToInt(pref.IsSnoozed),
		nullableTime(pref.SnoozedUntil),
		nullableTime(pref.LastReminderSent),
		pref.ReminderCount,
		pref.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update preference: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPreferencesDueReminder returns preferences for an alert that are
// candidates for a repeat notification as of now. The reminder window is
// the alert's configured frequency; the derived state machine has the
// final say on eligibility.
func (db *DB) ListPreferencesDueReminder(ctx context.Context, alertID models.AlertID, window time.Duration, now time.Time) ([]*models.UserAlertPreference, error) {
	cutoff := now.Add(-window)
	rows, err := db.readDB.QueryContext(ctx, listDueReminderQuery, int64(alertID), now, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query due preferences: %w", err)
	}
	defer rows.Close()

	var prefs []*models.UserAlertPreference
	for rows.Next() {
		pref, err := scanPreference(rows)
		if err != nil {
			return nil, err
		}
		prefs = append(prefs, pref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating due preferences: %w", err)
	}
	return prefs, nil
}

// CountPreferencesForAlert reports how many recipients have a preference
// row for the alert.
func (db *DB) CountPreferencesForAlert(ctx context.Context, alertID models.AlertID) (int, error) {
	var count int
	err := db.readDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM user_alert_preferences WHERE alert_id = ?", int64(alertID)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count preferences: %w", err)
	}
	return count, nil
}

func scanPreference(scanner interface{ Scan(dest ...any) error }) (*models.UserAlertPreference, error) {
	var (
		id               int64
		userID           int64
		alertID          int64
		isRead           int64
		isSnoozed        int64
		snoozedUntil     sql.NullTime
		lastReminderSent sql.NullTime
		reminderCount    int
		createdAt        time.Time
		updatedAt        time.Time
	)
	if err := scanner.Scan(&id, &userID, &alertID, &isRead, &isSnoozed, &snoozedUntil, &lastReminderSent, &reminderCount, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan preference: %w", err)
	}

	pref := &models.UserAlertPreference{
		ID:            id,
		UserID:        models.UserID(userID),
		AlertID:       models.AlertID(alertID),
		IsRead:        isRead == 1,
		IsSnoozed:     isSnoozed == 1,
		ReminderCount: reminderCount,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
	}
	if snoozedUntil.Valid {
		pref.SnoozedUntil = &snoozedUntil.Time
	}
	if lastReminderSent.Valid {
		pref.LastReminderSent = &lastReminderSent.Time
	}
	return pref, nil
}
