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
	insertAuditEntryQuery = `INSERT INTO alert_audit_log (
    alert_id,
    action,
    actor_id,
    recipient_count,
    details
) VALUES (?, ?, ?, ?, ?)
RETURNING id, created_at`

	selectAuditBase = `SELECT id, alert_id, action, actor_id, recipient_count, details, created_at
FROM alert_audit_log`
)

// InsertAuditEntry appends a lifecycle event to the audit log.
func (db *DB) InsertAuditEntry(ctx context.Context, entry *models.AuditEntry) error {
	if entry == nil {
		return fmt.Errorf("audit entry is required")
	}
	details := entry.Details
	if details == nil {
		details = map[string]any{}
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to marshal audit details: %w", err)
	}

	var actorID any
	if entry.ActorID != nil {
		actorID = int64(*entry.ActorID)
	}

	row := db.writeDB.QueryRowContext(ctx, insertAuditEntryQuery,
		int64(entry.AlertID),
		string(entry.Action),
		actorID,
		entry.RecipientCount,
		string(detailsJSON),
	)

	var (
		id        int64
		createdAt time.Time
	)
	if err := row.Scan(&id, &createdAt); err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	entry.ID = id
	entry.CreatedAt = createdAt
	return nil
}

// ListAuditEntries returns the most recent audit entries for an alert.
func (db *DB) ListAuditEntries(ctx context.Context, alertID models.AlertID, limit int) ([]*models.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.readDB.QueryContext(ctx,
		selectAuditBase+" WHERE alert_id = ? ORDER BY created_at DESC, id DESC LIMIT ?",
		int64(alertID), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.AuditEntry
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}
	return entries, nil
}

func scanAuditEntry(scanner interface{ Scan(dest ...any) error }) (*models.AuditEntry, error) {
	var (
		id             int64
		alertID        int64
		action         string
		actorID        sql.NullInt64
		recipientCount int
		detailsJSON    string
		createdAt      time.Time
	)
	if err := scanner.Scan(&id, &alertID, &action, &actorID, &recipientCount, &detailsJSON, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan audit entry: %w", err)
	}

	details := map[string]any{}
	if detailsJSON != "" {
		if err := json.Unmarshal([]byte(detailsJSON), &details); err != nil {
			return nil, fmt.Errorf("failed to unmarshal audit details: %w", err)
		}
	}

	entry := &models.AuditEntry{
		ID:             id,
		AlertID:        models.AlertID(alertID),
		Action:         models.AlertEventAction(action),
		RecipientCount: recipientCount,
		Details:        details,
		CreatedAt:      createdAt,
	}
	if actorID.Valid {
		uid := models.UserID(actorID.Int64)
		entry.ActorID = &uid
	}
	return entry, nil
}
