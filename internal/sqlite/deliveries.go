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
	insertDeliveryQuery = `INSERT INTO notification_deliveries (
    alert_id,
    user_id,
    delivery_type,
    status,
    delivered_at,
    read_at,
    snoozed_until,
    metadata
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id, created_at, updated_at`

	selectDeliveryBase = `SELECT
    id,
    alert_id,
    user_id,
    delivery_type,
    status,
    delivered_at,
    read_at,
    snoozed_until,
    metadata,
    created_at,
    updated_at
FROM notification_deliveries`

	updateDeliveryQuery = `UPDATE notification_deliveries
SET status = ?,
    delivered_at = ?,
    read_at = ?,
    snoozed_until = ?,
    metadata = ?,
    updated_at = datetime('now')
WHERE id = ?`
)

// CreateDelivery inserts a delivery record for an (alert, user, channel)
// triple. Duplicate inserts under the unique constraint resolve to the
// existing record.
func (db *DB) CreateDelivery(ctx context.Context, d *models.NotificationDelivery) error {
	if d == nil {
		return fmt.Errorf("delivery payload is required")
	}
	metadataJSON, err := json.Marshal(orEmptyMetadata(d.Metadata))
	if err != nil {
		return fmt.Errorf("failed to marshal delivery metadata: %w", err)
	}

	row := db.writeDB.QueryRowContext(ctx, insertDeliveryQuery,
		int64(d.AlertID),
		int64(d.UserID),
		string(d.DeliveryType),
		string(d.Status),
		nullableTime(d.DeliveredAt),
		nullableTime(d.ReadAt),
		nullableTime(d.SnoozedUntil),
		string(metadataJSON),
	)

	var (
		id        int64
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&id, &createdAt, &updatedAt); err != nil {
		if IsUniqueConstraintError(err) {
			existing, lookupErr := db.GetDelivery(ctx, d.AlertID, d.UserID, d.DeliveryType)
			if lookupErr != nil {
				return fmt.Errorf("failed to load existing delivery after duplicate insert: %w", lookupErr)
			}
			*d = *existing
			return nil
		}
		return fmt.Errorf("failed to insert delivery: %w", err)
	}
	d.ID = id
	d.CreatedAt = createdAt
	d.UpdatedAt = updatedAt
	return nil
}

// GetDelivery retrieves the delivery record for an (alert, user, channel)
// triple.
func (db *DB) GetDelivery(ctx context.Context, alertID models.AlertID, userID models.UserID, deliveryType models.DeliveryType) (*models.NotificationDelivery, error) {
	row := db.readDB.QueryRowContext(ctx,
		selectDeliveryBase+" WHERE alert_id = ? AND user_id = ? AND delivery_type = ?",
		int64(alertID), int64(userID), string(deliveryType))
	d, err := scanDelivery(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return d, err
}

// UpdateDelivery persists status and timestamp changes to a delivery
// record.
func (db *DB) UpdateDelivery(ctx context.Context, d *models.NotificationDelivery) error {
	if d == nil {
		return fmt.Errorf("delivery payload is required")
	}
	metadataJSON, err := json.Marshal(orEmptyMetadata(d.Metadata))
	if err != nil {
		return fmt.Errorf("failed to marshal delivery metadata: %w", err)
	}
	res, err := db.writeDB.ExecContext(ctx, updateDeliveryQuery,
		string(d.Status),
		nullableTime(d.DeliveredAt),
		nullableTime(d.ReadAt),
		nullableTime(d.SnoozedUntil),
		string(metadataJSON),
		d.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update delivery: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ListDeliveriesForAlert returns all delivery records for one alert.
func (db *DB) ListDeliveriesForAlert(ctx context.Context, alertID models.AlertID) ([]*models.NotificationDelivery, error) {
	rows, err := db.readDB.QueryContext(ctx, selectDeliveryBase+" WHERE alert_id = ? ORDER BY created_at", int64(alertID))
	if err != nil {
		return nil, fmt.Errorf("failed to query deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []*models.NotificationDelivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deliveries: %w", err)
	}
	return deliveries, nil
}

func scanDelivery(scanner interface{ Scan(dest ...any) error }) (*models.NotificationDelivery, error) {
	var (
		id           int64
		alertID      int64
		userID       int64
		deliveryType string
		status       string
		deliveredAt  sql.NullTime
		readAt       sql.NullTime
		snoozedUntil sql.NullTime
		metadataJSON string
		createdAt    time.Time
		updatedAt    time.Time
	)
	if err := scanner.Scan(&id, &alertID, &userID, &deliveryType, &status, &deliveredAt, &readAt, &snoozedUntil, &metadataJSON, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan delivery: %w", err)
	}

	metadata := map[string]string{}
	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal delivery metadata: %w", err)
		}
	}

	d := &models.NotificationDelivery{
		ID:           id,
		AlertID:      models.AlertID(alertID),
		UserID:       models.UserID(userID),
		DeliveryType: models.DeliveryType(deliveryType),
		Status:       models.DeliveryStatus(status),
		Metadata:     metadata,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}
	if deliveredAt.Valid {
		d.DeliveredAt = &deliveredAt.Time
	}
	if readAt.Valid {
		d.ReadAt = &readAt.Time
	}
	if snoozedUntil.Valid {
		d.SnoozedUntil = &snoozedUntil.Time
	}
	return d, nil
}

func orEmptyMetadata(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
