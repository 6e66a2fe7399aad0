package store

import (
	"context"
	"database/sql"
	"fmt"

	"inventory-service/internal/apperr"
	"inventory-service/internal/models"
)

// GetAlertByID retrieves an alert by ID
func (s *Store) GetAlertByID(ctx context.Context, id string) (*models.InventoryAlert, error) {
	var alert models.InventoryAlert
	err := s.db.GetContext(ctx, &alert, "SELECT * FROM inventory_alerts WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("alert %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

// GetActiveAlert returns the open alert for a product/variant pair, or
// nil when none exists. At most one alert is open per pair.
func (s *Store) GetActiveAlert(ctx context.Context, productID, variantID string) (*models.InventoryAlert, error) {
	var alert models.InventoryAlert
	err := s.db.GetContext(ctx, &alert, `
		SELECT * FROM inventory_alerts
		WHERE product_id = $1 AND variant_id = $2 AND status IN ($3, $4)
		ORDER BY created_at DESC
		LIMIT 1`,
		productID, variantID, models.AlertStatusCreated, models.AlertStatusNotified)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

// InsertAlert persists a new alert
func (s *Store) InsertAlert(ctx context.Context, a *models.InventoryAlert) error {
	return s.db.QueryRowxContext(ctx, `
		INSERT INTO inventory_alerts
			(id, product_id, product_name, variant_id, variant_name, alert_type, severity,
			 status, current_stock, threshold, message, suggested_action)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`,
		a.ID, a.ProductID, a.ProductName, a.VariantID, a.VariantName, a.AlertType,
		a.Severity, a.Status, a.CurrentStock, a.Threshold, a.Message, a.SuggestedAction,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
}

// CloseAlert moves an open alert to RESOLVED or IGNORED, recording who
// closed it. Returns false when the alert already left the open states.
func (s *Store) CloseAlert(ctx context.Context, id, toStatus, actor, notes string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE inventory_alerts
		SET status = $1, resolved_by = $2, resolution_notes = $3,
		    resolved_at = NOW(), updated_at = NOW()
		WHERE id = $4 AND status IN ($5, $6)`,
		toStatus, actor, notes, id, models.AlertStatusCreated, models.AlertStatusNotified)
	if err != nil {
		return false, fmt.Errorf("failed to close alert: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// ListActiveAlerts returns open alerts, newest first
func (s *Store) ListActiveAlerts(ctx context.Context, page, pageSize int) ([]models.InventoryAlert, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if page <= 0 {
		page = 1
	}

	var alerts []models.InventoryAlert
	err := s.db.SelectContext(ctx, &alerts, `
		SELECT * FROM inventory_alerts
		WHERE status IN ($1, $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`,
		models.AlertStatusCreated, models.AlertStatusNotified,
		pageSize, (page-1)*pageSize)
	return alerts, err
}
