package store

import (
	"context"
	"fmt"

	"inventory-service/internal/models"
)

// InsertChange appends one row to the inventory change ledger. Rows are
// never updated or deleted afterwards.
func (s *Store) InsertChange(ctx context.Context, c *models.InventoryChange) error {
	return s.db.GetContext(ctx, &c.CreatedAt, `
		INSERT INTO inventory_changes
			(id, product_id, variant_id, change_type, quantity, new_quantity, reason, reference_id, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`,
		c.ID, c.ProductID, c.VariantID, c.ChangeType, c.Quantity, c.NewQuantity,
		c.Reason, c.ReferenceID, c.UserID)
}

// ListChanges returns the change history for a product, newest first
func (s *Store) ListChanges(ctx context.Context, productID, variantID string, page, pageSize int) ([]models.InventoryChange, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if page <= 0 {
		page = 1
	}

	query := `
		SELECT * FROM inventory_changes
		WHERE product_id = $1`
	args := []interface{}{productID}

	if variantID != "" {
		query += " AND variant_id = $2"
		args = append(args, variantID)
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, pageSize, (page-1)*pageSize)

	var changes []models.InventoryChange
	err := s.db.SelectContext(ctx, &changes, query, args...)
	return changes, err
}

// InsertReconciliationTask records a compensation step that failed and
// needs manual follow-up
func (s *Store) InsertReconciliationTask(ctx context.Context, t *models.ReconciliationTask) error {
	return s.db.GetContext(ctx, &t.CreatedAt, `
		INSERT INTO reconciliation_tasks (id, order_id, step, cause)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		t.ID, t.OrderID, t.Step, t.Cause)
}
