package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"inventory-service/internal/apperr"
	"inventory-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// StockSnapshot carries the counters as they stood right after a mutation
type StockSnapshot struct {
	Quantity int `db:"quantity"`
	Reserved int `db:"reserved"`
}

// GetStock retrieves the stock row for a product/variant pair
func (s *Store) GetStock(ctx context.Context, productID, variantID string) (*models.StockItem, error) {
	var item models.StockItem
	err := s.db.GetContext(ctx, &item,
		"SELECT * FROM stock_items WHERE product_id = $1 AND variant_id = $2",
		productID, variantID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("stock for product %s: %w", productID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ReserveStock moves qty units from available to reserved. The guard
// `quantity - reserved >= qty` is evaluated inside the UPDATE so two
// concurrent reservations can never jointly oversell a row.
func (s *Store) ReserveStock(ctx context.Context, productID, variantID string, qty int) (*StockSnapshot, error) {
	var snap StockSnapshot
	err := s.db.GetContext(ctx, &snap, `
		UPDATE stock_items
		SET reserved = reserved + $1, updated_at = NOW()
		WHERE product_id = $2 AND variant_id = $3 AND quantity - reserved >= $1
		RETURNING quantity, reserved`,
		qty, productID, variantID)
	if err == sql.ErrNoRows {
		// Condition failed or the row does not exist; look it up to tell
		// the two apart.
		if _, getErr := s.GetStock(ctx, productID, variantID); getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("reserve %d of product %s: %w", qty, productID, apperr.ErrInsufficientStock)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to reserve stock: %w", err)
	}
	return &snap, nil
}

// ReleaseStock returns qty held units to available
func (s *Store) ReleaseStock(ctx context.Context, productID, variantID string, qty int) (*StockSnapshot, error) {
	var snap StockSnapshot
	err := s.db.GetContext(ctx, &snap, `
		UPDATE stock_items
		SET reserved = reserved - $1, updated_at = NOW()
		WHERE product_id = $2 AND variant_id = $3 AND reserved >= $1
		RETURNING quantity, reserved`,
		qty, productID, variantID)
	if err == sql.ErrNoRows {
		if _, getErr := s.GetStock(ctx, productID, variantID); getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("release %d of product %s exceeds reserved: %w", qty, productID, apperr.ErrInvalidState)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to release stock: %w", err)
	}
	return &snap, nil
}

// ConfirmStock converts qty held units into a permanent decrement.
// Available is untouched: quantity and reserved drop together.
func (s *Store) ConfirmStock(ctx context.Context, productID, variantID string, qty int) (*StockSnapshot, error) {
	var snap StockSnapshot
	err := s.db.GetContext(ctx, &snap, `
		UPDATE stock_items
		SET quantity = quantity - $1, reserved = reserved - $1, updated_at = NOW()
		WHERE product_id = $2 AND variant_id = $3 AND reserved >= $1
		RETURNING quantity, reserved`,
		qty, productID, variantID)
	if err == sql.ErrNoRows {
		if _, getErr := s.GetStock(ctx, productID, variantID); getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("confirm %d of product %s exceeds reserved: %w", qty, productID, apperr.ErrInvalidState)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to confirm stock: %w", err)
	}
	return &snap, nil
}

// IncrementQuantity adds owned units, creating the row when missing so
// manual restocks and rollbacks work for products seeded elsewhere.
func (s *Store) IncrementQuantity(ctx context.Context, productID, variantID string, qty int) (*StockSnapshot, error) {
	var snap StockSnapshot
	err := s.db.GetContext(ctx, &snap, `
		INSERT INTO stock_items (product_id, variant_id, quantity, reserved, low_stock_threshold)
		VALUES ($1, $2, $3, 0, 0)
		ON CONFLICT (product_id, variant_id)
		DO UPDATE SET quantity = stock_items.quantity + $3, updated_at = NOW()
		RETURNING quantity, reserved`,
		productID, variantID, qty)
	if err != nil {
		return nil, fmt.Errorf("failed to increment stock: %w", err)
	}
	return &snap, nil
}

// DecrementQuantity removes owned units without touching holds; it never
// dips below what active reservations still claim.
func (s *Store) DecrementQuantity(ctx context.Context, productID, variantID string, qty int) (*StockSnapshot, error) {
	var snap StockSnapshot
	err := s.db.GetContext(ctx, &snap, `
		UPDATE stock_items
		SET quantity = quantity - $1, updated_at = NOW()
		WHERE product_id = $2 AND variant_id = $3 AND quantity - reserved >= $1
		RETURNING quantity, reserved`,
		qty, productID, variantID)
	if err == sql.ErrNoRows {
		if _, getErr := s.GetStock(ctx, productID, variantID); getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("decrement %d of product %s: %w", qty, productID, apperr.ErrInsufficientStock)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decrement stock: %w", err)
	}
	return &snap, nil
}

// SetLowStockThreshold updates the alerting threshold for a stock row
func (s *Store) SetLowStockThreshold(ctx context.Context, productID, variantID string, threshold int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE stock_items
		SET low_stock_threshold = $1, updated_at = NOW()
		WHERE product_id = $2 AND variant_id = $3`,
		threshold, productID, variantID)
	if err != nil {
		return fmt.Errorf("failed to set threshold: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("stock for product %s: %w", productID, apperr.ErrNotFound)
	}
	return nil
}
