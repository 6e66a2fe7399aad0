package service

import (
	"context"
	"fmt"
	"time"

	"inventory-service/internal/apperr"
	"inventory-service/internal/models"
	"inventory-service/internal/store"
	"inventory-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StockStore is the persistence surface the ledger mutates. All counter
// updates behind it are conditional single-row operations.
type StockStore interface {
	GetStock(ctx context.Context, productID, variantID string) (*models.StockItem, error)
	ReserveStock(ctx context.Context, productID, variantID string, qty int) (*store.StockSnapshot, error)
	ReleaseStock(ctx context.Context, productID, variantID string, qty int) (*store.StockSnapshot, error)
	ConfirmStock(ctx context.Context, productID, variantID string, qty int) (*store.StockSnapshot, error)
	IncrementQuantity(ctx context.Context, productID, variantID string, qty int) (*store.StockSnapshot, error)
	DecrementQuantity(ctx context.Context, productID, variantID string, qty int) (*store.StockSnapshot, error)
	SetLowStockThreshold(ctx context.Context, productID, variantID string, threshold int) error
	InsertChange(ctx context.Context, c *models.InventoryChange) error
	ListChanges(ctx context.Context, productID, variantID string, page, pageSize int) ([]models.InventoryChange, error)
}

// AlertChecker re-evaluates thresholds after a mutation
type AlertChecker interface {
	CheckAndCreate(ctx context.Context, productID, variantID string) (*models.InventoryAlert, error)
}

// StockCache mirrors counters for cheap availability pre-checks
type StockCache interface {
	SetStock(ctx context.Context, productID, variantID string, quantity, reserved int) error
	GetStock(ctx context.Context, productID, variantID string) (quantity, reserved int, ok bool, err error)
}

// StockLedger is the sole writer of stock counters. Every mutation
// appends an inventory change row, re-checks alert thresholds and
// publishes an update event.
type StockLedger struct {
	store  StockStore
	alerts AlertChecker
	events EventPublisher
	cache  StockCache
	logger *zap.Logger
}

// NewStockLedger creates a new stock ledger
func NewStockLedger(st StockStore, events EventPublisher, cache StockCache) *StockLedger {
	return &StockLedger{
		store:  st,
		events: events,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// SetAlertChecker wires the alert evaluator after construction; the
// evaluator itself needs no ledger so the dependency stays one-way.
func (l *StockLedger) SetAlertChecker(alerts AlertChecker) {
	l.alerts = alerts
}

// GetStock reads the authoritative counters
func (l *StockLedger) GetStock(ctx context.Context, productID, variantID string) (*models.StockItem, error) {
	return l.store.GetStock(ctx, productID, variantID)
}

// Available returns the currently reservable units, preferring the
// cache. The value is advisory; the reserve precondition is enforced in
// the store.
func (l *StockLedger) Available(ctx context.Context, productID, variantID string) (int, error) {
	if l.cache != nil {
		if qty, reserved, ok, err := l.cache.GetStock(ctx, productID, variantID); err == nil && ok {
			return qty - reserved, nil
		}
	}

	item, err := l.store.GetStock(ctx, productID, variantID)
	if err != nil {
		return 0, err
	}
	return item.Available(), nil
}

// Reserve places a hold of qty units
func (l *StockLedger) Reserve(ctx context.Context, productID, variantID string, qty int, reason, referenceID, userID string) error {
	if qty <= 0 {
		return fmt.Errorf("reserve quantity must be positive: %w", apperr.ErrInvalidArgument)
	}

	start := time.Now()
	snap, err := l.store.ReserveStock(ctx, productID, variantID, qty)
	util.StockReserveLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}

	l.afterMutation(ctx, productID, variantID, models.ChangeTypeReserve, qty, snap, reason, referenceID, userID)
	return nil
}

// Release returns qty held units to available
func (l *StockLedger) Release(ctx context.Context, productID, variantID string, qty int, reason, referenceID, userID string) error {
	if qty <= 0 {
		return fmt.Errorf("release quantity must be positive: %w", apperr.ErrInvalidArgument)
	}

	snap, err := l.store.ReleaseStock(ctx, productID, variantID, qty)
	if err != nil {
		return err
	}

	l.afterMutation(ctx, productID, variantID, models.ChangeTypeRelease, qty, snap, reason, referenceID, userID)
	return nil
}

// Confirm converts qty held units into a permanent decrement
func (l *StockLedger) Confirm(ctx context.Context, productID, variantID string, qty int, referenceID, userID string) error {
	if qty <= 0 {
		return fmt.Errorf("confirm quantity must be positive: %w", apperr.ErrInvalidArgument)
	}

	snap, err := l.store.ConfirmStock(ctx, productID, variantID, qty)
	if err != nil {
		return err
	}

	l.afterMutation(ctx, productID, variantID, models.ChangeTypeDecrement, qty, snap, "reservation confirmed", referenceID, userID)
	return nil
}

// Adjust applies a manual increment or decrement of owned units
func (l *StockLedger) Adjust(ctx context.Context, changeType, productID, variantID string, qty int, reason, referenceID, userID string) (*models.StockItem, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("adjust quantity must be positive: %w", apperr.ErrInvalidArgument)
	}

	var snap *store.StockSnapshot
	var err error
	switch changeType {
	case models.ChangeTypeIncrement:
		snap, err = l.store.IncrementQuantity(ctx, productID, variantID, qty)
	case models.ChangeTypeDecrement:
		snap, err = l.store.DecrementQuantity(ctx, productID, variantID, qty)
	default:
		return nil, fmt.Errorf("unknown adjustment type %q: %w", changeType, apperr.ErrInvalidArgument)
	}
	if err != nil {
		return nil, err
	}

	l.afterMutation(ctx, productID, variantID, changeType, qty, snap, reason, referenceID, userID)

	return l.store.GetStock(ctx, productID, variantID)
}

// Rollback restores qty units of owned stock for a cancelled order. The
// units were permanently decremented at confirm time, so this is an
// increment, not a release.
func (l *StockLedger) Rollback(ctx context.Context, productID, variantID string, qty int, orderID string) error {
	if qty <= 0 {
		return fmt.Errorf("rollback quantity must be positive: %w", apperr.ErrInvalidArgument)
	}

	snap, err := l.store.IncrementQuantity(ctx, productID, variantID, qty)
	if err != nil {
		return err
	}

	l.afterMutation(ctx, productID, variantID, models.ChangeTypeRollback, qty, snap, "order cancelled", orderID, "")
	return nil
}

// Changes returns the audit trail for a product, newest first
func (l *StockLedger) Changes(ctx context.Context, productID, variantID string, page, pageSize int) ([]models.InventoryChange, error) {
	return l.store.ListChanges(ctx, productID, variantID, page, pageSize)
}

// SetThreshold updates the low stock threshold and re-evaluates alerts
func (l *StockLedger) SetThreshold(ctx context.Context, productID, variantID string, threshold int) error {
	if threshold < 0 {
		return fmt.Errorf("threshold must not be negative: %w", apperr.ErrInvalidArgument)
	}

	if err := l.store.SetLowStockThreshold(ctx, productID, variantID, threshold); err != nil {
		return err
	}

	if l.alerts != nil {
		if _, err := l.alerts.CheckAndCreate(ctx, productID, variantID); err != nil {
			l.logger.Warn("Alert check after threshold update failed",
				zap.String("product_id", productID),
				zap.Error(err))
		}
	}
	return nil
}

// afterMutation handles the bookkeeping every counter change shares:
// the audit row, the threshold check, the cache refresh and the update
// event. The audit row failure is logged loudly but cannot unwind the
// already-applied counter change.
func (l *StockLedger) afterMutation(ctx context.Context, productID, variantID, changeType string, qty int, snap *store.StockSnapshot, reason, referenceID, userID string) {
	change := &models.InventoryChange{
		ID:          uuid.New().String(),
		ProductID:   productID,
		VariantID:   variantID,
		ChangeType:  changeType,
		Quantity:    qty,
		NewQuantity: snap.Quantity,
		Reason:      reason,
		ReferenceID: referenceID,
		UserID:      userID,
	}
	if err := l.store.InsertChange(ctx, change); err != nil {
		util.ChangeWriteFailuresTotal.Inc()
		l.logger.Error("Failed to append inventory change",
			zap.String("product_id", productID),
			zap.String("change_type", changeType),
			zap.Error(err))
	}

	if l.cache != nil {
		if err := l.cache.SetStock(ctx, productID, variantID, snap.Quantity, snap.Reserved); err != nil {
			l.logger.Warn("Failed to refresh stock cache",
				zap.String("product_id", productID),
				zap.Error(err))
		}
	}

	if l.alerts != nil {
		if _, err := l.alerts.CheckAndCreate(ctx, productID, variantID); err != nil {
			l.logger.Warn("Alert check failed",
				zap.String("product_id", productID),
				zap.Error(err))
		}
	}

	if l.events != nil {
		event := &models.InventoryUpdatedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeInventoryUpdated,
				Timestamp: time.Now(),
			},
			ProductID:  productID,
			VariantID:  variantID,
			ChangeType: changeType,
			Quantity:   snap.Quantity,
			Reserved:   snap.Reserved,
		}
		if err := l.events.PublishInventoryUpdated(ctx, event); err != nil {
			l.logger.Warn("Failed to publish InventoryUpdated event", zap.Error(err))
		}
	}
}
