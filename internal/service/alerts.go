package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inventory-service/internal/apperr"
	"inventory-service/internal/models"
	"inventory-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AlertStore is the persistence surface for alerts plus the stock read
// the evaluator needs
type AlertStore interface {
	GetStock(ctx context.Context, productID, variantID string) (*models.StockItem, error)
	GetAlertByID(ctx context.Context, id string) (*models.InventoryAlert, error)
	GetActiveAlert(ctx context.Context, productID, variantID string) (*models.InventoryAlert, error)
	InsertAlert(ctx context.Context, a *models.InventoryAlert) error
	CloseAlert(ctx context.Context, id, toStatus, actor, notes string) (bool, error)
	ListActiveAlerts(ctx context.Context, page, pageSize int) ([]models.InventoryAlert, error)
}

// ProductCatalog resolves display names for alert records. Lookups are
// best-effort; the catalog is an external collaborator.
type ProductCatalog interface {
	ProductName(ctx context.Context, productID, variantID string) (productName, variantName string, err error)
}

// AlertEvaluator inspects stock levels after mutations and maintains
// the low-stock / out-of-stock alert lifecycle
type AlertEvaluator struct {
	store   AlertStore
	catalog ProductCatalog
	events  EventPublisher
	logger  *zap.Logger
}

// NewAlertEvaluator creates a new alert evaluator
func NewAlertEvaluator(st AlertStore, catalog ProductCatalog, events EventPublisher) *AlertEvaluator {
	return &AlertEvaluator{
		store:   st,
		catalog: catalog,
		events:  events,
		logger:  util.GetLogger(),
	}
}

// CheckAndCreate evaluates current stock against the threshold and
// opens an alert when one is due. Idempotent: while an alert for the
// pair is still open, the existing record is returned unchanged.
func (e *AlertEvaluator) CheckAndCreate(ctx context.Context, productID, variantID string) (*models.InventoryAlert, error) {
	stock, err := e.store.GetStock(ctx, productID, variantID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	alertType, severity := classify(stock.Available(), stock.LowStockThreshold)
	if alertType == "" {
		return nil, nil
	}

	existing, err := e.store.GetActiveAlert(ctx, productID, variantID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	productName, variantName := productID, variantID
	if e.catalog != nil {
		if pn, vn, err := e.catalog.ProductName(ctx, productID, variantID); err == nil {
			productName, variantName = pn, vn
		}
	}

	alert := &models.InventoryAlert{
		ID:           uuid.New().String(),
		ProductID:    productID,
		ProductName:  productName,
		VariantID:    variantID,
		VariantName:  variantName,
		AlertType:    alertType,
		Severity:     severity,
		Status:       models.AlertStatusCreated,
		CurrentStock: stock.Available(),
		Threshold:    stock.LowStockThreshold,
	}
	alert.Message, alert.SuggestedAction = describe(alert)

	if err := e.store.InsertAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to create alert: %w", err)
	}

	util.AlertsCreatedTotal.WithLabelValues(alertType).Inc()
	e.logger.Info("Inventory alert created",
		zap.String("alert_id", alert.ID),
		zap.String("product_id", productID),
		zap.String("alert_type", alertType),
		zap.String("severity", severity),
		zap.Int("current_stock", alert.CurrentStock))

	if e.events != nil {
		event := &models.InventoryLowEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeInventoryLow,
				Timestamp: time.Now(),
			},
			ProductID:    productID,
			VariantID:    variantID,
			CurrentStock: alert.CurrentStock,
			Threshold:    alert.Threshold,
			Severity:     severity,
		}
		if err := e.events.PublishInventoryLow(ctx, event); err != nil {
			e.logger.Warn("Failed to publish InventoryLow event", zap.Error(err))
		}
	}

	return alert, nil
}

// Resolve closes an open alert, recording who resolved it. Resolving an
// alert that is already closed is a no-op returning the record as-is.
func (e *AlertEvaluator) Resolve(ctx context.Context, id, actor, notes string) (*models.InventoryAlert, error) {
	return e.close(ctx, id, models.AlertStatusResolved, actor, notes)
}

// Ignore dismisses an open alert without action
func (e *AlertEvaluator) Ignore(ctx context.Context, id, actor, notes string) (*models.InventoryAlert, error) {
	return e.close(ctx, id, models.AlertStatusIgnored, actor, notes)
}

// ActiveAlerts lists open alerts, newest first
func (e *AlertEvaluator) ActiveAlerts(ctx context.Context, page, pageSize int) ([]models.InventoryAlert, error) {
	return e.store.ListActiveAlerts(ctx, page, pageSize)
}

func (e *AlertEvaluator) close(ctx context.Context, id, toStatus, actor, notes string) (*models.InventoryAlert, error) {
	closed, err := e.store.CloseAlert(ctx, id, toStatus, actor, notes)
	if err != nil {
		return nil, err
	}

	alert, err := e.store.GetAlertByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if closed {
		e.logger.Info("Inventory alert closed",
			zap.String("alert_id", id),
			zap.String("status", toStatus),
			zap.String("actor", actor))
	}
	// Not closed means the alert was already terminal; return it unchanged.
	return alert, nil
}

// classify maps an availability reading onto an alert type and
// severity. A zero threshold disables low-stock alerts; out-of-stock
// still fires.
func classify(available, threshold int) (alertType, severity string) {
	switch {
	case available <= 0:
		return models.AlertTypeOutOfStock, models.AlertSeverityHigh
	case threshold > 0 && available <= threshold/2:
		return models.AlertTypeLowStock, models.AlertSeverityMedium
	case threshold > 0 && available <= threshold:
		return models.AlertTypeLowStock, models.AlertSeverityLow
	default:
		return "", ""
	}
}

func describe(a *models.InventoryAlert) (message, action string) {
	name := a.ProductName
	if a.VariantName != "" && a.VariantID != "" {
		name = fmt.Sprintf("%s (%s)", a.ProductName, a.VariantName)
	}
	if a.AlertType == models.AlertTypeOutOfStock {
		return fmt.Sprintf("%s is out of stock", name),
			"Restock immediately or pause sales for this item"
	}
	return fmt.Sprintf("%s is low on stock: %d left (threshold %d)", name, a.CurrentStock, a.Threshold),
		"Schedule a restock before the item sells out"
}
