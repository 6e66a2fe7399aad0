package service

import (
	"context"
	"errors"

	"inventory-service/internal/apperr"
	"inventory-service/internal/models"
	"inventory-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentClient issues refund requests to the payment collaborator
type PaymentClient interface {
	Refund(ctx context.Context, paymentReference string, amount int64, reason string) error
}

// ReconciliationStore records compensation steps that need manual
// follow-up
type ReconciliationStore interface {
	InsertReconciliationTask(ctx context.Context, t *models.ReconciliationTask) error
}

// Statuses of the cancelled order that indicate money changed hands and
// a refund is owed
var refundableStatuses = map[string]bool{
	"paid":       true,
	"processing": true,
	"shipped":    true,
}

// Compensator reacts to order cancellations with two independent
// best-effort steps: stock rollback and payment refund. Either step can
// fail without blocking the other or the cancellation itself; failures
// leave a durable reconciliation task behind.
type Compensator struct {
	reservations *ReservationService
	payments     PaymentClient
	store        ReconciliationStore
	logger       *zap.Logger
}

// NewCompensator creates a new cancellation compensator
func NewCompensator(reservations *ReservationService, payments PaymentClient, st ReconciliationStore) *Compensator {
	return &Compensator{
		reservations: reservations,
		payments:     payments,
		store:        st,
		logger:       util.GetLogger(),
	}
}

// HandleOrderCancelled runs both compensation steps. It always returns
// nil: the order service already committed the cancellation and must
// not hang on internal reconciliation.
func (c *Compensator) HandleOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error {
	ctx, span := util.StartSpan(ctx, "Compensator.HandleOrderCancelled")
	defer span.End()

	c.logger.Info("Compensating cancelled order",
		zap.String("order_id", event.OrderID),
		zap.String("reservation_id", event.ReservationID),
		zap.String("previous_status", event.PreviousStatus))

	if err := c.rollbackStock(ctx, event); err != nil {
		c.recordFailure(ctx, event.OrderID, models.CompensationStepRollback, err)
	}

	if err := c.refund(ctx, event); err != nil {
		c.recordFailure(ctx, event.OrderID, models.CompensationStepRefund, err)
	}

	return nil
}

// rollbackStock restores the cancelled order's units. A known, still
// active reservation is cancelled (releasing the hold); a confirmed one
// already turned into a permanent decrement, so its items are rolled
// back instead. Without a reservation the order's own line items drive
// the rollback.
func (c *Compensator) rollbackStock(ctx context.Context, event *models.OrderCancelledEvent) error {
	items := toReservationItems(event.Items)

	if event.ReservationID != "" {
		reservation, err := c.reservations.Get(ctx, event.ReservationID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return err
		}

		if reservation != nil {
			switch reservation.Status {
			case models.ReservationStatusActive:
				return c.reservations.Cancel(ctx, event.ReservationID)
			case models.ReservationStatusUsed:
				if !c.reservations.RollbackForOrder(ctx, event.OrderID, reservation.Items) {
					return errors.New("rollback incomplete for one or more items")
				}
				return nil
			default:
				// Already cancelled or expired; the stock was released.
				return nil
			}
		}
	}

	if len(items) == 0 {
		return nil
	}
	if !c.reservations.RollbackForOrder(ctx, event.OrderID, items) {
		return errors.New("rollback incomplete for one or more items")
	}
	return nil
}

// refund issues a refund when the order was paid for
func (c *Compensator) refund(ctx context.Context, event *models.OrderCancelledEvent) error {
	if event.PaymentReference == "" || !refundableStatuses[event.PreviousStatus] {
		return nil
	}

	if err := c.payments.Refund(ctx, event.PaymentReference, event.Amount, event.Reason); err != nil {
		return err
	}

	util.RefundsTotal.Inc()
	c.logger.Info("Refund requested",
		zap.String("order_id", event.OrderID),
		zap.String("payment_reference", event.PaymentReference),
		zap.Int64("amount", event.Amount))
	return nil
}

// recordFailure logs the failed step and leaves a durable marker for
// manual reconciliation
func (c *Compensator) recordFailure(ctx context.Context, orderID, step string, cause error) {
	util.CompensationFailuresTotal.WithLabelValues(step).Inc()
	c.logger.Warn("Compensation step failed",
		zap.String("order_id", orderID),
		zap.String("step", step),
		zap.Error(cause))

	task := &models.ReconciliationTask{
		ID:      uuid.New().String(),
		OrderID: orderID,
		Step:    step,
		Cause:   cause.Error(),
	}
	if err := c.store.InsertReconciliationTask(ctx, task); err != nil {
		c.logger.Error("Failed to record reconciliation task",
			zap.String("order_id", orderID),
			zap.String("step", step),
			zap.Error(err))
	}
}

func toReservationItems(items []models.CancelledItemData) []models.ReservationItem {
	out := make([]models.ReservationItem, 0, len(items))
	for _, item := range items {
		out = append(out, models.ReservationItem{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
	}
	return out
}
