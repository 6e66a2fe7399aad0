package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"inventory-service/internal/models"
	"inventory-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing inventory domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishInventoryReserved publishes an InventoryReserved event
func (ep *EventPublisher) PublishInventoryReserved(ctx context.Context, event *models.InventoryReservedEvent) error {
	key := fmt.Sprintf("reservation-%s", event.ReservationID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishInventoryUpdated publishes an InventoryUpdated event
func (ep *EventPublisher) PublishInventoryUpdated(ctx context.Context, event *models.InventoryUpdatedEvent) error {
	key := fmt.Sprintf("stock-%s-%s", event.ProductID, event.VariantID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishInventoryLow publishes an InventoryLow event
func (ep *EventPublisher) PublishInventoryLow(ctx context.Context, event *models.InventoryLowEvent) error {
	key := fmt.Sprintf("stock-%s-%s", event.ProductID, event.VariantID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler routes incoming order events
type EventHandler struct {
	onOrderCancelled func(context.Context, *models.OrderCancelledEvent) error
	logger           *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnOrderCancelled registers a handler for OrderCancelled events
func (eh *EventHandler) OnOrderCancelled(handler func(context.Context, *models.OrderCancelledEvent) error) {
	eh.onOrderCancelled = handler
}

// HandleMessage routes messages to the registered handlers. Unknown
// event types are skipped, not errors: the order topic carries more
// than this service consumes.
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeOrderCancelled:
		if eh.onOrderCancelled != nil {
			var event models.OrderCancelledEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderCancelled event: %w", err)
			}
			eh.logger.Info("Handling order cancellation",
				zap.String("event_id", event.EventID),
				zap.String("order_id", event.OrderID))
			return eh.onOrderCancelled(ctx, &event)
		}

	default:
		eh.logger.Debug("Skipping event", zap.String("event_type", baseEvent.EventType))
	}

	return nil
}
