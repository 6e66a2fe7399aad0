package service

import (
	"context"

	"inventory-service/internal/models"
)

// EventPublisher publishes inventory domain events. Delivery is
// fire-and-forget everywhere: a publish failure never fails the
// operation that triggered it.
type EventPublisher interface {
	PublishInventoryReserved(ctx context.Context, event *models.InventoryReservedEvent) error
	PublishInventoryUpdated(ctx context.Context, event *models.InventoryUpdatedEvent) error
	PublishInventoryLow(ctx context.Context, event *models.InventoryLowEvent) error
}
