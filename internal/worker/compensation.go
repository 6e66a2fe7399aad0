package worker

import (
	"context"

	"inventory-service/internal/broker"
	"inventory-service/internal/service"
	"inventory-service/internal/util"
)

// CompensationWorker consumes order events and drives the cancellation
// compensator
type CompensationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewCompensationWorker creates a new compensation worker
func NewCompensationWorker(consumer *broker.Consumer, compensator *service.Compensator) *CompensationWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderCancelled(compensator.HandleOrderCancelled)

	return &CompensationWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
	}
}

// Start starts the worker
func (w *CompensationWorker) Start(ctx context.Context) error {
	util.GetLogger().Info("Starting compensation worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *CompensationWorker) Stop() error {
	util.GetLogger().Info("Stopping compensation worker")
	return w.consumer.Close()
}
