package models

import "time"

// Event types
const (
	EventTypeInventoryReserved = "INVENTORY_RESERVED"
	EventTypeInventoryUpdated  = "INVENTORY_UPDATED"
	EventTypeInventoryLow      = "INVENTORY_LOW"
	EventTypeOrderCancelled    = "ORDER_CANCELLED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// ReservedItemData represents one held line in an event payload
type ReservedItemData struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity"`
}

// InventoryReservedEvent published when a reservation is created
type InventoryReservedEvent struct {
	BaseEvent
	ReservationID string             `json:"reservation_id"`
	OwnerID       string             `json:"owner_id"`
	OwnerType     string             `json:"owner_type"`
	ExpiresAt     time.Time          `json:"expires_at"`
	Items         []ReservedItemData `json:"items"`
}

// InventoryUpdatedEvent published after every stock counter mutation
type InventoryUpdatedEvent struct {
	BaseEvent
	ProductID  string `json:"product_id"`
	VariantID  string `json:"variant_id,omitempty"`
	ChangeType string `json:"change_type"`
	Quantity   int    `json:"quantity"`
	Reserved   int    `json:"reserved"`
}

// InventoryLowEvent published when stock crosses its threshold
type InventoryLowEvent struct {
	BaseEvent
	ProductID    string `json:"product_id"`
	VariantID    string `json:"variant_id,omitempty"`
	CurrentStock int    `json:"current_stock"`
	Threshold    int    `json:"threshold"`
	Severity     string `json:"severity"`
}

// CancelledItemData represents one line of a cancelled order
type CancelledItemData struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity"`
}

// OrderCancelledEvent consumed from the order service; drives the
// compensation flow
type OrderCancelledEvent struct {
	BaseEvent
	OrderID          string              `json:"order_id"`
	ReservationID    string              `json:"reservation_id,omitempty"`
	Items            []CancelledItemData `json:"items"`
	PaymentReference string              `json:"payment_reference,omitempty"`
	PreviousStatus   string              `json:"previous_status"`
	Amount           int64               `json:"amount"`
	Reason           string              `json:"reason"`
}
