package models

import "time"

// StockItem represents the counters for one product or variant.
// The main stock row for a product uses an empty variant ID; variants
// carry the same quantity/reserved pair so confirm and release are
// symmetric across both.
type StockItem struct {
	ProductID         string    `db:"product_id" json:"product_id"`
	VariantID         string    `db:"variant_id" json:"variant_id,omitempty"`
	Quantity          int       `db:"quantity" json:"quantity"`
	Reserved          int       `db:"reserved" json:"reserved"`
	LowStockThreshold int       `db:"low_stock_threshold" json:"low_stock_threshold"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// Available is derived, never stored.
func (s *StockItem) Available() int {
	return s.Quantity - s.Reserved
}

// Reservation represents a temporary hold on stock for an owner
type Reservation struct {
	ID          string    `db:"id" json:"id"`
	OwnerID     string    `db:"owner_id" json:"owner_id"`
	OwnerType   string    `db:"owner_type" json:"owner_type"`
	SessionID   string    `db:"session_id" json:"session_id,omitempty"`
	UserID      string    `db:"user_id" json:"user_id,omitempty"`
	ReferenceID string    `db:"reference_id" json:"reference_id,omitempty"`
	Status      string    `db:"status" json:"status"`
	ExpiresAt   time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`

	Items []ReservationItem `db:"-" json:"items"`
}

// ReservationItem is one product line held by a reservation
type ReservationItem struct {
	ReservationID string `db:"reservation_id" json:"-"`
	ProductID     string `db:"product_id" json:"product_id"`
	VariantID     string `db:"variant_id" json:"variant_id,omitempty"`
	Quantity      int    `db:"quantity" json:"quantity"`
}

// Reservation statuses. Transitions only leave "active"; the other
// three are terminal.
const (
	ReservationStatusActive    = "active"
	ReservationStatusUsed      = "used"
	ReservationStatusCancelled = "cancelled"
	ReservationStatusExpired   = "expired"
)

// InventoryChange is an append-only audit row for one stock mutation
type InventoryChange struct {
	ID          string    `db:"id" json:"id"`
	ProductID   string    `db:"product_id" json:"product_id"`
	VariantID   string    `db:"variant_id" json:"variant_id,omitempty"`
	ChangeType  string    `db:"change_type" json:"change_type"`
	Quantity    int       `db:"quantity" json:"quantity"`
	NewQuantity int       `db:"new_quantity" json:"new_quantity"`
	Reason      string    `db:"reason" json:"reason"`
	ReferenceID string    `db:"reference_id" json:"reference_id,omitempty"`
	UserID      string    `db:"user_id" json:"user_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Inventory change types
const (
	ChangeTypeIncrement = "increment"
	ChangeTypeDecrement = "decrement"
	ChangeTypeReserve   = "reserve"
	ChangeTypeRelease   = "release"
	ChangeTypeRollback  = "rollback"
)

// InventoryAlert is a derived notification that stock crossed a threshold
type InventoryAlert struct {
	ID              string     `db:"id" json:"id"`
	ProductID       string     `db:"product_id" json:"product_id"`
	ProductName     string     `db:"product_name" json:"product_name"`
	VariantID       string     `db:"variant_id" json:"variant_id,omitempty"`
	VariantName     string     `db:"variant_name" json:"variant_name,omitempty"`
	AlertType       string     `db:"alert_type" json:"alert_type"`
	Severity        string     `db:"severity" json:"severity"`
	Status          string     `db:"status" json:"status"`
	CurrentStock    int        `db:"current_stock" json:"current_stock"`
	Threshold       int        `db:"threshold" json:"threshold"`
	Message         string     `db:"message" json:"message"`
	SuggestedAction string     `db:"suggested_action" json:"suggested_action"`
	ResolvedBy      string     `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolutionNotes string     `db:"resolution_notes" json:"resolution_notes,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
	ResolvedAt      *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}

// Alert types
const (
	AlertTypeLowStock   = "LOW_STOCK"
	AlertTypeOutOfStock = "OUT_OF_STOCK"
)

// Alert severities
const (
	AlertSeverityLow    = "LOW"
	AlertSeverityMedium = "MEDIUM"
	AlertSeverityHigh   = "HIGH"
)

// Alert statuses
const (
	AlertStatusCreated  = "CREATED"
	AlertStatusNotified = "NOTIFIED"
	AlertStatusResolved = "RESOLVED"
	AlertStatusIgnored  = "IGNORED"
)

// ReconciliationTask marks a compensation step that failed and needs
// manual follow-up
type ReconciliationTask struct {
	ID        string    `db:"id" json:"id"`
	OrderID   string    `db:"order_id" json:"order_id"`
	Step      string    `db:"step" json:"step"`
	Cause     string    `db:"cause" json:"cause"`
	Resolved  bool      `db:"resolved" json:"resolved"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Compensation steps
const (
	CompensationStepRollback = "stock_rollback"
	CompensationStepRefund   = "refund"
)

// ReservationFilter narrows a reservation query. Zero values are
// ignored; ProductID matches item membership.
type ReservationFilter struct {
	OwnerID     string
	OwnerType   string
	SessionID   string
	UserID      string
	Status      string
	ReferenceID string
	ProductID   string
	VariantID   string
	Page        int
	PageSize    int
}
