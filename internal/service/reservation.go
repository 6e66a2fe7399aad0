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

// ReservationStore is the persistence surface for reservation records.
// Counter mutations never happen here; they go through the ledger.
type ReservationStore interface {
	CreateReservation(ctx context.Context, r *models.Reservation) error
	GetReservationByID(ctx context.Context, id string) (*models.Reservation, error)
	TransitionReservation(ctx context.Context, id, toStatus, referenceID string) (bool, error)
	ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error)
	QueryReservations(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, error)
}

// ReservationService owns the reservation lifecycle over the stock ledger
type ReservationService struct {
	store      ReservationStore
	ledger     *StockLedger
	events     EventPublisher
	defaultTTL time.Duration
	maxTTL     time.Duration
	logger     *zap.Logger
}

// NewReservationService creates a new reservation service
func NewReservationService(st ReservationStore, ledger *StockLedger, events EventPublisher, defaultTTL, maxTTL time.Duration) *ReservationService {
	return &ReservationService{
		store:      st,
		ledger:     ledger,
		events:     events,
		defaultTTL: defaultTTL,
		maxTTL:     maxTTL,
		logger:     util.GetLogger(),
	}
}

// CreateReservationRequest represents a request to hold stock
type CreateReservationRequest struct {
	OwnerID    string                   `json:"owner_id" binding:"required"`
	OwnerType  string                   `json:"owner_type" binding:"required"`
	SessionID  string                   `json:"session_id,omitempty"`
	UserID     string                   `json:"user_id,omitempty"`
	TTLMinutes int                      `json:"ttl_minutes,omitempty"`
	Items      []models.ReservationItem `json:"items" binding:"required,min=1"`
}

// Create holds stock for every requested item, all-or-nothing. Items
// are pre-checked for availability, then reserved one by one; the first
// failure releases everything already held in this call before the
// error surfaces.
func (s *ReservationService) Create(ctx context.Context, req *CreateReservationRequest) (*models.Reservation, error) {
	ctx, span := util.StartSpan(ctx, "ReservationService.Create")
	defer span.End()

	if err := s.validateCreate(req); err != nil {
		util.ReservationsFailedTotal.WithLabelValues("invalid_request").Inc()
		return nil, err
	}

	ttl := s.defaultTTL
	if req.TTLMinutes > 0 {
		ttl = time.Duration(req.TTLMinutes) * time.Minute
		if ttl > s.maxTTL {
			ttl = s.maxTTL
		}
	}

	// Advisory pre-check so an obviously short multi-item request fails
	// before any counters move. The store still enforces the real
	// precondition on each reserve.
	for _, item := range req.Items {
		available, err := s.ledger.Available(ctx, item.ProductID, item.VariantID)
		if err != nil {
			util.ReservationsFailedTotal.WithLabelValues("unknown_product").Inc()
			return nil, err
		}
		if available < item.Quantity {
			util.InsufficientStockTotal.Inc()
			util.ReservationsFailedTotal.WithLabelValues("insufficient_stock").Inc()
			return nil, fmt.Errorf("product %s has %d available, want %d: %w",
				item.ProductID, available, item.Quantity, apperr.ErrInsufficientStock)
		}
	}

	reservation := &models.Reservation{
		ID:        uuid.New().String(),
		OwnerID:   req.OwnerID,
		OwnerType: req.OwnerType,
		SessionID: req.SessionID,
		UserID:    req.UserID,
		Status:    models.ReservationStatusActive,
		ExpiresAt: time.Now().Add(ttl),
		Items:     req.Items,
	}

	reserved := make([]models.ReservationItem, 0, len(req.Items))
	for _, item := range req.Items {
		err := s.ledger.Reserve(ctx, item.ProductID, item.VariantID, item.Quantity,
			"reservation created", reservation.ID, req.UserID)
		if err != nil {
			s.releaseAll(ctx, reserved, reservation.ID, req.UserID)
			if errors.Is(err, apperr.ErrInsufficientStock) {
				util.InsufficientStockTotal.Inc()
				util.ReservationsFailedTotal.WithLabelValues("insufficient_stock").Inc()
			} else {
				util.ReservationsFailedTotal.WithLabelValues("reserve_error").Inc()
			}
			return nil, err
		}
		reserved = append(reserved, item)
	}

	if err := s.store.CreateReservation(ctx, reservation); err != nil {
		s.releaseAll(ctx, reserved, reservation.ID, req.UserID)
		util.ReservationsFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to persist reservation: %w", err)
	}

	util.ReservationsCreatedTotal.Inc()
	s.logger.Info("Reservation created",
		zap.String("reservation_id", reservation.ID),
		zap.String("owner_id", req.OwnerID),
		zap.Int("items", len(req.Items)))

	if s.events != nil {
		event := &models.InventoryReservedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeInventoryReserved,
				Timestamp: time.Now(),
			},
			ReservationID: reservation.ID,
			OwnerID:       reservation.OwnerID,
			OwnerType:     reservation.OwnerType,
			ExpiresAt:     reservation.ExpiresAt,
			Items:         toEventItems(reservation.Items),
		}
		if err := s.events.PublishInventoryReserved(ctx, event); err != nil {
			s.logger.Warn("Failed to publish InventoryReserved event", zap.Error(err))
		}
	}

	return reservation, nil
}

// Confirm transitions an active reservation to used and permanently
// decrements the held stock, stamping the order reference.
func (s *ReservationService) Confirm(ctx context.Context, id, referenceID string) error {
	ctx, span := util.StartSpan(ctx, "ReservationService.Confirm")
	defer span.End()

	if referenceID == "" {
		return fmt.Errorf("reference id is required: %w", apperr.ErrInvalidArgument)
	}

	reservation, err := s.store.GetReservationByID(ctx, id)
	if err != nil {
		return err
	}

	flipped, err := s.store.TransitionReservation(ctx, id, models.ReservationStatusUsed, referenceID)
	if err != nil {
		return err
	}
	if !flipped {
		return fmt.Errorf("reservation %s is %s: %w", id, reservation.Status, apperr.ErrInvalidState)
	}

	for _, item := range reservation.Items {
		if err := s.ledger.Confirm(ctx, item.ProductID, item.VariantID, item.Quantity, referenceID, reservation.UserID); err != nil {
			s.logger.Error("Failed to confirm stock for item",
				zap.String("reservation_id", id),
				zap.String("product_id", item.ProductID),
				zap.Error(err))
		}
	}

	util.ReservationsConfirmedTotal.Inc()
	s.logger.Info("Reservation confirmed",
		zap.String("reservation_id", id),
		zap.String("reference_id", referenceID))
	return nil
}

// Cancel transitions an active reservation to cancelled and releases
// its held stock
func (s *ReservationService) Cancel(ctx context.Context, id string) error {
	ctx, span := util.StartSpan(ctx, "ReservationService.Cancel")
	defer span.End()

	reservation, err := s.store.GetReservationByID(ctx, id)
	if err != nil {
		return err
	}

	flipped, err := s.store.TransitionReservation(ctx, id, models.ReservationStatusCancelled, "")
	if err != nil {
		return err
	}
	if !flipped {
		return fmt.Errorf("reservation %s is %s: %w", id, reservation.Status, apperr.ErrInvalidState)
	}

	for _, item := range reservation.Items {
		if err := s.ledger.Release(ctx, item.ProductID, item.VariantID, item.Quantity,
			"reservation cancelled", id, reservation.UserID); err != nil {
			s.logger.Error("Failed to release stock for item",
				zap.String("reservation_id", id),
				zap.String("product_id", item.ProductID),
				zap.Error(err))
		}
	}

	util.ReservationsCancelledTotal.Inc()
	s.logger.Info("Reservation cancelled", zap.String("reservation_id", id))
	return nil
}

// Get retrieves a reservation by ID
func (s *ReservationService) Get(ctx context.Context, id string) (*models.Reservation, error) {
	return s.store.GetReservationByID(ctx, id)
}

// Query lists reservations matching a filter
func (s *ReservationService) Query(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, error) {
	return s.store.QueryReservations(ctx, filter)
}

// CleanupExpired sweeps one batch of lapsed reservations. The status
// flip gates each release, so running concurrently with cancels or a
// second sweep releases every reservation's stock exactly once.
func (s *ReservationService) CleanupExpired(ctx context.Context, batchSize int) (int, error) {
	ctx, span := util.StartSpan(ctx, "ReservationService.CleanupExpired")
	defer span.End()

	expired, err := s.store.ListExpiredActive(ctx, time.Now(), batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired reservations: %w", err)
	}

	count := 0
	for _, reservation := range expired {
		if ctx.Err() != nil {
			return count, ctx.Err()
		}

		flipped, err := s.store.TransitionReservation(ctx, reservation.ID, models.ReservationStatusExpired, "")
		if err != nil {
			s.logger.Error("Failed to expire reservation",
				zap.String("reservation_id", reservation.ID),
				zap.Error(err))
			continue
		}
		if !flipped {
			// Lost the race to a cancel, confirm or concurrent sweep.
			continue
		}

		for _, item := range reservation.Items {
			if err := s.ledger.Release(ctx, item.ProductID, item.VariantID, item.Quantity,
				"expired", reservation.ID, reservation.UserID); err != nil {
				s.logger.Error("Failed to release stock for expired reservation",
					zap.String("reservation_id", reservation.ID),
					zap.String("product_id", item.ProductID),
					zap.Error(err))
			}
		}

		util.ReservationsExpiredTotal.Inc()
		count++
	}

	return count, nil
}

// RollbackForOrder releases quantities straight back to owned stock
// when no reservation is known for the order. Failures are logged and
// reported through the return value so the caller can continue.
func (s *ReservationService) RollbackForOrder(ctx context.Context, orderID string, items []models.ReservationItem) bool {
	ctx, span := util.StartSpan(ctx, "ReservationService.RollbackForOrder")
	defer span.End()

	ok := true
	for _, item := range items {
		if err := s.ledger.Rollback(ctx, item.ProductID, item.VariantID, item.Quantity, orderID); err != nil {
			s.logger.Error("Failed to roll back stock",
				zap.String("order_id", orderID),
				zap.String("product_id", item.ProductID),
				zap.Int("quantity", item.Quantity),
				zap.Error(err))
			ok = false
		}
	}

	if ok {
		util.RollbacksTotal.Inc()
	}
	return ok
}

func (s *ReservationService) validateCreate(req *CreateReservationRequest) error {
	if req.OwnerID == "" || req.OwnerType == "" {
		return fmt.Errorf("owner id and owner type are required: %w", apperr.ErrInvalidArgument)
	}
	if len(req.Items) == 0 {
		return fmt.Errorf("reservation needs at least one item: %w", apperr.ErrInvalidArgument)
	}
	for _, item := range req.Items {
		if item.ProductID == "" {
			return fmt.Errorf("item product id is required: %w", apperr.ErrInvalidArgument)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("item quantity must be positive: %w", apperr.ErrInvalidArgument)
		}
	}
	if req.TTLMinutes < 0 {
		return fmt.Errorf("ttl must not be negative: %w", apperr.ErrInvalidArgument)
	}
	return nil
}

// releaseAll undoes the holds taken earlier in a failed create call
func (s *ReservationService) releaseAll(ctx context.Context, items []models.ReservationItem, reservationID, userID string) {
	for _, item := range items {
		if err := s.ledger.Release(ctx, item.ProductID, item.VariantID, item.Quantity,
			"reservation aborted", reservationID, userID); err != nil {
			s.logger.Error("Failed to release stock while aborting reservation",
				zap.String("reservation_id", reservationID),
				zap.String("product_id", item.ProductID),
				zap.Error(err))
		}
	}
}

func toEventItems(items []models.ReservationItem) []models.ReservedItemData {
	out := make([]models.ReservedItemData, 0, len(items))
	for _, item := range items {
		out = append(out, models.ReservedItemData{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
	}
	return out
}
