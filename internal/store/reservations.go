package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"inventory-service/internal/apperr"
	"inventory-service/internal/models"
)

// CreateReservation persists a reservation and its items in one transaction
func (s *Store) CreateReservation(ctx context.Context, r *models.Reservation) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO reservations (id, owner_id, owner_type, session_id, user_id, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	if err := tx.GetContext(ctx, &r.CreatedAt, query,
		r.ID, r.OwnerID, r.OwnerType, r.SessionID, r.UserID, r.Status, r.ExpiresAt); err != nil {
		return fmt.Errorf("failed to insert reservation: %w", err)
	}

	for i := range r.Items {
		r.Items[i].ReservationID = r.ID
		_, err := tx.ExecContext(ctx, `
			INSERT INTO reservation_items (reservation_id, product_id, variant_id, quantity)
			VALUES ($1, $2, $3, $4)`,
			r.ID, r.Items[i].ProductID, r.Items[i].VariantID, r.Items[i].Quantity)
		if err != nil {
			return fmt.Errorf("failed to insert reservation item: %w", err)
		}
	}

	return tx.Commit()
}

// GetReservationByID retrieves a reservation with its items
func (s *Store) GetReservationByID(ctx context.Context, id string) (*models.Reservation, error) {
	var r models.Reservation
	err := s.db.GetContext(ctx, &r, "SELECT * FROM reservations WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("reservation %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if err := s.db.SelectContext(ctx, &r.Items,
		"SELECT * FROM reservation_items WHERE reservation_id = $1", id); err != nil {
		return nil, err
	}

	return &r, nil
}

// TransitionReservation flips an active reservation into a terminal
// status. The status predicate makes the flip first-writer-wins: a
// cancel racing a sweep can only ever win once. Returns false when the
// reservation was not active anymore.
func (s *Store) TransitionReservation(ctx context.Context, id, toStatus, referenceID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE reservations
		SET status = $1, reference_id = COALESCE(NULLIF($2, ''), reference_id)
		WHERE id = $3 AND status = $4`,
		toStatus, referenceID, id, models.ReservationStatusActive)
	if err != nil {
		return false, fmt.Errorf("failed to transition reservation: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// ListExpiredActive returns up to limit reservations whose TTL has
// lapsed while still active
func (s *Store) ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error) {
	var reservations []models.Reservation
	err := s.db.SelectContext(ctx, &reservations, `
		SELECT * FROM reservations
		WHERE status = $1 AND expires_at < $2
		ORDER BY expires_at
		LIMIT $3`,
		models.ReservationStatusActive, now, limit)
	if err != nil {
		return nil, err
	}

	for i := range reservations {
		if err := s.db.SelectContext(ctx, &reservations[i].Items,
			"SELECT * FROM reservation_items WHERE reservation_id = $1",
			reservations[i].ID); err != nil {
			return nil, err
		}
	}

	return reservations, nil
}

// QueryReservations looks up reservations by owner, session, user,
// status, reference or item membership
func (s *Store) QueryReservations(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	add := func(clause, value string) {
		if value != "" {
			args = append(args, value)
			conditions = append(conditions, fmt.Sprintf(clause, len(args)))
		}
	}

	add("owner_id = $%d", filter.OwnerID)
	add("owner_type = $%d", filter.OwnerType)
	add("session_id = $%d", filter.SessionID)
	add("user_id = $%d", filter.UserID)
	add("status = $%d", filter.Status)
	add("reference_id = $%d", filter.ReferenceID)

	if filter.ProductID != "" {
		args = append(args, filter.ProductID)
		sub := fmt.Sprintf(
			"EXISTS (SELECT 1 FROM reservation_items ri WHERE ri.reservation_id = reservations.id AND ri.product_id = $%d",
			len(args))
		if filter.VariantID != "" {
			args = append(args, filter.VariantID)
			sub += fmt.Sprintf(" AND ri.variant_id = $%d", len(args))
		}
		sub += ")"
		conditions = append(conditions, sub)
	}

	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, pageSize, (page-1)*pageSize)

	query := fmt.Sprintf(`
		SELECT * FROM reservations
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		strings.Join(conditions, " AND "), len(args)-1, len(args))

	var reservations []models.Reservation
	if err := s.db.SelectContext(ctx, &reservations, query, args...); err != nil {
		return nil, err
	}

	for i := range reservations {
		if err := s.db.SelectContext(ctx, &reservations[i].Items,
			"SELECT * FROM reservation_items WHERE reservation_id = $1",
			reservations[i].ID); err != nil {
			return nil, err
		}
	}

	return reservations, nil
}
