package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"inventory-service/internal/apperr"
	"inventory-service/internal/models"
	"inventory-service/internal/store"
)

func stockKey(productID, variantID string) string {
	return productID + "|" + variantID
}

// fakeStockStore mirrors the conditional-update semantics of the SQL
// store behind a mutex so concurrency tests exercise real contention.
type fakeStockStore struct {
	mu         sync.Mutex
	items      map[string]*models.StockItem
	changes    []models.InventoryChange
	failChange bool
}

func newFakeStockStore() *fakeStockStore {
	return &fakeStockStore{items: make(map[string]*models.StockItem)}
}

func (f *fakeStockStore) seed(productID, variantID string, quantity, threshold int) {
	f.items[stockKey(productID, variantID)] = &models.StockItem{
		ProductID:         productID,
		VariantID:         variantID,
		Quantity:          quantity,
		LowStockThreshold: threshold,
	}
}

func (f *fakeStockStore) GetStock(ctx context.Context, productID, variantID string) (*models.StockItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[stockKey(productID, variantID)]
	if !ok {
		return nil, fmt.Errorf("stock for product %s: %w", productID, apperr.ErrNotFound)
	}
	cp := *item
	return &cp, nil
}

func (f *fakeStockStore) ReserveStock(ctx context.Context, productID, variantID string, qty int) (*store.StockSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[stockKey(productID, variantID)]
	if !ok {
		return nil, fmt.Errorf("stock for product %s: %w", productID, apperr.ErrNotFound)
	}
	if item.Quantity-item.Reserved < qty {
		return nil, fmt.Errorf("reserve %d of product %s: %w", qty, productID, apperr.ErrInsufficientStock)
	}
	item.Reserved += qty
	return &store.StockSnapshot{Quantity: item.Quantity, Reserved: item.Reserved}, nil
}

func (f *fakeStockStore) ReleaseStock(ctx context.Context, productID, variantID string, qty int) (*store.StockSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[stockKey(productID, variantID)]
	if !ok {
		return nil, fmt.Errorf("stock for product %s: %w", productID, apperr.ErrNotFound)
	}
	if item.Reserved < qty {
		return nil, fmt.Errorf("release %d of product %s exceeds reserved: %w", qty, productID, apperr.ErrInvalidState)
	}
	item.Reserved -= qty
	return &store.StockSnapshot{Quantity: item.Quantity, Reserved: item.Reserved}, nil
}

func (f *fakeStockStore) ConfirmStock(ctx context.Context, productID, variantID string, qty int) (*store.StockSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[stockKey(productID, variantID)]
	if !ok {
		return nil, fmt.Errorf("stock for product %s: %w", productID, apperr.ErrNotFound)
	}
	if item.Reserved < qty {
		return nil, fmt.Errorf("confirm %d of product %s exceeds reserved: %w", qty, productID, apperr.ErrInvalidState)
	}
	item.Quantity -= qty
	item.Reserved -= qty
	return &store.StockSnapshot{Quantity: item.Quantity, Reserved: item.Reserved}, nil
}

func (f *fakeStockStore) IncrementQuantity(ctx context.Context, productID, variantID string, qty int) (*store.StockSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[stockKey(productID, variantID)]
	if !ok {
		item = &models.StockItem{ProductID: productID, VariantID: variantID}
		f.items[stockKey(productID, variantID)] = item
	}
	item.Quantity += qty
	return &store.StockSnapshot{Quantity: item.Quantity, Reserved: item.Reserved}, nil
}

func (f *fakeStockStore) DecrementQuantity(ctx context.Context, productID, variantID string, qty int) (*store.StockSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[stockKey(productID, variantID)]
	if !ok {
		return nil, fmt.Errorf("stock for product %s: %w", productID, apperr.ErrNotFound)
	}
	if item.Quantity-item.Reserved < qty {
		return nil, fmt.Errorf("decrement %d of product %s: %w", qty, productID, apperr.ErrInsufficientStock)
	}
	item.Quantity -= qty
	return &store.StockSnapshot{Quantity: item.Quantity, Reserved: item.Reserved}, nil
}

func (f *fakeStockStore) SetLowStockThreshold(ctx context.Context, productID, variantID string, threshold int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[stockKey(productID, variantID)]
	if !ok {
		return fmt.Errorf("stock for product %s: %w", productID, apperr.ErrNotFound)
	}
	item.LowStockThreshold = threshold
	return nil
}

func (f *fakeStockStore) InsertChange(ctx context.Context, c *models.InventoryChange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failChange {
		return errors.New("change ledger unavailable")
	}
	f.changes = append(f.changes, *c)
	return nil
}

func (f *fakeStockStore) ListChanges(ctx context.Context, productID, variantID string, page, pageSize int) ([]models.InventoryChange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.InventoryChange
	for _, c := range f.changes {
		if c.ProductID == productID && (variantID == "" || c.VariantID == variantID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStockStore) changesOfType(changeType string) []models.InventoryChange {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.InventoryChange
	for _, c := range f.changes {
		if c.ChangeType == changeType {
			out = append(out, c)
		}
	}
	return out
}

type fakeReservationStore struct {
	mu           sync.Mutex
	reservations map[string]*models.Reservation
	failCreate   bool
}

func newFakeReservationStore() *fakeReservationStore {
	return &fakeReservationStore{reservations: make(map[string]*models.Reservation)}
}

func (f *fakeReservationStore) CreateReservation(ctx context.Context, r *models.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return errors.New("reservation store unavailable")
	}
	r.CreatedAt = time.Now()
	cp := *r
	cp.Items = append([]models.ReservationItem(nil), r.Items...)
	f.reservations[r.ID] = &cp
	return nil
}

func (f *fakeReservationStore) GetReservationByID(ctx context.Context, id string) (*models.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reservations[id]
	if !ok {
		return nil, fmt.Errorf("reservation %s: %w", id, apperr.ErrNotFound)
	}
	cp := *r
	cp.Items = append([]models.ReservationItem(nil), r.Items...)
	return &cp, nil
}

func (f *fakeReservationStore) TransitionReservation(ctx context.Context, id, toStatus, referenceID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reservations[id]
	if !ok {
		return false, nil
	}
	if r.Status != models.ReservationStatusActive {
		return false, nil
	}
	r.Status = toStatus
	if referenceID != "" {
		r.ReferenceID = referenceID
	}
	return true, nil
}

func (f *fakeReservationStore) ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Reservation
	for _, r := range f.reservations {
		if r.Status == models.ReservationStatusActive && r.ExpiresAt.Before(now) {
			cp := *r
			cp.Items = append([]models.ReservationItem(nil), r.Items...)
			out = append(out, cp)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeReservationStore) QueryReservations(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Reservation
	for _, r := range f.reservations {
		if filter.OwnerID != "" && r.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		cp := *r
		out = append(out, cp)
	}
	return out, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	reserved []*models.InventoryReservedEvent
	updated  []*models.InventoryUpdatedEvent
	low      []*models.InventoryLowEvent
	err      error
}

func (f *fakePublisher) PublishInventoryReserved(ctx context.Context, event *models.InventoryReservedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.reserved = append(f.reserved, event)
	return nil
}

func (f *fakePublisher) PublishInventoryUpdated(ctx context.Context, event *models.InventoryUpdatedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.updated = append(f.updated, event)
	return nil
}

func (f *fakePublisher) PublishInventoryLow(ctx context.Context, event *models.InventoryLowEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.low = append(f.low, event)
	return nil
}

type fakeAlertStore struct {
	stock      *fakeStockStore
	mu         sync.Mutex
	alerts     map[string]*models.InventoryAlert
	failInsert bool
}

func newFakeAlertStore(stock *fakeStockStore) *fakeAlertStore {
	return &fakeAlertStore{stock: stock, alerts: make(map[string]*models.InventoryAlert)}
}

func (f *fakeAlertStore) GetStock(ctx context.Context, productID, variantID string) (*models.StockItem, error) {
	return f.stock.GetStock(ctx, productID, variantID)
}

func (f *fakeAlertStore) GetAlertByID(ctx context.Context, id string) (*models.InventoryAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.alerts[id]
	if !ok {
		return nil, fmt.Errorf("alert %s: %w", id, apperr.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAlertStore) GetActiveAlert(ctx context.Context, productID, variantID string) (*models.InventoryAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.alerts {
		if a.ProductID == productID && a.VariantID == variantID &&
			(a.Status == models.AlertStatusCreated || a.Status == models.AlertStatusNotified) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeAlertStore) InsertAlert(ctx context.Context, a *models.InventoryAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsert {
		return errors.New("alert store unavailable")
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	f.alerts[a.ID] = &cp
	return nil
}

func (f *fakeAlertStore) CloseAlert(ctx context.Context, id, toStatus, actor, notes string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.alerts[id]
	if !ok {
		return false, nil
	}
	if a.Status != models.AlertStatusCreated && a.Status != models.AlertStatusNotified {
		return false, nil
	}
	now := time.Now()
	a.Status = toStatus
	a.ResolvedBy = actor
	a.ResolutionNotes = notes
	a.ResolvedAt = &now
	return true, nil
}

func (f *fakeAlertStore) ListActiveAlerts(ctx context.Context, page, pageSize int) ([]models.InventoryAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.InventoryAlert
	for _, a := range f.alerts {
		if a.Status == models.AlertStatusCreated || a.Status == models.AlertStatusNotified {
			out = append(out, *a)
		}
	}
	return out, nil
}

type fakeCatalog struct {
	names map[string]string
	err   error
}

func (f *fakeCatalog) ProductName(ctx context.Context, productID, variantID string) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	return f.names[productID], f.names[variantID], nil
}

type refundCall struct {
	reference string
	amount    int64
	reason    string
}

type fakePaymentClient struct {
	mu    sync.Mutex
	calls []refundCall
	err   error
}

func (f *fakePaymentClient) Refund(ctx context.Context, paymentReference string, amount int64, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, refundCall{reference: paymentReference, amount: amount, reason: reason})
	return nil
}

type fakeReconciliationStore struct {
	mu    sync.Mutex
	tasks []models.ReconciliationTask
}

func (f *fakeReconciliationStore) InsertReconciliationTask(ctx context.Context, t *models.ReconciliationTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, *t)
	return nil
}
