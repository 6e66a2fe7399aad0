package service

import (
	"context"
	"errors"
	"testing"

	"inventory-service/internal/apperr"
	"inventory-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name      string
		available int
		threshold int
		alertType string
		severity  string
	}{
		{"out of stock", 0, 5, models.AlertTypeOutOfStock, models.AlertSeverityHigh},
		{"negative availability", -1, 5, models.AlertTypeOutOfStock, models.AlertSeverityHigh},
		{"below half threshold", 2, 5, models.AlertTypeLowStock, models.AlertSeverityMedium},
		{"at threshold", 5, 5, models.AlertTypeLowStock, models.AlertSeverityLow},
		{"between half and threshold", 4, 5, models.AlertTypeLowStock, models.AlertSeverityLow},
		{"above threshold", 6, 5, "", ""},
		{"threshold disabled", 3, 0, "", ""},
		{"threshold disabled but empty", 0, 0, models.AlertTypeOutOfStock, models.AlertSeverityHigh},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			alertType, severity := classify(tc.available, tc.threshold)
			assert.Equal(t, tc.alertType, alertType)
			assert.Equal(t, tc.severity, severity)
		})
	}
}

func TestCheckAndCreateOpensAlert(t *testing.T) {
	stock := newFakeStockStore()
	stock.seed("p1", "", 10, 5)
	alerts := newFakeAlertStore(stock)
	catalog := &fakeCatalog{names: map[string]string{"p1": "Blue Mug"}}
	events := &fakePublisher{}
	evaluator := NewAlertEvaluator(alerts, catalog, events)

	// Reserve 6 so only 4 remain available.
	_, err := stock.ReserveStock(context.Background(), "p1", "", 6)
	require.NoError(t, err)

	alert, err := evaluator.CheckAndCreate(context.Background(), "p1", "")
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, models.AlertTypeLowStock, alert.AlertType)
	assert.Equal(t, models.AlertSeverityLow, alert.Severity)
	assert.Equal(t, models.AlertStatusCreated, alert.Status)
	assert.Equal(t, 4, alert.CurrentStock)
	assert.Equal(t, 5, alert.Threshold)
	assert.Equal(t, "Blue Mug", alert.ProductName)
	assert.NotEmpty(t, alert.Message)
	assert.NotEmpty(t, alert.SuggestedAction)
	assert.Len(t, events.low, 1)
}

func TestCheckAndCreateIdempotentWhileOpen(t *testing.T) {
	stock := newFakeStockStore()
	stock.seed("p1", "", 2, 5)
	alerts := newFakeAlertStore(stock)
	evaluator := NewAlertEvaluator(alerts, nil, nil)
	ctx := context.Background()

	first, err := evaluator.CheckAndCreate(ctx, "p1", "")
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := evaluator.CheckAndCreate(ctx, "p1", "")
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, alerts.alerts, 1)
}

func TestCheckAndCreateAfterResolveOpensNewAlert(t *testing.T) {
	stock := newFakeStockStore()
	stock.seed("p1", "", 2, 5)
	alerts := newFakeAlertStore(stock)
	evaluator := NewAlertEvaluator(alerts, nil, nil)
	ctx := context.Background()

	first, err := evaluator.CheckAndCreate(ctx, "p1", "")
	require.NoError(t, err)

	_, err = evaluator.Resolve(ctx, first.ID, "ops", "restock ordered")
	require.NoError(t, err)

	second, err := evaluator.CheckAndCreate(ctx, "p1", "")
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCheckAndCreateHealthyStock(t *testing.T) {
	stock := newFakeStockStore()
	stock.seed("p1", "", 100, 5)
	evaluator := NewAlertEvaluator(newFakeAlertStore(stock), nil, nil)

	alert, err := evaluator.CheckAndCreate(context.Background(), "p1", "")
	assert.NoError(t, err)
	assert.Nil(t, alert)
}

func TestCheckAndCreateUnknownProduct(t *testing.T) {
	evaluator := NewAlertEvaluator(newFakeAlertStore(newFakeStockStore()), nil, nil)

	alert, err := evaluator.CheckAndCreate(context.Background(), "missing", "")
	assert.NoError(t, err)
	assert.Nil(t, alert)
}

func TestCheckAndCreateCatalogUnavailable(t *testing.T) {
	stock := newFakeStockStore()
	stock.seed("p1", "v1", 0, 5)
	catalog := &fakeCatalog{err: errors.New("catalog down")}
	evaluator := NewAlertEvaluator(newFakeAlertStore(stock), catalog, nil)

	alert, err := evaluator.CheckAndCreate(context.Background(), "p1", "v1")
	require.NoError(t, err)
	require.NotNil(t, alert)
	// Falls back to the raw identifiers.
	assert.Equal(t, "p1", alert.ProductName)
	assert.Equal(t, "v1", alert.VariantName)
}

func TestResolveAlert(t *testing.T) {
	stock := newFakeStockStore()
	stock.seed("p1", "", 0, 5)
	alerts := newFakeAlertStore(stock)
	evaluator := NewAlertEvaluator(alerts, nil, nil)
	ctx := context.Background()

	alert, err := evaluator.CheckAndCreate(ctx, "p1", "")
	require.NoError(t, err)

	resolved, err := evaluator.Resolve(ctx, alert.ID, "ops", "restocked")
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusResolved, resolved.Status)
	assert.Equal(t, "ops", resolved.ResolvedBy)
	assert.Equal(t, "restocked", resolved.ResolutionNotes)
	assert.NotNil(t, resolved.ResolvedAt)
}

func TestResolveAlreadyClosedAlertIsNoOp(t *testing.T) {
	stock := newFakeStockStore()
	stock.seed("p1", "", 0, 5)
	alerts := newFakeAlertStore(stock)
	evaluator := NewAlertEvaluator(alerts, nil, nil)
	ctx := context.Background()

	alert, err := evaluator.CheckAndCreate(ctx, "p1", "")
	require.NoError(t, err)

	_, err = evaluator.Ignore(ctx, alert.ID, "ops", "known outage")
	require.NoError(t, err)

	// Resolving after ignore returns the record unchanged.
	got, err := evaluator.Resolve(ctx, alert.ID, "someone-else", "")
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusIgnored, got.Status)
	assert.Equal(t, "ops", got.ResolvedBy)
}

// Walks one product through reserve, confirm, alert and a rejected
// oversell in sequence.
func TestStockDepletionScenario(t *testing.T) {
	stock := newFakeStockStore()
	stock.seed("P1", "", 10, 5)
	alerts := newFakeAlertStore(stock)
	evaluator := NewAlertEvaluator(alerts, nil, nil)
	ledger := newTestLedger(stock)
	ledger.SetAlertChecker(evaluator)
	ctx := context.Background()

	require.NoError(t, ledger.Reserve(ctx, "P1", "", 8, "checkout", "res-1", ""))
	item, err := stock.GetStock(ctx, "P1", "")
	require.NoError(t, err)
	assert.Equal(t, 2, item.Available())

	require.NoError(t, ledger.Confirm(ctx, "P1", "", 8, "order-1", ""))
	item, err = stock.GetStock(ctx, "P1", "")
	require.NoError(t, err)
	assert.Equal(t, 2, item.Quantity)
	assert.Equal(t, 0, item.Reserved)

	alert, err := evaluator.CheckAndCreate(ctx, "P1", "")
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, models.AlertTypeLowStock, alert.AlertType)
	assert.Equal(t, models.AlertSeverityMedium, alert.Severity)

	assert.ErrorIs(t, ledger.Reserve(ctx, "P1", "", 3, "checkout", "res-2", ""),
		apperr.ErrInsufficientStock)
}

func TestLedgerMutationTriggersAlert(t *testing.T) {
	stock := newFakeStockStore()
	stock.seed("p1", "", 10, 5)
	alerts := newFakeAlertStore(stock)
	evaluator := NewAlertEvaluator(alerts, nil, nil)
	ledger := newTestLedger(stock)
	ledger.SetAlertChecker(evaluator)
	ctx := context.Background()

	require.NoError(t, ledger.Reserve(ctx, "p1", "", 6, "test", "", ""))

	open, err := alerts.ListActiveAlerts(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, models.AlertTypeLowStock, open[0].AlertType)
	assert.Equal(t, 4, open[0].CurrentStock)
}
