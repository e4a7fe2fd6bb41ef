package requirement

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mes-staging/internal/config"
	"mes-staging/internal/quantity"
	"mes-staging/internal/storage"
)

var kinds = []storage.TransactionKind{storage.KindTransferToStaging, storage.KindTransferToWIP}

func lineSettings() config.LineSettings {
	return config.NewLineSettings(config.LineWarehouses{}, map[string]config.LineWarehouses{
		"Line – 1": {Staging: "Staging - L1"},
	})
}

func TestTargetWarehouse(t *testing.T) {
	lines := lineSettings()

	wh, err := TargetWarehouse(lines, storage.Order{ID: "a", Line: "line - 1", WIPWarehouse: "WIP"})
	require.NoError(t, err)
	assert.Equal(t, "Staging - L1", wh)

	wh, err = TargetWarehouse(lines, storage.Order{ID: "b", Line: "Line 2", WIPWarehouse: "WIP"})
	require.NoError(t, err)
	assert.Equal(t, "WIP", wh)

	_, err = TargetWarehouse(lines, storage.Order{ID: "c", Line: "Line 2"})
	assert.True(t, errors.Is(err, storage.ErrNoTargetWarehouse))
}

func TestCalculator_Remaining(t *testing.T) {
	ledger := new(MockLedger)
	ledger.On("SumMovedQuantity", mock.Anything, "WO-1", "POTATO", "Staging - L1", kinds).Return(75.0, nil)
	ledger.On("SumMovedQuantity", mock.Anything, "WO-1", "OIL", "Staging - L1", kinds).Return(4.0, nil)
	ledger.On("SumMovedQuantity", mock.Anything, "WO-1", "SALT", "Staging - L1", kinds).Return(3.0, nil)
	ledger.On("SumMovedQuantity", mock.Anything, "WO-1", "PAPRIKA", "Staging - L1", kinds).Return(0.0, nil)

	calc := NewCalculator(NewResolver(chipsBills()), ledger, lineSettings(), kinds, quantity.Default())

	rem, err := calc.Remaining(context.Background(), storage.Order{ID: "WO-1", BillID: "BOM-CHIPS", PlannedQty: 100, Line: "Line - 1"}, LeafOptions)
	require.NoError(t, err)

	assert.Equal(t, "Staging - L1", rem.Warehouse)
	// POTATO is covered, SALT is over-covered: both absent.
	assert.NotContains(t, rem.Items, "POTATO")
	assert.NotContains(t, rem.Items, "SALT")
	assert.InDelta(t, 6, rem.Items["OIL"].Qty, 1e-9)
	assert.InDelta(t, 1, rem.Items["PAPRIKA"].Qty, 1e-9)

	ledger.AssertExpectations(t)
}

func TestCalculator_Remaining_NoTarget(t *testing.T) {
	calc := NewCalculator(NewResolver(chipsBills()), new(MockLedger), lineSettings(), kinds, quantity.Default())

	_, err := calc.Remaining(context.Background(), storage.Order{ID: "WO-1", BillID: "BOM-CHIPS", PlannedQty: 1}, LeafOptions)
	assert.True(t, errors.Is(err, storage.ErrNoTargetWarehouse))
}

func TestCalculator_Remaining_LedgerError(t *testing.T) {
	ledger := new(MockLedger)
	ledger.On("SumMovedQuantity", mock.Anything, "WO-1", mock.Anything, "WIP", kinds).Return(0.0, storage.ErrLedger)

	calc := NewCalculator(NewResolver(chipsBills()), ledger, lineSettings(), kinds, quantity.Default())

	_, err := calc.Remaining(context.Background(), storage.Order{ID: "WO-1", BillID: "BOM-CHIPS", PlannedQty: 1, WIPWarehouse: "WIP"}, Options{})
	assert.True(t, errors.Is(err, storage.ErrLedger))
}

func TestCalculator_Progress(t *testing.T) {
	ledger := new(MockLedger)
	ledger.On("SumMovedQuantity", mock.Anything, "WO-1", "CHIPS", "", []storage.TransactionKind{storage.KindManufacture}).Return(130.0, nil)

	calc := NewCalculator(NewResolver(new(MockBillStore)), ledger, lineSettings(), kinds, quantity.Default())

	p, err := calc.Progress(context.Background(), storage.Order{ID: "WO-1", ProductionItem: "CHIPS", PlannedQty: 120})
	require.NoError(t, err)
	assert.Equal(t, 120.0, p.Target)
	assert.Equal(t, 130.0, p.Actual)
	assert.Zero(t, p.Remaining)
}
