package requirement

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mes-staging/internal/storage"
)

func chipsBills() *MockBillStore {
	bills := new(MockBillStore)
	bills.On("GetBOMLines", mock.Anything, "BOM-CHIPS").Return([]storage.BOMLine{
		leaf("BOM-CHIPS", "POTATO", "Kg", 0.5),
		leaf("BOM-CHIPS", "OIL", "Kg", 0.1),
		sub("BOM-CHIPS", "SEASONING", "BOM-SEASON", 0.02),
		leaf("BOM-CHIPS", "POTATO", "Kg", 0.25),
	}, nil)
	bills.On("GetBOMLines", mock.Anything, "BOM-SEASON").Return([]storage.BOMLine{
		leaf("BOM-SEASON", "SALT", "Kg", 0.5),
		leaf("BOM-SEASON", "PAPRIKA", "Kg", 0.5),
	}, nil)
	return bills
}

func TestResolver_Direct(t *testing.T) {
	r := NewResolver(chipsBills())

	req, err := r.Resolve(context.Background(), storage.Order{ID: "WO-1", BillID: "BOM-CHIPS", PlannedQty: 100}, Options{})
	require.NoError(t, err)

	assert.Len(t, req, 3)
	assert.InDelta(t, 75, req["POTATO"].Qty, 1e-9)
	assert.InDelta(t, 10, req["OIL"].Qty, 1e-9)
	assert.InDelta(t, 2, req["SEASONING"].Qty, 1e-9)
	assert.Equal(t, "Kg", req["POTATO"].UOM)
}

func TestResolver_LeafOnly(t *testing.T) {
	r := NewResolver(chipsBills())

	req, err := r.Resolve(context.Background(), storage.Order{ID: "WO-1", BillID: "BOM-CHIPS", PlannedQty: 100}, Options{LeafOnly: true})
	require.NoError(t, err)

	assert.NotContains(t, req, "SEASONING")
	assert.Len(t, req, 2)
}

func TestResolver_Exploded(t *testing.T) {
	r := NewResolver(chipsBills())

	req, err := r.Resolve(context.Background(), storage.Order{ID: "WO-1", BillID: "BOM-CHIPS", PlannedQty: 100}, LeafOptions)
	require.NoError(t, err)

	assert.NotContains(t, req, "SEASONING")
	assert.InDelta(t, 1, req["SALT"].Qty, 1e-9)
	assert.InDelta(t, 1, req["PAPRIKA"].Qty, 1e-9)
	assert.InDelta(t, 75, req["POTATO"].Qty, 1e-9)
}

func TestResolver_NoBill(t *testing.T) {
	r := NewResolver(new(MockBillStore))

	_, err := r.Resolve(context.Background(), storage.Order{ID: "WO-1"}, Options{})
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestResolver_EmptyBill(t *testing.T) {
	bills := new(MockBillStore)
	bills.On("GetBOMLines", mock.Anything, "BOM-EMPTY").Return([]storage.BOMLine{}, nil)

	req, err := NewResolver(bills).Resolve(context.Background(), storage.Order{ID: "WO-1", BillID: "BOM-EMPTY", PlannedQty: 5}, Options{})
	require.NoError(t, err)
	assert.Empty(t, req)
}

func TestResolver_Cycle(t *testing.T) {
	bills := new(MockBillStore)
	bills.On("GetBOMLines", mock.Anything, "A").Return([]storage.BOMLine{sub("A", "X", "B", 1)}, nil)
	bills.On("GetBOMLines", mock.Anything, "B").Return([]storage.BOMLine{sub("B", "Y", "A", 1)}, nil)

	_, err := NewResolver(bills).Resolve(context.Background(), storage.Order{ID: "WO-1", BillID: "A", PlannedQty: 1}, LeafOptions)
	assert.True(t, errors.Is(err, storage.ErrInvalidInput))
}

func TestResolver_StoreError(t *testing.T) {
	bills := new(MockBillStore)
	bills.On("GetBOMLines", mock.Anything, "BOM-CHIPS").Return(nil, errors.New("db down"))

	_, err := NewResolver(bills).Resolve(context.Background(), storage.Order{ID: "WO-1", BillID: "BOM-CHIPS", PlannedQty: 1}, Options{})
	assert.ErrorContains(t, err, "db down")
}
