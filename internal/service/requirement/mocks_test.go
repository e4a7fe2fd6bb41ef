package requirement

import (
	"context"

	"github.com/stretchr/testify/mock"

	"mes-staging/internal/storage"
)

type MockBillStore struct {
	mock.Mock
}

func (m *MockBillStore) GetBOMLines(ctx context.Context, billID string) ([]storage.BOMLine, error) {
	args := m.Called(ctx, billID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.BOMLine), args.Error(1)
}

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) SumMovedQuantity(ctx context.Context, orderID, itemID, warehouse string, kinds []storage.TransactionKind) (float64, error) {
	args := m.Called(ctx, orderID, itemID, warehouse, kinds)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockLedger) MovedByItem(ctx context.Context, orderID, warehouse string, kinds []storage.TransactionKind) (map[string]float64, error) {
	args := m.Called(ctx, orderID, warehouse, kinds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]float64), args.Error(1)
}

func (m *MockLedger) HasCommittedMovement(ctx context.Context, orderID string, kinds []storage.TransactionKind) (bool, error) {
	args := m.Called(ctx, orderID, kinds)
	return args.Bool(0), args.Error(1)
}

type MockOrderStore struct {
	mock.Mock
}

func (m *MockOrderStore) GetOrder(ctx context.Context, id string) (*storage.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.Order), args.Error(1)
}

func (m *MockOrderStore) GetOpenOrdersForLine(ctx context.Context, line string) ([]storage.Order, error) {
	args := m.Called(ctx, line)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.Order), args.Error(1)
}

func leaf(bill, item, uom string, perUnit float64) storage.BOMLine {
	return storage.BOMLine{BillID: bill, ItemID: item, UOM: uom, QtyPerUnit: perUnit}
}

func sub(bill, item, child string, perUnit float64) storage.BOMLine {
	return storage.BOMLine{BillID: bill, ItemID: item, UOM: "Kg", QtyPerUnit: perUnit, ChildBillID: child}
}
