package requirement

import (
	"context"
	"fmt"
	"math"

	"mes-staging/internal/storage"
)

var manufactureKinds = []storage.TransactionKind{storage.KindManufacture}

// Progress reports how much of the order's target output has been received.
func (c *Calculator) Progress(ctx context.Context, order storage.Order) (storage.Progress, error) {
	const op = "requirement.Progress"

	actual, err := c.ledger.SumMovedQuantity(ctx, order.ID, order.ProductionItem, "", manufactureKinds)
	if err != nil {
		return storage.Progress{}, fmt.Errorf("%s: %w", op, err)
	}

	return storage.Progress{
		OrderID:   order.ID,
		Target:    order.PlannedQty,
		Actual:    c.precision.Round(actual),
		Remaining: c.precision.Round(math.Max(order.PlannedQty-actual, 0)),
	}, nil
}
