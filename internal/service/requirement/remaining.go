package requirement

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"mes-staging/internal/quantity"
	"mes-staging/internal/storage"
)

// ledgerReadLimit bounds concurrent ledger reads per order.
const ledgerReadLimit = 8

type Ledger interface {
	SumMovedQuantity(ctx context.Context, orderID, itemID, warehouse string, kinds []storage.TransactionKind) (float64, error)
	MovedByItem(ctx context.Context, orderID, warehouse string, kinds []storage.TransactionKind) (map[string]float64, error)
	HasCommittedMovement(ctx context.Context, orderID string, kinds []storage.TransactionKind) (bool, error)
}

type Remaining struct {
	OrderID   string                 `json:"order_id"`
	Warehouse string                 `json:"warehouse"`
	Items     storage.RequirementMap `json:"items"`
}

type Calculator struct {
	resolver  *Resolver
	ledger    Ledger
	lines     WarehouseResolver
	kinds     []storage.TransactionKind
	precision quantity.Precision
}

func NewCalculator(resolver *Resolver, ledger Ledger, lines WarehouseResolver, kinds []storage.TransactionKind, precision quantity.Precision) *Calculator {
	return &Calculator{
		resolver:  resolver,
		ledger:    ledger,
		lines:     lines,
		kinds:     kinds,
		precision: precision.Normalized(),
	}
}

// Remaining resolves the order's target warehouse and returns what is still
// to be moved there. Fully covered items are absent from the result.
func (c *Calculator) Remaining(ctx context.Context, order storage.Order, opts Options) (Remaining, error) {
	const op = "requirement.Remaining"

	target, err := TargetWarehouse(c.lines, order)
	if err != nil {
		return Remaining{}, fmt.Errorf("%s: %w", op, err)
	}

	items, err := c.RemainingIn(ctx, order, target, opts)
	if err != nil {
		return Remaining{}, fmt.Errorf("%s: %w", op, err)
	}

	return Remaining{OrderID: order.ID, Warehouse: target, Items: items}, nil
}

// RemainingIn is Remaining against an explicit warehouse.
func (c *Calculator) RemainingIn(ctx context.Context, order storage.Order, target string, opts Options) (storage.RequirementMap, error) {
	required, err := c.resolver.Resolve(ctx, order, opts)
	if err != nil {
		return nil, err
	}

	var (
		mu  sync.Mutex
		out = make(storage.RequirementMap, len(required))
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(ledgerReadLimit)

	for itemID, req := range required {
		g.Go(func() error {
			moved, err := c.ledger.SumMovedQuantity(gCtx, order.ID, itemID, target, c.kinds)
			if err != nil {
				return err
			}

			left := c.precision.Round(req.Qty - moved)
			if left <= 0 {
				return nil
			}

			mu.Lock()
			out[itemID] = storage.Requirement{UOM: req.UOM, Qty: left}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}
