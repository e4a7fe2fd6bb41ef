package requirement

import (
	"context"
	"fmt"

	"mes-staging/internal/storage"
)

type BillStore interface {
	GetBOMLines(ctx context.Context, billID string) ([]storage.BOMLine, error)
}

type Options struct {
	// LeafOnly drops lines that have a bill of their own.
	LeafOnly bool
	// Exploded replaces sub-assembly lines by their own bill lines, scaled down the tree.
	Exploded bool
}

// LeafOptions is what staging works with: exploded raw materials only.
var LeafOptions = Options{LeafOnly: true, Exploded: true}

type Resolver struct {
	bills BillStore
}

func NewResolver(bills BillStore) *Resolver {
	return &Resolver{bills: bills}
}

// Resolve returns qty-per-unit x planned qty summed per item for the order's bill.
func (r *Resolver) Resolve(ctx context.Context, order storage.Order, opts Options) (storage.RequirementMap, error) {
	const op = "requirement.Resolve"

	if order.BillID == "" {
		return nil, fmt.Errorf("%s: order %s has no bill of materials: %w", op, order.ID, storage.ErrNotFound)
	}
	if order.PlannedQty < 0 {
		return nil, fmt.Errorf("%s: order %s planned qty %v: %w", op, order.ID, order.PlannedQty, storage.ErrInvalidInput)
	}

	out := make(storage.RequirementMap)
	path := map[string]bool{}

	if err := r.walk(ctx, order.BillID, order.PlannedQty, opts, path, out); err != nil {
		return nil, fmt.Errorf("%s: order %s: %w", op, order.ID, err)
	}

	return out, nil
}

func (r *Resolver) walk(ctx context.Context, billID string, factor float64, opts Options, path map[string]bool, out storage.RequirementMap) error {
	if path[billID] {
		return fmt.Errorf("bill %s references itself: %w", billID, storage.ErrInvalidInput)
	}
	path[billID] = true
	defer delete(path, billID)

	lines, err := r.bills.GetBOMLines(ctx, billID)
	if err != nil {
		return fmt.Errorf("bill %s: %w", billID, err)
	}

	for _, line := range lines {
		if line.QtyPerUnit < 0 {
			return fmt.Errorf("bill %s item %s qty %v: %w", billID, line.ItemID, line.QtyPerUnit, storage.ErrInvalidInput)
		}

		qty := line.QtyPerUnit * factor

		if !line.IsLeaf() {
			if opts.Exploded {
				if err := r.walk(ctx, line.ChildBillID, qty, opts, path, out); err != nil {
					return err
				}
				continue
			}
			if opts.LeafOnly {
				continue
			}
		}

		req := out[line.ItemID]
		if req.UOM == "" {
			req.UOM = line.UOM
		}
		req.Qty += qty
		out[line.ItemID] = req
	}

	return nil
}
