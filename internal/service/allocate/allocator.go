// Package allocate distributes one picked pool of material across open
// production orders and turns the result into ledger movements.
package allocate

import (
	"sort"

	"github.com/shopspring/decimal"

	"mes-staging/internal/quantity"
	"mes-staging/internal/storage"
)

// Demand is one order with its remaining requirement snapshot.
type Demand struct {
	Order     storage.Order
	Warehouse string
	Remaining storage.RequirementMap
}

type Allocation struct {
	OrderID  string  `json:"order_id"`
	ItemID   string  `json:"item_id"`
	PoolLine int     `json:"pool_line"`
	Qty      float64 `json:"qty"`
}

type Plan struct {
	// Sequence is the FIFO order the demands were served in.
	Sequence    []string           `json:"sequence"`
	Allocations []Allocation       `json:"allocations"`
	Leftover    map[string]float64 `json:"leftover"`
}

// ByOrder folds allocations into order -> item -> qty. Orders that received
// nothing are absent.
func (p Plan) ByOrder() map[string]map[string]float64 {
	out := make(map[string]map[string]float64)
	for _, a := range p.Allocations {
		items, ok := out[a.OrderID]
		if !ok {
			items = make(map[string]float64)
			out[a.OrderID] = items
		}
		items[a.ItemID] = decimal.NewFromFloat(items[a.ItemID]).Add(decimal.NewFromFloat(a.Qty)).InexactFloat64()
	}
	return out
}

type Allocator struct {
	precision quantity.Precision
}

func NewAllocator(precision quantity.Precision) *Allocator {
	return &Allocator{precision: precision.Normalized()}
}

// Allocate serves every pool line to the demands in FIFO order, taking the
// smaller of what the order still needs and what the line has left. The
// inputs are not modified.
func (a *Allocator) Allocate(pool []storage.PickPoolLine, demands []Demand) Plan {
	ordered := make([]Demand, len(demands))
	copy(ordered, demands)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Order.Before(ordered[j].Order)
	})

	// Working copy of every snapshot, decremented as lines are served.
	need := make([]map[string]decimal.Decimal, len(ordered))
	plan := Plan{
		Sequence: make([]string, len(ordered)),
		Leftover: make(map[string]float64),
	}
	for i, d := range ordered {
		plan.Sequence[i] = d.Order.ID
		need[i] = make(map[string]decimal.Decimal, len(d.Remaining))
		for itemID, req := range d.Remaining {
			need[i][itemID] = decimal.NewFromFloat(req.Qty)
		}
	}

	eps := decimal.NewFromFloat(a.precision.Epsilon)

	for lineIdx, line := range pool {
		left := decimal.NewFromFloat(line.Qty)

		for i := range ordered {
			if left.LessThanOrEqual(eps) {
				break
			}

			want, ok := need[i][line.ItemID]
			if !ok || want.LessThanOrEqual(eps) {
				continue
			}

			take := decimal.Min(want, left)
			need[i][line.ItemID] = want.Sub(take)
			left = left.Sub(take)

			plan.Allocations = append(plan.Allocations, Allocation{
				OrderID:  ordered[i].Order.ID,
				ItemID:   line.ItemID,
				PoolLine: lineIdx,
				Qty:      take.InexactFloat64(),
			})
		}

		if left.GreaterThan(eps) {
			prev := decimal.NewFromFloat(plan.Leftover[line.ItemID])
			plan.Leftover[line.ItemID] = prev.Add(left).InexactFloat64()
		}
	}

	return plan
}
