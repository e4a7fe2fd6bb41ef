package closure

import (
	"fmt"

	"github.com/shopspring/decimal"

	"mes-staging/internal/storage"
)

type OrderQty struct {
	OrderID    string  `json:"order_id"`
	PlannedQty float64 `json:"planned_qty"`
}

type Share struct {
	OrderID   string             `json:"order_id"`
	Good      float64            `json:"good"`
	Reject    float64            `json:"reject"`
	Packaging map[string]float64 `json:"packaging"`
}

// SplitClosure splits good, reject and packaging usage across orders in
// proportion to planned quantity. Shares are used as computed; no order
// absorbs the rounding residual.
func SplitClosure(orders []OrderQty, good, reject float64, packaging map[string]float64) (map[string]Share, error) {
	const op = "closure.SplitClosure"

	if len(orders) == 0 {
		return nil, fmt.Errorf("%s: no orders: %w", op, storage.ErrInvalidInput)
	}
	if good <= 0 {
		return nil, fmt.Errorf("%s: good qty %v must be positive: %w", op, good, storage.ErrInvalidInput)
	}
	if reject < 0 {
		return nil, fmt.Errorf("%s: reject qty %v is negative: %w", op, reject, storage.ErrInvalidInput)
	}
	for item, qty := range packaging {
		if qty < 0 {
			return nil, fmt.Errorf("%s: packaging %s qty %v is negative: %w", op, item, qty, storage.ErrInvalidInput)
		}
	}

	total := decimal.Zero
	seen := make(map[string]bool, len(orders))
	for _, o := range orders {
		if o.PlannedQty < 0 {
			return nil, fmt.Errorf("%s: order %s planned qty %v is negative: %w", op, o.OrderID, o.PlannedQty, storage.ErrInvalidInput)
		}
		if seen[o.OrderID] {
			return nil, fmt.Errorf("%s: order %s listed twice: %w", op, o.OrderID, storage.ErrInvalidInput)
		}
		seen[o.OrderID] = true
		total = total.Add(decimal.NewFromFloat(o.PlannedQty))
	}
	if !total.IsPositive() {
		return nil, fmt.Errorf("%s: total planned qty %s: %w", op, total, storage.ErrInvalidInput)
	}

	share := func(aggregate float64, planned decimal.Decimal) float64 {
		return decimal.NewFromFloat(aggregate).Mul(planned).Div(total).InexactFloat64()
	}

	out := make(map[string]Share, len(orders))
	for _, o := range orders {
		planned := decimal.NewFromFloat(o.PlannedQty)

		s := Share{
			OrderID:   o.OrderID,
			Good:      share(good, planned),
			Reject:    share(reject, planned),
			Packaging: make(map[string]float64, len(packaging)),
		}
		for item, qty := range packaging {
			s.Packaging[item] = share(qty, planned)
		}
		out[o.OrderID] = s
	}

	return out, nil
}
