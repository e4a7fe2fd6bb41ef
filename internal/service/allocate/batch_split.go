package allocate

import (
	"github.com/shopspring/decimal"

	"mes-staging/internal/quantity"
	"mes-staging/internal/storage"
)

const (
	SplitProportional = "proportional"
	SplitSequential   = "sequential"
)

// SplitFunc divides one order's allocated qty across a pool line's batches.
type SplitFunc func(qty float64, batches []storage.BatchQty, precision quantity.Precision) []storage.BatchQty

// SplitterFor maps a configured mode to its SplitFunc. Unknown modes are proportional.
func SplitterFor(mode string) SplitFunc {
	if mode == SplitSequential {
		return DrainBatches
	}
	return SplitByBatch
}

func positiveBatches(batches []storage.BatchQty) []storage.BatchQty {
	out := make([]storage.BatchQty, 0, len(batches))
	for _, b := range batches {
		if b.Qty > 0 {
			out = append(out, b)
		}
	}
	return out
}

// SplitByBatch gives every batch but the last its share of qty rounded up to
// the configured decimals. The last batch takes the residual, so the parts
// always sum to qty exactly.
func SplitByBatch(qty float64, batches []storage.BatchQty, precision quantity.Precision) []storage.BatchQty {
	precision = precision.Normalized()

	valid := positiveBatches(batches)
	switch len(valid) {
	case 0:
		return []storage.BatchQty{{Qty: qty}}
	case 1:
		return []storage.BatchQty{{BatchID: valid[0].BatchID, Qty: qty}}
	}

	want := decimal.NewFromFloat(qty)
	total := decimal.Zero
	for _, b := range valid {
		total = total.Add(decimal.NewFromFloat(b.Qty))
	}

	out := make([]storage.BatchQty, 0, len(valid))
	allocated := decimal.Zero

	for i, b := range valid {
		batchQty := decimal.NewFromFloat(b.Qty)

		var part decimal.Decimal
		if i == len(valid)-1 {
			part = want.Sub(allocated)
		} else {
			part = precision.CeilDec(want.Mul(batchQty).Div(total))
			part = decimal.Min(part, batchQty, want.Sub(allocated))
		}

		if !part.IsPositive() {
			continue
		}
		allocated = allocated.Add(part)
		out = append(out, storage.BatchQty{BatchID: b.BatchID, Qty: part.InexactFloat64()})
	}

	return out
}

// DrainBatches takes qty from the batches in the given order, emptying each
// before moving to the next.
func DrainBatches(qty float64, batches []storage.BatchQty, precision quantity.Precision) []storage.BatchQty {
	valid := positiveBatches(batches)
	if len(valid) == 0 {
		return []storage.BatchQty{{Qty: qty}}
	}

	left := decimal.NewFromFloat(qty)
	out := make([]storage.BatchQty, 0, len(valid))

	for i, b := range valid {
		if !left.IsPositive() {
			break
		}
		part := decimal.Min(left, decimal.NewFromFloat(b.Qty))
		if i == len(valid)-1 {
			part = left
		}
		left = left.Sub(part)
		out = append(out, storage.BatchQty{BatchID: b.BatchID, Qty: part.InexactFloat64()})
	}

	return out
}

// batchBalance tracks what is left of each pool line's batches while orders
// are being split against it.
type batchBalance struct {
	lines [][]storage.BatchQty
}

func newBatchBalance(pool []storage.PickPoolLine) *batchBalance {
	lines := make([][]storage.BatchQty, len(pool))
	for i, line := range pool {
		lines[i] = append([]storage.BatchQty(nil), line.Batches...)
	}
	return &batchBalance{lines: lines}
}

// take splits qty against the line's current balance and deducts the parts.
func (b *batchBalance) take(line int, qty float64, split SplitFunc, precision quantity.Precision) []storage.BatchQty {
	parts := split(qty, b.lines[line], precision)

	for _, part := range parts {
		if part.BatchID == "" {
			continue
		}
		for i := range b.lines[line] {
			if b.lines[line][i].BatchID == part.BatchID {
				b.lines[line][i].Qty = decimal.NewFromFloat(b.lines[line][i].Qty).Sub(decimal.NewFromFloat(part.Qty)).InexactFloat64()
				break
			}
		}
	}

	return parts
}
