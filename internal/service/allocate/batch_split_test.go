package allocate

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mes-staging/internal/quantity"
	"mes-staging/internal/storage"
)

func sumParts(parts []storage.BatchQty) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range parts {
		sum = sum.Add(decimal.NewFromFloat(p.Qty))
	}
	return sum
}

func TestSplitByBatch_Unbatched(t *testing.T) {
	assert.Equal(t, []storage.BatchQty{{Qty: 12.5}}, SplitByBatch(12.5, nil, quantity.Default()))
	assert.Equal(t, []storage.BatchQty{{BatchID: "B1", Qty: 12.5}},
		SplitByBatch(12.5, []storage.BatchQty{{BatchID: "B1", Qty: 60}}, quantity.Default()))
}

func TestSplitByBatch_CeilingWithResidual(t *testing.T) {
	parts := SplitByBatch(50, []storage.BatchQty{{BatchID: "B1", Qty: 40}, {BatchID: "B2", Qty: 20}}, quantity.Default())

	assert.Equal(t, []storage.BatchQty{{BatchID: "B1", Qty: 33.334}, {BatchID: "B2", Qty: 16.666}}, parts)
	assert.True(t, sumParts(parts).Equal(decimal.NewFromInt(50)))
}

func TestSplitByBatch_SkipsNonPositive(t *testing.T) {
	parts := SplitByBatch(10, []storage.BatchQty{
		{BatchID: "B1", Qty: 0},
		{BatchID: "B2", Qty: 5},
		{BatchID: "B3", Qty: -1},
		{BatchID: "B4", Qty: 5},
	}, quantity.Default())

	assert.Equal(t, []storage.BatchQty{{BatchID: "B2", Qty: 5}, {BatchID: "B4", Qty: 5}}, parts)
}

func TestDrainBatches_LastBatchAbsorbsRest(t *testing.T) {
	parts := DrainBatches(50, []storage.BatchQty{{BatchID: "batch1", Qty: 40}, {BatchID: "batch2", Qty: 20}}, quantity.Default())

	assert.Equal(t, []storage.BatchQty{{BatchID: "batch1", Qty: 40}, {BatchID: "batch2", Qty: 10}}, parts)
}

func TestSplitterFor(t *testing.T) {
	batches := []storage.BatchQty{{BatchID: "batch1", Qty: 40}, {BatchID: "batch2", Qty: 20}}

	assert.Equal(t, DrainBatches(50, batches, quantity.Default()), SplitterFor(SplitSequential)(50, batches, quantity.Default()))
	assert.Equal(t, SplitByBatch(50, batches, quantity.Default()), SplitterFor("")(50, batches, quantity.Default()))
}

// Parts always add up to the requested qty exactly.
func TestSplit_TotalsExact(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 500; round++ {
		var batches []storage.BatchQty
		total := 0.0
		for i := 0; i < 1+rng.Intn(6); i++ {
			q := float64(rng.Intn(100000)) / 1000
			total += q
			batches = append(batches, storage.BatchQty{BatchID: string(rune('a' + i)), Qty: q})
		}
		qty := decimal.NewFromFloat(total * rng.Float64()).Round(3).InexactFloat64()

		for _, split := range []SplitFunc{SplitByBatch, DrainBatches} {
			parts := split(qty, batches, quantity.Default())
			require.True(t, sumParts(parts).Equal(decimal.NewFromFloat(qty)), "round %d: %v -> %v", round, qty, parts)
			for _, p := range parts {
				require.Greater(t, p.Qty, 0.0)
			}
		}
	}
}

// Splitting every order against the shrinking balance of one line keeps each
// batch total intact when the whole line is allocated.
func TestBatchBalance_ConservesBatchTotals(t *testing.T) {
	pool := []storage.PickPoolLine{{
		ItemID:  "ITEM-X",
		Qty:     60,
		Batches: []storage.BatchQty{{BatchID: "B1", Qty: 40}, {BatchID: "B2", Qty: 20}},
	}}

	for _, mode := range []string{SplitProportional, SplitSequential} {
		balance := newBatchBalance(pool)
		perBatch := map[string]decimal.Decimal{}
		for _, qty := range []float64{50, 10} {
			for _, part := range balance.take(0, qty, SplitterFor(mode), quantity.Default()) {
				perBatch[part.BatchID] = perBatch[part.BatchID].Add(decimal.NewFromFloat(part.Qty))
			}
		}

		assert.True(t, perBatch["B1"].Equal(decimal.NewFromInt(40)), "%s: B1 %s", mode, perBatch["B1"])
		assert.True(t, perBatch["B2"].Equal(decimal.NewFromInt(20)), "%s: B2 %s", mode, perBatch["B2"])
	}

	assert.Equal(t, 40.0, pool[0].Batches[0].Qty)
}
