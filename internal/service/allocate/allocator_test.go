package allocate

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mes-staging/internal/quantity"
	"mes-staging/internal/storage"
)

var day = time.Date(2026, 4, 1, 6, 0, 0, 0, time.UTC)

func demand(id string, created time.Time, item string, qty float64) Demand {
	return Demand{
		Order:     storage.Order{ID: id, CreatedAt: created},
		Warehouse: "Staging",
		Remaining: storage.RequirementMap{item: {UOM: "Kg", Qty: qty}},
	}
}

func scenarioDemands() []Demand {
	return []Demand{
		demand("B", day.Add(time.Hour), "ITEM-X", 20),
		demand("A", day, "ITEM-X", 50),
	}
}

func TestAllocate_PoolCoversFirstOrder(t *testing.T) {
	plan := NewAllocator(quantity.Default()).Allocate(
		[]storage.PickPoolLine{{ItemID: "ITEM-X", Qty: 60}}, scenarioDemands())

	assert.Equal(t, map[string]map[string]float64{
		"A": {"ITEM-X": 50},
		"B": {"ITEM-X": 10},
	}, plan.ByOrder())
	assert.Empty(t, plan.Leftover)
	assert.Equal(t, []string{"A", "B"}, plan.Sequence)
}

func TestAllocate_PoolShort(t *testing.T) {
	plan := NewAllocator(quantity.Default()).Allocate(
		[]storage.PickPoolLine{{ItemID: "ITEM-X", Qty: 30}}, scenarioDemands())

	assert.Equal(t, map[string]map[string]float64{"A": {"ITEM-X": 30}}, plan.ByOrder())
	assert.Empty(t, plan.Leftover)
}

func TestAllocate_LeftoverIsReported(t *testing.T) {
	plan := NewAllocator(quantity.Default()).Allocate(
		[]storage.PickPoolLine{{ItemID: "ITEM-X", Qty: 100}}, scenarioDemands())

	assert.InDelta(t, 30, plan.Leftover["ITEM-X"], 1e-9)
}

func TestAllocate_PlannedStartBeatsCreation(t *testing.T) {
	planned := day.Add(-time.Hour)
	demands := scenarioDemands()
	demands[0].Order.PlannedStart = &planned

	plan := NewAllocator(quantity.Default()).Allocate(
		[]storage.PickPoolLine{{ItemID: "ITEM-X", Qty: 25}}, demands)

	assert.Equal(t, map[string]map[string]float64{
		"B": {"ITEM-X": 20},
		"A": {"ITEM-X": 5},
	}, plan.ByOrder())
}

func TestAllocate_TiesBrokenByID(t *testing.T) {
	demands := []Demand{
		demand("WO-2", day, "ITEM-X", 10),
		demand("WO-1", day, "ITEM-X", 10),
	}

	plan := NewAllocator(quantity.Default()).Allocate(
		[]storage.PickPoolLine{{ItemID: "ITEM-X", Qty: 10}}, demands)

	assert.Equal(t, map[string]map[string]float64{"WO-1": {"ITEM-X": 10}}, plan.ByOrder())
}

func TestAllocate_RepeatedPoolItemSharesSnapshot(t *testing.T) {
	pool := []storage.PickPoolLine{
		{ItemID: "ITEM-X", Qty: 40},
		{ItemID: "ITEM-X", Qty: 40},
	}

	plan := NewAllocator(quantity.Default()).Allocate(pool, scenarioDemands())

	assert.Equal(t, map[string]map[string]float64{
		"A": {"ITEM-X": 50},
		"B": {"ITEM-X": 20},
	}, plan.ByOrder())
	assert.InDelta(t, 10, plan.Leftover["ITEM-X"], 1e-9)
	require.Len(t, plan.Allocations, 3)
	assert.Equal(t, 1, plan.Allocations[1].PoolLine)
}

func TestAllocate_InputsUntouched(t *testing.T) {
	demands := scenarioDemands()

	NewAllocator(quantity.Default()).Allocate([]storage.PickPoolLine{{ItemID: "ITEM-X", Qty: 60}}, demands)

	assert.Equal(t, "B", demands[0].Order.ID)
	assert.Equal(t, 20.0, demands[0].Remaining["ITEM-X"].Qty)
	assert.Equal(t, 50.0, demands[1].Remaining["ITEM-X"].Qty)
}

func TestAllocate_Deterministic(t *testing.T) {
	pool := []storage.PickPoolLine{{ItemID: "ITEM-X", Qty: 33.3}, {ItemID: "ITEM-Y", Qty: 7}}
	demands := append(scenarioDemands(), demand("C", day.Add(-time.Minute), "ITEM-Y", 5))

	a := NewAllocator(quantity.Default())
	assert.Equal(t, a.Allocate(pool, demands), a.Allocate(pool, demands))
}

// Conservation and no over-allocation over random pools and demand sets.
func TestAllocate_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	items := []string{"I1", "I2", "I3"}
	a := NewAllocator(quantity.Default())

	for round := 0; round < 200; round++ {
		var demands []Demand
		for i := 0; i < 1+rng.Intn(5); i++ {
			rem := storage.RequirementMap{}
			for _, item := range items {
				if rng.Intn(3) > 0 {
					rem[item] = storage.Requirement{Qty: float64(rng.Intn(100000)) / 1000}
				}
			}
			demands = append(demands, Demand{
				Order:     storage.Order{ID: string(rune('A' + i)), CreatedAt: day.Add(time.Duration(rng.Intn(10)) * time.Minute)},
				Remaining: rem,
			})
		}

		var pool []storage.PickPoolLine
		for _, item := range items {
			pool = append(pool, storage.PickPoolLine{ItemID: item, Qty: float64(1+rng.Intn(150000)) / 1000})
		}

		plan := a.Allocate(pool, demands)

		for _, line := range pool {
			allocated := decimal.Zero
			totalNeed := decimal.Zero
			for _, alloc := range plan.Allocations {
				if alloc.ItemID == line.ItemID {
					allocated = allocated.Add(decimal.NewFromFloat(alloc.Qty))
				}
			}
			for _, d := range demands {
				totalNeed = totalNeed.Add(decimal.NewFromFloat(d.Remaining[line.ItemID].Qty))
			}

			poolQty := decimal.NewFromFloat(line.Qty)
			require.True(t, allocated.LessThanOrEqual(poolQty), "round %d item %s", round, line.ItemID)
			if totalNeed.GreaterThanOrEqual(poolQty) {
				require.True(t, allocated.Equal(poolQty), "round %d item %s: %s != %s", round, line.ItemID, allocated, poolQty)
			}
		}

		for _, d := range demands {
			for itemID, qty := range plan.ByOrder()[d.Order.ID] {
				require.LessOrEqual(t, qty, d.Remaining[itemID].Qty+1e-9)
			}
		}
	}
}

// Earlier orders are fully served before later ones see anything.
func TestAllocate_FIFOPriority(t *testing.T) {
	for pool := 1.0; pool < 70; pool += 7 {
		plan := NewAllocator(quantity.Default()).Allocate(
			[]storage.PickPoolLine{{ItemID: "ITEM-X", Qty: pool}}, scenarioDemands())

		got := plan.ByOrder()
		if _, ok := got["B"]; ok {
			assert.Equal(t, 50.0, got["A"]["ITEM-X"], "pool %v", pool)
		}
	}
}

func TestAllocate_SequenceFollowsOrderBefore(t *testing.T) {
	demands := []Demand{
		demand("WO-C", day, "ITEM-X", 5),
		demand("WO-A", day, "ITEM-X", 5),
		demand("WO-B", day.Add(-time.Hour), "ITEM-X", 5),
	}

	plan := NewAllocator(quantity.Default()).Allocate([]storage.PickPoolLine{{ItemID: "ITEM-X", Qty: 15}}, demands)

	assert.Equal(t, []string{"WO-B", "WO-A", "WO-C"}, plan.Sequence)
	for i := 1; i < len(plan.Sequence); i++ {
		prev, cur := byID(demands, plan.Sequence[i-1]), byID(demands, plan.Sequence[i])
		assert.True(t, prev.Before(cur), "%s before %s", prev.ID, cur.ID)
	}
}

func byID(demands []Demand, id string) storage.Order {
	for _, d := range demands {
		if d.Order.ID == id {
			return d.Order
		}
	}
	return storage.Order{}
}
