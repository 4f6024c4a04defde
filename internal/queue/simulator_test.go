package queue

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/types"
)

func level(price, size float64) types.PriceLevel {
	return types.PriceLevel{Price: decimal.NewFromFloat(price), Size: decimal.NewFromFloat(size)}
}

func TestSimulator_AddOrder_SizeAheadForBuy(t *testing.T) {
	sim := NewSimulator(1.0, 1)
	snap := &types.OrderbookSnapshot{
		AssetID: "tok-1",
		Bids:    []types.PriceLevel{level(0.55, 10), level(0.50, 20)},
	}
	order := &types.Order{OrderID: "o1", AssetID: "tok-1", Side: types.Buy, Price: decimal.NewFromFloat(0.50), Quantity: decimal.NewFromInt(5)}

	sim.AddOrder(order, snap)

	entry := sim.entries["o1"]
	require.NotNil(t, entry)
	// Resting buy at 0.50 queues behind everything at price >= 0.50: 10 + 20.
	assert.True(t, entry.SizeAhead.Equal(decimal.NewFromInt(30)), "got %s", entry.SizeAhead)
}

func TestSimulator_AddOrder_SizeAheadForSell(t *testing.T) {
	sim := NewSimulator(1.0, 1)
	snap := &types.OrderbookSnapshot{
		AssetID: "tok-1",
		Asks:    []types.PriceLevel{level(0.56, 50), level(0.60, 100)},
	}
	order := &types.Order{OrderID: "o1", AssetID: "tok-1", Side: types.Sell, Price: decimal.NewFromFloat(0.60), Quantity: decimal.NewFromInt(5)}

	sim.AddOrder(order, snap)

	entry := sim.entries["o1"]
	require.NotNil(t, entry)
	assert.True(t, entry.SizeAhead.Equal(decimal.NewFromInt(150)))
}

func TestSimulator_FillsOnlyAfterCumulativeVolumeReachesSizeAhead(t *testing.T) {
	// spec.md §3 scenario: bids=[(0.55,10)], asks=[(0.56,150)]. Resting
	// BUY 5 @ 0.55 queues behind the 10 already resting there; a single
	// trade of 15 at 0.55 should cross size_ahead and fill the order.
	sim := NewSimulator(1.0, 1)
	snap := &types.OrderbookSnapshot{
		AssetID: "tok-1",
		Bids:    []types.PriceLevel{level(0.55, 10)},
		Asks:    []types.PriceLevel{level(0.56, 150)},
	}
	order := &types.Order{OrderID: "o1", AssetID: "tok-1", Side: types.Buy, Price: decimal.NewFromFloat(0.55), Quantity: decimal.NewFromInt(5)}
	sim.AddOrder(order, snap)

	trade := &types.Trade{AssetID: "tok-1", Price: decimal.NewFromFloat(0.55), Size: decimal.NewFromInt(15)}
	filled := sim.ProcessTrade(trade)

	require.Len(t, filled, 1)
	assert.Equal(t, "o1", filled[0])
}

func TestSimulator_PartialVolumeDoesNotFill(t *testing.T) {
	sim := NewSimulator(1.0, 1)
	snap := &types.OrderbookSnapshot{
		AssetID: "tok-1",
		Bids:    []types.PriceLevel{level(0.55, 10)},
	}
	order := &types.Order{OrderID: "o1", AssetID: "tok-1", Side: types.Buy, Price: decimal.NewFromFloat(0.55), Quantity: decimal.NewFromInt(5)}
	sim.AddOrder(order, snap)

	trade := &types.Trade{AssetID: "tok-1", Price: decimal.NewFromFloat(0.55), Size: decimal.NewFromInt(9)}
	filled := sim.ProcessTrade(trade)

	assert.Empty(t, filled, "cumulative volume (9) has not yet reached size_ahead (10)")
}

func TestSimulator_NonAggressableTradeIgnored(t *testing.T) {
	sim := NewSimulator(1.0, 1)
	snap := &types.OrderbookSnapshot{AssetID: "tok-1", Bids: []types.PriceLevel{level(0.55, 1)}}
	order := &types.Order{OrderID: "o1", AssetID: "tok-1", Side: types.Buy, Price: decimal.NewFromFloat(0.55), Quantity: decimal.NewFromInt(5)}
	sim.AddOrder(order, snap)

	// A trade above the order's buy price never aggresses it.
	trade := &types.Trade{AssetID: "tok-1", Price: decimal.NewFromFloat(0.60), Size: decimal.NewFromInt(100)}
	filled := sim.ProcessTrade(trade)
	assert.Empty(t, filled)
}

func TestSimulator_RemoveOrder(t *testing.T) {
	sim := NewSimulator(1.0, 1)
	snap := &types.OrderbookSnapshot{AssetID: "tok-1"}
	order := &types.Order{OrderID: "o1", AssetID: "tok-1", Side: types.Buy, Price: decimal.NewFromFloat(0.5), Quantity: decimal.NewFromInt(5)}
	sim.AddOrder(order, snap)

	sim.RemoveOrder("o1")

	trade := &types.Trade{AssetID: "tok-1", Price: decimal.NewFromFloat(0.5), Size: decimal.NewFromInt(1000)}
	filled := sim.ProcessTrade(trade)
	assert.Empty(t, filled)
}

func TestSimulator_NeverFillsBeforeSizeAheadCrossedAtFullProbability(t *testing.T) {
	// Property-based target from spec.md §8: with fill_probability=1.0 the
	// simulator must never fill before cumulative_volume >= size_ahead,
	// across randomized tape.
	sim := NewSimulator(1.0, 7)
	snap := &types.OrderbookSnapshot{AssetID: "tok-1", Bids: []types.PriceLevel{level(0.50, 100)}}
	order := &types.Order{OrderID: "o1", AssetID: "tok-1", Side: types.Buy, Price: decimal.NewFromFloat(0.50), Quantity: decimal.NewFromInt(1)}
	sim.AddOrder(order, snap)

	cumulative := decimal.Zero
	sizeAhead := sim.entries["o1"].SizeAhead
	for i := 0; i < 20; i++ {
		tradeSize := decimal.NewFromInt(int64(3 + i%5))
		cumulative = cumulative.Add(tradeSize)
		trade := &types.Trade{AssetID: "tok-1", Price: decimal.NewFromFloat(0.50), Size: tradeSize}
		filled := sim.ProcessTrade(trade)
		if len(filled) > 0 {
			assert.True(t, cumulative.GreaterThanOrEqual(sizeAhead), "filled before cumulative volume reached size_ahead")
			return
		}
	}
	t.Fatalf("order never filled after cumulative volume %s exceeded size_ahead %s", cumulative, sizeAhead)
}
