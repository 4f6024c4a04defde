package portfolio

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/types"
)

func fill(side types.Side, price, qty float64) types.Fill {
	return types.Fill{
		Side:     side,
		Price:    decimal.NewFromFloat(price),
		Quantity: decimal.NewFromFloat(qty),
	}
}

func TestPosition_OpenAndCloseRoundTrip(t *testing.T) {
	pos := NewPosition("tok-1")

	pos.ApplyFill(fill(types.Buy, 0.40, 10))
	assert.True(t, pos.Quantity.Equal(decimal.NewFromInt(10)))
	assert.True(t, pos.AvgEntryPrice.Equal(decimal.NewFromFloat(0.40)))

	pos.ApplyFill(fill(types.Sell, 0.60, 10))
	require.True(t, pos.Quantity.IsZero())
	assert.True(t, pos.AvgEntryPrice.IsZero(), "flat position resets avg entry price")
	assert.True(t, pos.RealizedPnL.Equal(decimal.NewFromFloat(2.00)), "expected $2.00 realized pnl, got %s", pos.RealizedPnL)
}

func TestPosition_WeightedAverageEntryOnAdd(t *testing.T) {
	pos := NewPosition("tok-1")
	pos.ApplyFill(fill(types.Buy, 0.40, 10))
	pos.ApplyFill(fill(types.Buy, 0.60, 10))

	assert.True(t, pos.Quantity.Equal(decimal.NewFromInt(20)))
	assert.True(t, pos.AvgEntryPrice.Equal(decimal.NewFromFloat(0.50)))
}

func TestPosition_SellFlipsLongToShort(t *testing.T) {
	pos := NewPosition("tok-1")
	pos.ApplyFill(fill(types.Buy, 0.40, 10))

	pos.ApplyFill(fill(types.Sell, 0.50, 15))

	require.True(t, pos.Quantity.Equal(decimal.NewFromInt(-5)), "expected -5 after flip, got %s", pos.Quantity)
	assert.True(t, pos.AvgEntryPrice.Equal(decimal.NewFromFloat(0.50)), "flipped remainder re-enters at fill price")
	assert.True(t, pos.RealizedPnL.Equal(decimal.NewFromFloat(1.00)), "realized pnl only on the 10 closed units: (0.5-0.4)*10")
}

func TestPosition_BuyCoversShortAndFlipsLong(t *testing.T) {
	pos := NewPosition("tok-1")
	pos.ApplyFill(fill(types.Sell, 0.60, 10)) // open short at 0.60

	pos.ApplyFill(fill(types.Buy, 0.50, 15))

	require.True(t, pos.Quantity.Equal(decimal.NewFromInt(5)), "expected +5 after flip, got %s", pos.Quantity)
	assert.True(t, pos.AvgEntryPrice.Equal(decimal.NewFromFloat(0.50)))
	assert.True(t, pos.RealizedPnL.Equal(decimal.NewFromFloat(1.00)), "(entry 0.6 - exit 0.5) * 10 covered")
}

func TestPosition_ExtendShortWeightedAverage(t *testing.T) {
	pos := NewPosition("tok-1")
	pos.ApplyFill(fill(types.Sell, 0.60, 10))
	pos.ApplyFill(fill(types.Sell, 0.40, 10))

	assert.True(t, pos.Quantity.Equal(decimal.NewFromInt(-20)))
	assert.True(t, pos.AvgEntryPrice.Equal(decimal.NewFromFloat(0.50)))
}

func TestPosition_FlatInvariant(t *testing.T) {
	pos := NewPosition("tok-1")
	pos.ApplyFill(fill(types.Buy, 0.3, 5))
	pos.ApplyFill(fill(types.Sell, 0.3, 5))
	assert.True(t, pos.Quantity.IsZero())
	assert.True(t, pos.AvgEntryPrice.IsZero())
}

func TestPosition_UnrealizedPnLLongAndShort(t *testing.T) {
	long := NewPosition("tok-1")
	long.ApplyFill(fill(types.Buy, 0.4, 10))
	long.UpdateUnrealizedPnL(decimal.NewFromFloat(0.5))
	assert.True(t, long.UnrealizedPnL.Equal(decimal.NewFromFloat(1.0)))

	short := NewPosition("tok-2")
	short.ApplyFill(fill(types.Sell, 0.6, 10))
	short.UpdateUnrealizedPnL(decimal.NewFromFloat(0.5))
	assert.True(t, short.UnrealizedPnL.Equal(decimal.NewFromFloat(1.0)), "short gains when mark falls below entry")
}

func TestMarketPosition_AggregatesAcrossTokens(t *testing.T) {
	mp := NewMarketPosition("cond-1")
	yes := mp.GetOrCreatePosition("yes-tok")
	yes.ApplyFill(fill(types.Buy, 0.4, 10))
	no := mp.GetOrCreatePosition("no-tok")
	no.ApplyFill(fill(types.Buy, 0.3, 10))

	mp.UpdateUnrealizedPnL(map[string]decimal.Decimal{
		"yes-tok": decimal.NewFromFloat(0.5),
		"no-tok":  decimal.NewFromFloat(0.5),
	})

	// yes: (0.5-0.4)*10 = 1.0; no: (0.5-0.3)*10 = 2.0; sum = 3.0.
	assert.True(t, mp.TotalPnL().Equal(decimal.NewFromFloat(3.0)), "got %s", mp.TotalPnL())
}
