package portfolio

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/types"
)

func newFill(assetID string, side types.Side, price, qty, fees float64, ts int64) types.Fill {
	return types.Fill{
		FillID:      "f-" + assetID,
		AssetID:     assetID,
		Side:        side,
		Price:       decimal.NewFromFloat(price),
		Quantity:    decimal.NewFromFloat(qty),
		Fees:        decimal.NewFromFloat(fees),
		TimestampMS: ts,
	}
}

func TestPortfolio_ApplyFill_CashLedger(t *testing.T) {
	pf := NewPortfolio(decimal.NewFromInt(1000), nil)

	pf.ApplyFill(newFill("tok-1", types.Buy, 0.40, 10, 0.05, 1))
	assert.True(t, pf.Cash().Equal(decimal.NewFromFloat(1000-4.0-0.05)))

	pf.ApplyFill(newFill("tok-1", types.Sell, 0.60, 10, 0.05, 2))
	assert.True(t, pf.Cash().Equal(decimal.NewFromFloat(1000-4.0-0.05+6.0-0.05)))
}

func TestPortfolio_CashConservationInvariant(t *testing.T) {
	// spec.md §8: cash + Σ fills.side·price·qty + Σ fees == initial_cash
	// (signed so BUY subtracts notional, SELL adds it).
	initial := decimal.NewFromInt(10000)
	pf := NewPortfolio(initial, nil)

	rng := rand.New(rand.NewSource(42))
	var sumSignedNotional decimal.Decimal
	var sumFees decimal.Decimal

	for i := 0; i < 200; i++ {
		side := types.Buy
		if rng.Intn(2) == 0 {
			side = types.Sell
		}
		price := decimal.NewFromFloat(0.01 + rng.Float64()*0.98)
		qty := decimal.NewFromFloat(1 + rng.Float64()*50)
		fees := decimal.NewFromFloat(rng.Float64())

		f := newFill("tok-x", side, price.InexactFloat64(), qty.InexactFloat64(), fees.InexactFloat64(), int64(i))
		pf.ApplyFill(f)

		notional := f.Price.Mul(f.Quantity)
		if side == types.Buy {
			sumSignedNotional = sumSignedNotional.Sub(notional)
		} else {
			sumSignedNotional = sumSignedNotional.Add(notional)
		}
		sumFees = sumFees.Add(f.Fees)
	}

	expectedCash := initial.Add(sumSignedNotional).Sub(sumFees)
	require.True(t, pf.Cash().Equal(expectedCash), "cash=%s expected=%s", pf.Cash(), expectedCash)
}

func TestPortfolio_MarketPositionLinked(t *testing.T) {
	registry := NewMarketPairRegistry()
	registry.Register(&MarketPair{ConditionID: "cond-1", YesTokenID: "yes-tok", NoTokenID: "no-tok"})

	pf := NewPortfolio(decimal.NewFromInt(1000), registry)
	pf.ApplyFill(newFill("yes-tok", types.Buy, 0.4, 10, 0, 1))

	mp, ok := pf.GetMarketPosition("cond-1")
	require.True(t, ok)
	pos := mp.GetPosition("yes-tok")
	require.NotNil(t, pos)
	assert.True(t, pos.Quantity.Equal(decimal.NewFromInt(10)))
}

func TestPortfolio_UpdateMarkPricesRefreshesUnrealized(t *testing.T) {
	pf := NewPortfolio(decimal.NewFromInt(1000), nil)
	pf.ApplyFill(newFill("tok-1", types.Buy, 0.4, 10, 0, 1))

	pf.UpdateMarkPrices(map[string]decimal.Decimal{"tok-1": decimal.NewFromFloat(0.5)})

	pos, ok := pf.GetPosition("tok-1")
	require.True(t, ok)
	assert.True(t, pos.UnrealizedPnL.Equal(decimal.NewFromFloat(1.0)))
	assert.True(t, pf.TotalValue().Equal(pf.Cash().Add(decimal.NewFromFloat(5.0))))
}

func TestPortfolio_GetReturn(t *testing.T) {
	pf := NewPortfolio(decimal.NewFromInt(100), nil)
	pf.ApplyFill(newFill("tok-1", types.Buy, 0.4, 10, 0, 1))
	pf.ApplyFill(newFill("tok-1", types.Sell, 0.6, 10, 0, 2))

	// net +$2 on $100 initial => 2% return.
	assert.True(t, pf.GetReturn().Equal(decimal.NewFromFloat(0.02)), "got %s", pf.GetReturn())
}
