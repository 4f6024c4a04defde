package matching

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/RishabSBanthiya/prediction-market-data-services/internal/portfolio"
	"github.com/RishabSBanthiya/prediction-market-data-services/internal/queue"
	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/types"
)

func lvl(price, size float64) types.PriceLevel {
	return types.PriceLevel{Price: decimal.NewFromFloat(price), Size: decimal.NewFromFloat(size)}
}

func newTestEngine(initialCash float64, pairs *portfolio.MarketPairRegistry) (*Engine, *portfolio.Portfolio) {
	pf := portfolio.NewPortfolio(decimal.NewFromFloat(initialCash), pairs)
	qs := queue.NewSimulator(1.0, 1)
	cfg := Config{
		MinOrderSize: decimal.NewFromFloat(0.1),
		MaxOrderSize: decimal.NewFromInt(100000),
		Fees:         NewFeeSchedule(0, 0),
	}
	return NewEngine(zap.NewNop(), pf, pairs, qs, cfg), pf
}

func TestEngine_MarketBuyWalksMultipleLevels(t *testing.T) {
	// spec.md §8 scenario 1.
	e, pf := newTestEngine(10000, nil)
	e.ProcessOrderbookUpdate(&types.OrderbookSnapshot{
		AssetID: "tok-1",
		Asks:    []types.PriceLevel{lvl(0.56, 50), lvl(0.57, 100)},
	})

	order := &types.Order{AssetID: "tok-1", Side: types.Buy, OrderType: types.OrderTypeMarket, Quantity: decimal.NewFromInt(80), TimeInForce: types.TIFGTC}
	out, err := e.SubmitOrder(order)
	require.NoError(t, err)

	require.Equal(t, types.OrderFilled, out.Status)
	assert.True(t, out.FilledQuantity.Equal(decimal.NewFromInt(80)))

	expectedAvg := decimal.NewFromFloat(50 * 0.56).Add(decimal.NewFromFloat(30 * 0.57)).Div(decimal.NewFromInt(80))
	assert.True(t, out.AvgFillPrice.Equal(expectedAvg), "avg=%s expected=%s", out.AvgFillPrice, expectedAvg)

	expectedCash := decimal.NewFromFloat(10000).Sub(decimal.NewFromInt(80).Mul(expectedAvg))
	assert.True(t, pf.Cash().Equal(expectedCash), "cash=%s expected=%s", pf.Cash(), expectedCash)
}

func TestEngine_FOKMarketOrderRejectsWhenUnfillable(t *testing.T) {
	// spec.md §8 scenario 2.
	e, pf := newTestEngine(1000, nil)
	e.ProcessOrderbookUpdate(&types.OrderbookSnapshot{
		AssetID: "tok-1",
		Asks:    []types.PriceLevel{lvl(0.56, 5)},
	})

	order := &types.Order{AssetID: "tok-1", Side: types.Buy, OrderType: types.OrderTypeMarket, Quantity: decimal.NewFromInt(10), TimeInForce: types.TIFFOK}
	out, err := e.SubmitOrder(order)
	require.NoError(t, err)

	assert.Equal(t, types.OrderRejected, out.Status)
	assert.Equal(t, types.RejectFOKNotFillable, out.RejectionReason)
	assert.True(t, out.FilledQuantity.IsZero())
	assert.True(t, pf.Cash().Equal(decimal.NewFromFloat(1000)), "cash must be unchanged on rejection")
}

func TestEngine_QueueFillViaTape(t *testing.T) {
	// spec.md §8 scenario 3.
	e, _ := newTestEngine(1000, nil)
	e.ProcessOrderbookUpdate(&types.OrderbookSnapshot{
		AssetID: "tok-1",
		Bids:    []types.PriceLevel{lvl(0.55, 10)},
		Asks:    []types.PriceLevel{lvl(0.56, 150)},
	})

	order := &types.Order{AssetID: "tok-1", Side: types.Buy, OrderType: types.OrderTypeLimit, Price: decimal.NewFromFloat(0.55), Quantity: decimal.NewFromInt(5), TimeInForce: types.TIFGTC}
	out, err := e.SubmitOrder(order)
	require.NoError(t, err)
	require.Equal(t, types.OrderPending, out.Status)

	var capturedFill types.Fill
	e.SetFillHandler(func(f types.Fill) { capturedFill = f })

	e.ProcessTrade(&types.Trade{AssetID: "tok-1", Price: decimal.NewFromFloat(0.55), Size: decimal.NewFromInt(15)})

	updated, ok := e.GetOrder(out.OrderID)
	require.True(t, ok)
	assert.Equal(t, types.OrderFilled, updated.Status)
	assert.True(t, capturedFill.IsMaker)
	assert.Equal(t, types.FillQueueReached, capturedFill.Reason)
	assert.True(t, capturedFill.Quantity.Equal(decimal.NewFromInt(5)))
}

func TestEngine_ComplementConversionOnShortSell(t *testing.T) {
	// spec.md §8 scenario 4.
	registry := portfolio.NewMarketPairRegistry()
	registry.Register(&portfolio.MarketPair{ConditionID: "cond-1", YesTokenID: "yes-tok", NoTokenID: "no-tok"})

	e, _ := newTestEngine(1000, registry)
	e.ProcessOrderbookUpdate(&types.OrderbookSnapshot{
		AssetID: "no-tok",
		Asks:    []types.PriceLevel{lvl(0.40, 100)},
	})

	order := &types.Order{AssetID: "yes-tok", Side: types.Sell, OrderType: types.OrderTypeLimit, Price: decimal.NewFromFloat(0.60), Quantity: decimal.NewFromInt(10), TimeInForce: types.TIFGTC}
	out, err := e.SubmitOrder(order)
	require.NoError(t, err)

	// Rewritten to BUY 10 @ 0.40 on the complement token and immediately
	// marketable against the no-tok book, so it should fill rather than rest.
	assert.Equal(t, "no-tok", out.AssetID)
	assert.Equal(t, types.Buy, out.Side)
	assert.True(t, out.Price.Equal(decimal.NewFromFloat(0.40)))
	assert.Equal(t, types.OrderFilled, out.Status)
}

func TestEngine_InvalidSizeRejected(t *testing.T) {
	e, _ := newTestEngine(1000, nil)
	order := &types.Order{AssetID: "tok-1", Side: types.Buy, OrderType: types.OrderTypeLimit, Price: decimal.NewFromFloat(0.5), Quantity: decimal.NewFromFloat(0.01), TimeInForce: types.TIFGTC}
	out, err := e.SubmitOrder(order)
	require.NoError(t, err)
	assert.Equal(t, types.RejectInvalidSize, out.RejectionReason)
}

func TestEngine_InsufficientFundsRejected(t *testing.T) {
	e, _ := newTestEngine(1, nil)
	order := &types.Order{AssetID: "tok-1", Side: types.Buy, OrderType: types.OrderTypeLimit, Price: decimal.NewFromFloat(0.5), Quantity: decimal.NewFromInt(10), TimeInForce: types.TIFGTC}
	out, err := e.SubmitOrder(order)
	require.NoError(t, err)
	assert.Equal(t, types.RejectInsufficientFunds, out.RejectionReason)
}

func TestEngine_IOCCancelsUnfillableRemainder(t *testing.T) {
	e, _ := newTestEngine(1000, nil)
	e.ProcessOrderbookUpdate(&types.OrderbookSnapshot{
		AssetID: "tok-1",
		Asks:    []types.PriceLevel{lvl(0.50, 5)},
	})

	order := &types.Order{AssetID: "tok-1", Side: types.Buy, OrderType: types.OrderTypeLimit, Price: decimal.NewFromFloat(0.50), Quantity: decimal.NewFromInt(10), TimeInForce: types.TIFIOC}
	out, err := e.SubmitOrder(order)
	require.NoError(t, err)

	assert.Equal(t, types.OrderCancelled, out.Status)
	assert.True(t, out.FilledQuantity.Equal(decimal.NewFromInt(5)))
}

func TestEngine_DustRemainderAutoCancelled(t *testing.T) {
	e, _ := newTestEngine(1000, nil)
	e.ProcessOrderbookUpdate(&types.OrderbookSnapshot{
		AssetID: "tok-1",
		Asks:    []types.PriceLevel{lvl(0.50, 9.95)},
	})

	order := &types.Order{AssetID: "tok-1", Side: types.Buy, OrderType: types.OrderTypeMarket, Quantity: decimal.NewFromInt(10), TimeInForce: types.TIFGTC}
	out, err := e.SubmitOrder(order)
	require.NoError(t, err)

	// Remaining 0.05 is below MinOrderSize (0.1) and must be auto-cancelled,
	// not left resting as a zombie order.
	assert.Equal(t, types.OrderCancelled, out.Status)
}
