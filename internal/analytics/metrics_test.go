package analytics

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func tradeRecord(pnl, fees float64, winner bool) TradeRecord {
	return TradeRecord{
		EntryPrice:  decimal.NewFromFloat(0.5),
		Quantity:    decimal.NewFromInt(10),
		RealizedPnL: decimal.NewFromFloat(pnl),
		Fees:        decimal.NewFromFloat(fees),
		IsWinner:    winner,
	}
}

func TestComputeMetrics_EmptyInputsAreAllZero(t *testing.T) {
	m := ComputeMetrics(nil, nil, decimal.NewFromInt(1000))
	assert.Zero(t, m.NumTrades)
	assert.Zero(t, m.TotalReturnPct)
	assert.Zero(t, m.SharpeRatio)
	assert.Zero(t, m.MaxDrawdownPct)
}

func TestComputeMetrics_WinRateAndProfitFactor(t *testing.T) {
	trades := []TradeRecord{
		tradeRecord(10, 0, true),
		tradeRecord(-5, 0, false),
		tradeRecord(20, 0, true),
	}
	m := ComputeMetrics(trades, nil, decimal.NewFromInt(1000))

	assert.Equal(t, 3, m.NumTrades)
	assert.Equal(t, 2, m.NumWinning)
	assert.Equal(t, 1, m.NumLosing)
	assert.InDelta(t, 2.0/3.0, m.WinRate, 1e-9)
	assert.InDelta(t, 30.0/5.0, m.ProfitFactor, 1e-9)
}

func TestComputeMetrics_ProfitFactorIsInfiniteWithNoLosers(t *testing.T) {
	trades := []TradeRecord{tradeRecord(10, 0, true), tradeRecord(5, 0, true)}
	m := ComputeMetrics(trades, nil, decimal.NewFromInt(1000))
	assert.True(t, math.IsInf(m.ProfitFactor, 1))
}

func TestComputeMetrics_TotalReturnAndMaxDrawdown(t *testing.T) {
	curve := []EquityPoint{
		{TimestampMS: 0, Equity: decimal.NewFromInt(1000)},
		{TimestampMS: 1000, Equity: decimal.NewFromInt(1200)},
		{TimestampMS: 2000, Equity: decimal.NewFromInt(900)},
		{TimestampMS: 3000, Equity: decimal.NewFromInt(1100)},
	}
	m := ComputeMetrics(nil, curve, decimal.NewFromInt(1000))

	assert.InDelta(t, 10.0, m.TotalReturnPct, 1e-9, "final 1100 vs initial 1000 == +10%%")
	// Peak 1200 -> trough 900 is a (900-1200)/1200 = -25% drawdown.
	assert.InDelta(t, -25.0, m.MaxDrawdownPct, 1e-9)
}

func TestComputeMetrics_FeesAndVolume(t *testing.T) {
	trades := []TradeRecord{
		{EntryPrice: decimal.NewFromFloat(0.5), Quantity: decimal.NewFromInt(10), RealizedPnL: decimal.NewFromFloat(1), Fees: decimal.NewFromFloat(0.5), IsWinner: true},
	}
	m := ComputeMetrics(trades, nil, decimal.NewFromInt(1000))
	assert.InDelta(t, 0.5, m.TotalFees, 1e-9)
	// fees 0.5 / volume (0.5*10=5) * 100 = 10%.
	assert.InDelta(t, 10.0, m.FeesPctOfVolume, 1e-9)
}
