package analytics

import (
	"math"

	"github.com/shopspring/decimal"
)

const daysPerYear = 365.25
const secondsPerDayMS = 86400000.0

// riskAnnualizationDays is 365, not daysPerYear, for Sharpe/Sortino
// specifically: prediction markets run 24/7, and the annualization
// factor for per-period return ratios uses a plain 365-day year, distinct
// from the leap-year-aware year fraction used for annualized total return.
const riskAnnualizationDays = 365.0

var riskAnnualizationFactor = math.Sqrt(riskAnnualizationDays)

// Metrics is the full set of performance statistics computed from a
// backtest's trade records and equity curve.
type Metrics struct {
	TotalReturnPct      float64
	AnnualizedReturnPct float64

	SharpeRatio        float64
	SortinoRatio       float64
	MaxDrawdownPct     float64
	MaxDrawdownDurationMS int64

	WinRate        float64
	ProfitFactor   float64
	Expectancy     float64
	AvgTradePnL    float64
	NumTrades      int
	NumWinning     int
	NumLosing      int
	TotalFees      float64
	FeesPctOfVolume float64
}

// ComputeMetrics derives the full Metrics set from a closed-trade list and
// an equity curve. Statistical outputs (Sharpe, Sortino, drawdown) are
// computed in float64: spec-mandated exact decimal arithmetic applies to
// money paths (price/qty/cash/fees), not to ratios derived from them.
func ComputeMetrics(trades []TradeRecord, equityCurve []EquityPoint, initialCash decimal.Decimal) Metrics {
	m := Metrics{}

	returnMetrics(&m, equityCurve, initialCash)
	riskMetrics(&m, equityCurve)
	tradeMetrics(&m, trades)

	return m
}

func returnMetrics(m *Metrics, curve []EquityPoint, initialCash decimal.Decimal) {
	if len(curve) == 0 || initialCash.IsZero() {
		return
	}
	initial, _ := initialCash.Float64()
	final, _ := curve[len(curve)-1].Equity.Float64()

	totalReturn := (final - initial) / initial
	m.TotalReturnPct = totalReturn * 100

	startMS := curve[0].TimestampMS
	endMS := curve[len(curve)-1].TimestampMS
	years := float64(endMS-startMS) / secondsPerDayMS / daysPerYear
	if years > 0 {
		m.AnnualizedReturnPct = (math.Pow(1+totalReturn, 1/years) - 1) * 100
	}
}

// periodReturns computes simple returns between consecutive equity
// samples.
func periodReturns(curve []EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	out := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev, _ := curve[i-1].Equity.Float64()
		cur, _ := curve[i].Equity.Float64()
		if prev == 0 {
			continue
		}
		out = append(out, (cur-prev)/prev)
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mu := mean(xs)
	sumSq := 0.0
	for _, x := range xs {
		d := x - mu
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)))
}

func riskMetrics(m *Metrics, curve []EquityPoint) {
	returns := periodReturns(curve)

	if std := stddev(returns); std > 0 {
		m.SharpeRatio = mean(returns) / std * riskAnnualizationFactor
	}

	var negReturns []float64
	for _, r := range returns {
		if r < 0 {
			negReturns = append(negReturns, r)
		}
	}
	if std := stddev(negReturns); std > 0 {
		m.SortinoRatio = mean(returns) / std * riskAnnualizationFactor
	}

	maxDrawdown(m, curve)
}

func maxDrawdown(m *Metrics, curve []EquityPoint) {
	if len(curve) == 0 {
		return
	}

	runningMax, _ := curve[0].Equity.Float64()
	worstDrawdown := 0.0

	inDrawdown := false
	drawdownStartMS := int64(0)
	longestDrawdownMS := int64(0)

	for _, point := range curve {
		equity, _ := point.Equity.Float64()
		if equity > runningMax {
			runningMax = equity
			if inDrawdown {
				duration := point.TimestampMS - drawdownStartMS
				if duration > longestDrawdownMS {
					longestDrawdownMS = duration
				}
				inDrawdown = false
			}
			continue
		}

		if runningMax > 0 {
			dd := (equity - runningMax) / runningMax
			if dd < worstDrawdown {
				worstDrawdown = dd
			}
		}

		if !inDrawdown {
			inDrawdown = true
			drawdownStartMS = point.TimestampMS
		}
	}

	if inDrawdown {
		duration := curve[len(curve)-1].TimestampMS - drawdownStartMS
		if duration > longestDrawdownMS {
			longestDrawdownMS = duration
		}
	}

	m.MaxDrawdownPct = worstDrawdown * 100
	m.MaxDrawdownDurationMS = longestDrawdownMS
}

func tradeMetrics(m *Metrics, trades []TradeRecord) {
	m.NumTrades = len(trades)
	if len(trades) == 0 {
		return
	}

	var (
		totalPnL     float64
		grossProfit  float64
		grossLoss    float64
		totalFees    float64
		totalVolume  float64
		sumWinPnL    float64
		sumLossPnL   float64
	)

	for _, t := range trades {
		pnl, _ := t.RealizedPnL.Float64()
		fees, _ := t.Fees.Float64()
		entryPrice, _ := t.EntryPrice.Float64()
		qty, _ := t.Quantity.Float64()

		totalPnL += pnl
		totalFees += fees
		totalVolume += entryPrice * qty

		if t.IsWinner {
			m.NumWinning++
			grossProfit += pnl
			sumWinPnL += pnl
		} else {
			m.NumLosing++
			grossLoss += -pnl
			sumLossPnL += pnl
		}
	}

	m.WinRate = float64(m.NumWinning) / float64(m.NumTrades)

	if grossLoss == 0 {
		m.ProfitFactor = math.Inf(1)
	} else {
		m.ProfitFactor = grossProfit / grossLoss
	}

	avgWin := 0.0
	if m.NumWinning > 0 {
		avgWin = sumWinPnL / float64(m.NumWinning)
	}
	avgLoss := 0.0
	if m.NumLosing > 0 {
		avgLoss = -sumLossPnL / float64(m.NumLosing)
	}
	m.Expectancy = m.WinRate*avgWin - (1-m.WinRate)*avgLoss

	m.AvgTradePnL = totalPnL / float64(m.NumTrades)
	m.TotalFees = totalFees

	if totalVolume > 0 {
		m.FeesPctOfVolume = totalFees / totalVolume * 100
	}
}
