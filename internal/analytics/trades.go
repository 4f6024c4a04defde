// Package analytics turns a stream of fills and portfolio marks into
// trade-level P&L records, an equity curve, and summary performance
// metrics for a completed backtest run.
package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/RishabSBanthiya/prediction-market-data-services/internal/portfolio"
	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/types"
)

// TradeRecord is a single closed (or partially closed) round trip: an
// entry side and quantity matched against a later opposite-side fill.
type TradeRecord struct {
	AssetID      string
	Side         types.Side // the side that opened the trade
	EntryPrice   decimal.Decimal
	ExitPrice    decimal.Decimal
	Quantity     decimal.Decimal
	EntryTimeMS  int64
	ExitTimeMS   int64
	RealizedPnL  decimal.Decimal
	Fees         decimal.Decimal
	IsWinner     bool
}

// EquityPoint is one sample of the portfolio's mark-to-market value.
type EquityPoint struct {
	TimestampMS   int64
	Equity        decimal.Decimal
	Cash          decimal.Decimal
	PositionValue decimal.Decimal
}

// openTracker accumulates same-side fills on one asset until an opposite-
// side fill closes some or all of the accumulated quantity.
type openTracker struct {
	assetID        string
	side           types.Side
	totalQuantity  decimal.Decimal
	totalCost      decimal.Decimal
	totalFees      decimal.Decimal
	firstEntryTimeMS int64
}

func (t *openTracker) avgEntryPrice() decimal.Decimal {
	if t.totalQuantity.IsZero() {
		return decimal.Zero
	}
	return t.totalCost.Div(t.totalQuantity)
}

// TradePairer matches opposite-side fills on each asset into closed
// TradeRecords and samples an equity curve at a configured interval.
type TradePairer struct {
	trackers map[string]*openTracker // assetID -> open tracker
	trades   []TradeRecord

	equityCurve           []EquityPoint
	equitySampleIntervalMS int64
	lastSampleTS          int64
	haveSample            bool
}

// NewTradePairer returns a pairer that samples equity at most once per
// equitySampleIntervalMS of fill timestamps.
func NewTradePairer(equitySampleIntervalMS int64) *TradePairer {
	return &TradePairer{
		trackers:               make(map[string]*openTracker),
		equitySampleIntervalMS: equitySampleIntervalMS,
	}
}

// Trades returns every closed trade record so far.
func (p *TradePairer) Trades() []TradeRecord {
	return p.trades
}

// EquityCurve returns every sampled equity point so far.
func (p *TradePairer) EquityCurve() []EquityPoint {
	return p.equityCurve
}

// RecordFill folds a fill into the open-trade trackers and, if enough time
// has passed since the last sample, records an equity point.
func (p *TradePairer) RecordFill(fill types.Fill, pf *portfolio.Portfolio) {
	p.processFillForTrades(fill)

	if !p.haveSample || fill.TimestampMS-p.lastSampleTS >= p.equitySampleIntervalMS {
		p.sample(fill.TimestampMS, pf)
	}
}

// RecordEquityPoint marks the portfolio to the given prices and forces an
// equity sample, regardless of the sampling interval. Used at fixed
// reporting checkpoints (e.g. end of a backtest).
func (p *TradePairer) RecordEquityPoint(timestampMS int64, pf *portfolio.Portfolio, prices map[string]decimal.Decimal) {
	pf.UpdateMarkPrices(prices)
	p.sample(timestampMS, pf)
}

func (p *TradePairer) sample(timestampMS int64, pf *portfolio.Portfolio) {
	cash := pf.Cash()
	total := pf.TotalValue()
	p.equityCurve = append(p.equityCurve, EquityPoint{
		TimestampMS:   timestampMS,
		Equity:        total,
		Cash:          cash,
		PositionValue: total.Sub(cash),
	})
	p.lastSampleTS = timestampMS
	p.haveSample = true
}

func (p *TradePairer) processFillForTrades(fill types.Fill) {
	tracker, ok := p.trackers[fill.AssetID]
	if !ok || tracker.side == fill.Side {
		p.openOrExtend(fill)
		return
	}

	closeQty := fill.Quantity
	if closeQty.GreaterThanOrEqual(tracker.totalQuantity) {
		matchedQty := tracker.totalQuantity
		realized := p.realizedPnL(tracker, fill.Price, matchedQty)
		exitFees := decimal.Zero
		if fill.Quantity.GreaterThan(decimal.Zero) {
			exitFees = fill.Fees.Mul(matchedQty).Div(fill.Quantity)
		}

		p.trades = append(p.trades, TradeRecord{
			AssetID:     fill.AssetID,
			Side:        tracker.side,
			EntryPrice:  tracker.avgEntryPrice(),
			ExitPrice:   fill.Price,
			Quantity:    matchedQty,
			EntryTimeMS: tracker.firstEntryTimeMS,
			ExitTimeMS:  fill.TimestampMS,
			RealizedPnL: realized,
			Fees:        tracker.totalFees.Add(exitFees),
			IsWinner:    realized.GreaterThan(decimal.Zero),
		})

		delete(p.trackers, fill.AssetID)

		remainder := fill.Quantity.Sub(matchedQty)
		if remainder.GreaterThan(decimal.Zero) {
			p.trackers[fill.AssetID] = &openTracker{
				assetID:          fill.AssetID,
				side:             fill.Side,
				totalQuantity:    remainder,
				totalCost:        fill.Price.Mul(remainder),
				totalFees:        fill.Fees.Sub(exitFees),
				firstEntryTimeMS: fill.TimestampMS,
			}
		}
		return
	}

	// Partial close: the fill fully absorbs into the existing tracker.
	feeFraction := closeQty.Div(tracker.totalQuantity)
	entryFeesAttributed := tracker.totalFees.Mul(feeFraction)
	realized := p.realizedPnL(tracker, fill.Price, closeQty)

	p.trades = append(p.trades, TradeRecord{
		AssetID:     fill.AssetID,
		Side:        tracker.side,
		EntryPrice:  tracker.avgEntryPrice(),
		ExitPrice:   fill.Price,
		Quantity:    closeQty,
		EntryTimeMS: tracker.firstEntryTimeMS,
		ExitTimeMS:  fill.TimestampMS,
		RealizedPnL: realized,
		Fees:        entryFeesAttributed.Add(fill.Fees),
		IsWinner:    realized.GreaterThan(decimal.Zero),
	})

	entryCostRemoved := tracker.avgEntryPrice().Mul(closeQty)
	tracker.totalQuantity = tracker.totalQuantity.Sub(closeQty)
	tracker.totalCost = tracker.totalCost.Sub(entryCostRemoved)
	tracker.totalFees = tracker.totalFees.Sub(entryFeesAttributed)
}

func (p *TradePairer) realizedPnL(tracker *openTracker, exitPrice, matchedQty decimal.Decimal) decimal.Decimal {
	entry := tracker.avgEntryPrice()
	if tracker.side == types.Buy {
		return exitPrice.Sub(entry).Mul(matchedQty)
	}
	return entry.Sub(exitPrice).Mul(matchedQty)
}

func (p *TradePairer) openOrExtend(fill types.Fill) {
	tracker, ok := p.trackers[fill.AssetID]
	if !ok {
		p.trackers[fill.AssetID] = &openTracker{
			assetID:          fill.AssetID,
			side:             fill.Side,
			totalQuantity:    fill.Quantity,
			totalCost:        fill.Price.Mul(fill.Quantity),
			totalFees:        fill.Fees,
			firstEntryTimeMS: fill.TimestampMS,
		}
		return
	}
	tracker.totalQuantity = tracker.totalQuantity.Add(fill.Quantity)
	tracker.totalCost = tracker.totalCost.Add(fill.Price.Mul(fill.Quantity))
	tracker.totalFees = tracker.totalFees.Add(fill.Fees)
}
