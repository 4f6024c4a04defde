// Package portfolio tracks positions, cash, and realized/unrealized P&L
// across the complement-aware market pairs that prediction-market venues
// expose, mirroring the accounting rules a matching engine needs to price
// fills correctly.
package portfolio

import (
	"github.com/shopspring/decimal"

	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/types"
)

// Position tracks a signed quantity in a single asset. Quantity is
// positive for a long position, negative for a short position. AvgEntryPrice
// is only meaningful while Quantity is non-zero.
type Position struct {
	AssetID       string
	Quantity      decimal.Decimal
	AvgEntryPrice decimal.Decimal
	RealizedPnL   decimal.Decimal
	UnrealizedPnL decimal.Decimal
	CurrentPrice  decimal.Decimal
	TotalFeesPaid decimal.Decimal
}

// NewPosition returns a flat position for the given asset.
func NewPosition(assetID string) *Position {
	return &Position{
		AssetID:       assetID,
		Quantity:      decimal.Zero,
		AvgEntryPrice: decimal.Zero,
		RealizedPnL:   decimal.Zero,
		UnrealizedPnL: decimal.Zero,
		CurrentPrice:  decimal.Zero,
		TotalFeesPaid: decimal.Zero,
	}
}

// ApplyFill folds a single fill into the position, realizing P&L on any
// portion that closes an existing opposite-side quantity and weighted-
// averaging the entry price on any portion that opens or extends the same
// side. A fill that more than covers an opposite position flips the
// position to the other side at the fill price.
func (p *Position) ApplyFill(fill types.Fill) {
	fillQty := fill.Quantity
	p.TotalFeesPaid = p.TotalFeesPaid.Add(fill.Fees)

	switch fill.Side {
	case types.Buy:
		if p.Quantity.GreaterThanOrEqual(decimal.Zero) {
			p.extendSameSide(fillQty, fill.Price)
		} else {
			p.closeOpposite(fillQty, fill.Price, true)
		}
	case types.Sell:
		if p.Quantity.GreaterThan(decimal.Zero) {
			p.closeOpposite(fillQty, fill.Price, false)
		} else {
			p.extendShort(fillQty, fill.Price)
		}
	}

	if p.Quantity.IsZero() {
		p.AvgEntryPrice = decimal.Zero
	}
}

// extendSameSide handles a BUY fill while flat or already long: weighted
// average the entry price over the combined quantity.
func (p *Position) extendSameSide(fillQty, fillPrice decimal.Decimal) {
	newQty := p.Quantity.Add(fillQty)
	if newQty.IsZero() {
		p.Quantity = newQty
		return
	}
	existingCost := p.AvgEntryPrice.Mul(p.Quantity)
	addedCost := fillPrice.Mul(fillQty)
	p.AvgEntryPrice = existingCost.Add(addedCost).Div(newQty)
	p.Quantity = newQty
}

// extendShort handles a SELL fill while flat or already short: weighted
// average the entry price over the combined (absolute) quantity.
func (p *Position) extendShort(fillQty, fillPrice decimal.Decimal) {
	absQty := p.Quantity.Abs()
	newAbsQty := absQty.Add(fillQty)
	existingCost := p.AvgEntryPrice.Mul(absQty)
	addedCost := fillPrice.Mul(fillQty)
	p.AvgEntryPrice = existingCost.Add(addedCost).Div(newAbsQty)
	p.Quantity = p.Quantity.Sub(fillQty)
}

// closeOpposite handles a fill that reduces or flips an existing position.
// isBuyClosingShort selects whether the fill is a BUY covering a short
// (true) or a SELL reducing a long (false); it controls the realized P&L
// sign and the sign of the post-flip quantity.
func (p *Position) closeOpposite(fillQty, fillPrice decimal.Decimal, isBuyClosingShort bool) {
	absQty := p.Quantity.Abs()
	reducedQty := decimal.Min(fillQty, absQty)

	var realized decimal.Decimal
	if isBuyClosingShort {
		realized = p.AvgEntryPrice.Sub(fillPrice).Mul(reducedQty)
	} else {
		realized = fillPrice.Sub(p.AvgEntryPrice).Mul(reducedQty)
	}
	p.RealizedPnL = p.RealizedPnL.Add(realized)

	if isBuyClosingShort {
		p.Quantity = p.Quantity.Add(reducedQty)
	} else {
		p.Quantity = p.Quantity.Sub(reducedQty)
	}

	remainder := fillQty.Sub(reducedQty)
	if remainder.GreaterThan(decimal.Zero) {
		p.AvgEntryPrice = fillPrice
		if isBuyClosingShort {
			p.Quantity = remainder
		} else {
			p.Quantity = remainder.Neg()
		}
	}
}

// UpdateUnrealizedPnL recomputes UnrealizedPnL against a mark price. Long
// positions gain when price rises above entry; shorts gain when price
// falls below entry.
func (p *Position) UpdateUnrealizedPnL(markPrice decimal.Decimal) {
	p.CurrentPrice = markPrice
	if p.Quantity.IsZero() {
		p.UnrealizedPnL = decimal.Zero
		return
	}
	p.UnrealizedPnL = markPrice.Sub(p.AvgEntryPrice).Mul(p.Quantity)
}

// TotalPnL is realized plus unrealized P&L.
func (p *Position) TotalPnL() decimal.Decimal {
	return p.RealizedPnL.Add(p.UnrealizedPnL)
}

// MarketPosition aggregates the positions on both sides of a market pair
// (e.g. yes/no tokens backed by the same condition) so exposure and P&L can
// be reported at the market level rather than per-token.
type MarketPosition struct {
	MarketID  string
	Positions map[string]*Position // assetID -> Position
}

// NewMarketPosition returns an empty aggregate for the given market.
func NewMarketPosition(marketID string) *MarketPosition {
	return &MarketPosition{
		MarketID:  marketID,
		Positions: make(map[string]*Position),
	}
}

// GetPosition returns the position for assetID, or nil if none exists yet.
func (mp *MarketPosition) GetPosition(assetID string) *Position {
	return mp.Positions[assetID]
}

// GetOrCreatePosition returns the position for assetID, creating a flat one
// if it doesn't exist.
func (mp *MarketPosition) GetOrCreatePosition(assetID string) *Position {
	pos, ok := mp.Positions[assetID]
	if !ok {
		pos = NewPosition(assetID)
		mp.Positions[assetID] = pos
	}
	return pos
}

// UpdateUnrealizedPnL marks every position in the market to the given
// per-asset prices, skipping assets with no quoted price.
func (mp *MarketPosition) UpdateUnrealizedPnL(prices map[string]decimal.Decimal) {
	for assetID, pos := range mp.Positions {
		if price, ok := prices[assetID]; ok {
			pos.UpdateUnrealizedPnL(price)
		}
	}
}

// TotalPnL sums realized+unrealized P&L across every asset in the market.
func (mp *MarketPosition) TotalPnL() decimal.Decimal {
	total := decimal.Zero
	for _, pos := range mp.Positions {
		total = total.Add(pos.TotalPnL())
	}
	return total
}

// NetExposure sums signed quantity*price across every asset, giving the
// dollar exposure to the market's resolution.
func (mp *MarketPosition) NetExposure() decimal.Decimal {
	total := decimal.Zero
	for _, pos := range mp.Positions {
		total = total.Add(pos.Quantity.Mul(pos.CurrentPrice))
	}
	return total
}
