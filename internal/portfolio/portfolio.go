package portfolio

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/types"
)

// View is a read-only view of portfolio state, for callers that must not
// mutate it. The matching engine and the analytics trade pairer work on
// the mutable *Portfolio directly.
type View interface {
	Cash() decimal.Decimal
	TotalValue() decimal.Decimal
	BuyingPower() decimal.Decimal
	GetPosition(assetID string) (*Position, bool)
	GetAllPositions() map[string]*Position
	GetMarketPosition(marketID string) (*MarketPosition, bool)
}

// Portfolio is the mutable ledger of cash, per-asset positions, and
// per-market aggregates that the matching engine settles fills against.
type Portfolio struct {
	mu sync.RWMutex

	initialCash    decimal.Decimal
	cash           decimal.Decimal
	positions      map[string]*Position
	marketPositions map[string]*MarketPosition
	currentPrices  map[string]decimal.Decimal
	fills          []types.Fill
	pairs          *MarketPairRegistry
}

// NewPortfolio returns a portfolio seeded with initialCash and no
// positions. pairs resolves an asset ID to the market it belongs to so
// fills can be folded into both per-asset and per-market aggregates.
func NewPortfolio(initialCash decimal.Decimal, pairs *MarketPairRegistry) *Portfolio {
	return &Portfolio{
		initialCash:     initialCash,
		cash:            initialCash,
		positions:       make(map[string]*Position),
		marketPositions: make(map[string]*MarketPosition),
		currentPrices:   make(map[string]decimal.Decimal),
		pairs:           pairs,
	}
}

// Cash returns current uncommitted cash.
func (p *Portfolio) Cash() decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cash
}

// TotalValue returns cash plus the mark-to-market value of every position.
func (p *Portfolio) TotalValue() decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()

	total := p.cash
	for _, pos := range p.positions {
		total = total.Add(pos.Quantity.Mul(pos.CurrentPrice))
	}
	return total
}

// BuyingPower is cash available to open new long exposure. This
// implementation does not model margin, so it equals Cash.
func (p *Portfolio) BuyingPower() decimal.Decimal {
	return p.Cash()
}

// GetPosition returns the position for assetID, if one has been opened.
func (p *Portfolio) GetPosition(assetID string) (*Position, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pos, ok := p.positions[assetID]
	return pos, ok
}

// GetAllPositions returns a snapshot copy of the position map.
func (p *Portfolio) GetAllPositions() map[string]*Position {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]*Position, len(p.positions))
	for k, v := range p.positions {
		out[k] = v
	}
	return out
}

// GetMarketPosition returns the aggregated position for a market, if any
// asset in that market has been traded.
func (p *Portfolio) GetMarketPosition(marketID string) (*MarketPosition, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	mp, ok := p.marketPositions[marketID]
	return mp, ok
}

// ApplyFill settles a fill: cash moves by price*quantity plus/minus fees,
// the per-asset Position is updated, and — if the asset resolves to a
// market pair — the per-market MarketPosition aggregate is updated too.
func (p *Portfolio) ApplyFill(fill types.Fill) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.fills = append(p.fills, fill)

	notional := fill.Price.Mul(fill.Quantity)
	switch fill.Side {
	case types.Buy:
		p.cash = p.cash.Sub(notional).Sub(fill.Fees)
	case types.Sell:
		p.cash = p.cash.Add(notional).Sub(fill.Fees)
	}

	pos, ok := p.positions[fill.AssetID]
	if !ok {
		pos = NewPosition(fill.AssetID)
		p.positions[fill.AssetID] = pos
	}
	pos.ApplyFill(fill)

	marketID := p.determineMarketID(fill.AssetID)
	if marketID == "" {
		return
	}
	mp, ok := p.marketPositions[marketID]
	if !ok {
		mp = NewMarketPosition(marketID)
		p.marketPositions[marketID] = mp
	}
	mpPos := mp.GetOrCreatePosition(fill.AssetID)
	if mpPos != pos {
		mp.Positions[fill.AssetID] = pos
	}
}

// determineMarketID resolves assetID to the ConditionID of its market pair,
// or "" if the registry has no pair for it.
func (p *Portfolio) determineMarketID(assetID string) string {
	if p.pairs == nil {
		return ""
	}
	pair, ok := p.pairs.GetPairForToken(assetID)
	if !ok {
		return ""
	}
	return pair.ConditionID
}

// UpdateMarkPrices records new mark prices and recalculates unrealized P&L
// for every position and market position touched.
func (p *Portfolio) UpdateMarkPrices(prices map[string]decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for assetID, price := range prices {
		p.currentPrices[assetID] = price
		if pos, ok := p.positions[assetID]; ok {
			pos.UpdateUnrealizedPnL(price)
		}
	}
	for _, mp := range p.marketPositions {
		mp.UpdateUnrealizedPnL(p.currentPrices)
	}
}

// GetReturn is the fractional return on initial cash.
func (p *Portfolio) GetReturn() decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.initialCash.IsZero() {
		return decimal.Zero
	}
	total := p.cash
	for _, pos := range p.positions {
		total = total.Add(pos.Quantity.Mul(pos.CurrentPrice))
	}
	return total.Sub(p.initialCash).Div(p.initialCash)
}

// Fills returns every fill applied so far, in application order.
func (p *Portfolio) Fills() []types.Fill {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]types.Fill, len(p.fills))
	copy(out, p.fills)
	return out
}
