package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceLevel is a single (price, size) point in an orderbook side. Prices
// are exact decimals in [0,1]; spec.md §9 forbids binary floating point on
// any path that feeds positions, cash, fees or fill quantities.
type PriceLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// OrderbookSnapshot is the normalized, venue-independent view of a single
// asset's book at a point in time. Bids are ordered descending by price,
// asks ascending.
type OrderbookSnapshot struct {
	AssetID   string
	MarketID  string // condition_id
	Timestamp int64  // ms UTC
	Bids      []PriceLevel
	Asks      []PriceLevel

	// IsForwardFilled marks a synthetic heartbeat copy emitted by the
	// state forward-filler rather than a real venue update.
	IsForwardFilled bool
	// SourceTimestamp is the timestamp of the real snapshot this copy was
	// forward-filled from. Zero when IsForwardFilled is false.
	SourceTimestamp int64

	Venue Venue
	Hash  string // venue-provided integrity hash, if any
}

// BestBid returns the best (highest) bid level, or false if the book has
// no bids.
func (s *OrderbookSnapshot) BestBid() (PriceLevel, bool) {
	if len(s.Bids) == 0 {
		return PriceLevel{}, false
	}
	return s.Bids[0], true
}

// BestAsk returns the best (lowest) ask level, or false if the book has
// no asks.
func (s *OrderbookSnapshot) BestAsk() (PriceLevel, bool) {
	if len(s.Asks) == 0 {
		return PriceLevel{}, false
	}
	return s.Asks[0], true
}

// Spread returns ask - bid. Returns an error if either side is empty.
func (s *OrderbookSnapshot) Spread() (decimal.Decimal, error) {
	bid, ok := s.BestBid()
	if !ok {
		return decimal.Zero, fmt.Errorf("spread: no bids")
	}
	ask, ok := s.BestAsk()
	if !ok {
		return decimal.Zero, fmt.Errorf("spread: no asks")
	}
	return ask.Price.Sub(bid.Price), nil
}

// Mid returns (bid+ask)/2. Returns an error if either side is empty.
func (s *OrderbookSnapshot) Mid() (decimal.Decimal, error) {
	bid, ok := s.BestBid()
	if !ok {
		return decimal.Zero, fmt.Errorf("mid: no bids")
	}
	ask, ok := s.BestAsk()
	if !ok {
		return decimal.Zero, fmt.Errorf("mid: no asks")
	}
	return bid.Price.Add(ask.Price).Div(decimal.NewFromInt(2)), nil
}

// BidDepth sums size across all bid levels.
func (s *OrderbookSnapshot) BidDepth() decimal.Decimal {
	return sumSize(s.Bids)
}

// AskDepth sums size across all ask levels.
func (s *OrderbookSnapshot) AskDepth() decimal.Decimal {
	return sumSize(s.Asks)
}

func sumSize(levels []PriceLevel) decimal.Decimal {
	total := decimal.Zero
	for _, l := range levels {
		total = total.Add(l.Size)
	}
	return total
}

// IsCrossed reports whether the book violates best_bid < best_ask. A
// reconstructing adapter must discard state that would leave the book in
// this condition rather than emit it (spec.md §3 invariant).
func (s *OrderbookSnapshot) IsCrossed() bool {
	bid, okB := s.BestBid()
	ask, okA := s.BestAsk()
	if !okB || !okA {
		return false
	}
	return !bid.Price.LessThan(ask.Price)
}

// Clone returns a deep copy suitable for forward-filling: same levels, new
// IsForwardFilled/SourceTimestamp/Timestamp fields set by the caller.
func (s *OrderbookSnapshot) Clone() *OrderbookSnapshot {
	out := *s
	out.Bids = append([]PriceLevel(nil), s.Bids...)
	out.Asks = append([]PriceLevel(nil), s.Asks...)
	return &out
}
