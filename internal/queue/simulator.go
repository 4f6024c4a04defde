// Package queue simulates queue position for resting limit orders that
// have not yet become marketable, estimating when a trade printed on the
// tape would have reached an order's place in line.
package queue

import (
	"math/rand"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/types"
)

// Entry tracks one resting order's position in the simulated queue.
type Entry struct {
	OrderID                 string
	AssetID                 string
	Side                    types.Side
	Price                   decimal.Decimal
	Quantity                decimal.Decimal
	SizeAhead               decimal.Decimal
	CumulativeVolumeAtPrice decimal.Decimal
}

// Simulator tracks resting orders and, as trades print, determines which
// ones have queued far enough forward to fill. Fill outcomes are
// probabilistic (FillProbability) and driven by a seeded RNG so a replay
// run is reproducible given the same seed.
type Simulator struct {
	mu              sync.Mutex
	entries         map[string]*Entry // orderID -> Entry
	byAsset         map[string][]string
	fillProbability float64
	rng             *rand.Rand
}

// NewSimulator returns a simulator with the given fill probability and RNG
// seed.
func NewSimulator(fillProbability float64, seed int64) *Simulator {
	return &Simulator{
		entries:         make(map[string]*Entry),
		byAsset:         make(map[string][]string),
		fillProbability: fillProbability,
		rng:             rand.New(rand.NewSource(seed)),
	}
}

// AddOrder registers a resting order against the current orderbook
// snapshot. SizeAhead is the total resting size that must trade through
// before this order's turn: for a BUY, the sum of bid size at prices at or
// above the order's price (orders ahead of it in the same price-or-better
// band); for a SELL, the symmetric sum of ask size at prices at or below.
// A nil snapshot (no book seen yet for the asset) gives a SizeAhead of zero.
func (s *Simulator) AddOrder(order *types.Order, snapshot *types.OrderbookSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var bids, asks []types.PriceLevel
	if snapshot != nil {
		bids, asks = snapshot.Bids, snapshot.Asks
	}

	sizeAhead := decimal.Zero
	if order.Side == types.Buy {
		for _, level := range bids {
			if level.Price.GreaterThanOrEqual(order.Price) {
				sizeAhead = sizeAhead.Add(level.Size)
			}
		}
	} else {
		for _, level := range asks {
			if level.Price.LessThanOrEqual(order.Price) {
				sizeAhead = sizeAhead.Add(level.Size)
			}
		}
	}

	entry := &Entry{
		OrderID:                 order.OrderID,
		AssetID:                 order.AssetID,
		Side:                    order.Side,
		Price:                   order.Price,
		Quantity:                order.RemainingQuantity(),
		SizeAhead:               sizeAhead,
		CumulativeVolumeAtPrice: decimal.Zero,
	}
	s.entries[order.OrderID] = entry
	s.byAsset[order.AssetID] = append(s.byAsset[order.AssetID], order.OrderID)
}

// RemoveOrder drops an order from the queue, e.g. on cancel or full fill.
func (s *Simulator) RemoveOrder(orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(orderID)
}

func (s *Simulator) removeLocked(orderID string) {
	entry, ok := s.entries[orderID]
	if !ok {
		return
	}
	delete(s.entries, orderID)

	ids := s.byAsset[entry.AssetID]
	for i, id := range ids {
		if id == orderID {
			s.byAsset[entry.AssetID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
}

// ProcessTrade advances every resting order on trade.AssetID whose price is
// marketable against the trade: a BUY order queues ahead when the trade
// price is at or below its price; a SELL order queues ahead when the trade
// price is at or above its price. Once an order's cumulative matched
// volume reaches its SizeAhead, FillProbability decides (via the
// simulator's seeded RNG) whether it fills on this trade. Returns the IDs
// of orders that fill; they are removed from the queue before it returns.
func (s *Simulator) ProcessTrade(trade *types.Trade) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var toFill []string

	for _, orderID := range append([]string(nil), s.byAsset[trade.AssetID]...) {
		entry, ok := s.entries[orderID]
		if !ok {
			continue
		}

		aggressable := false
		if entry.Side == types.Buy {
			aggressable = trade.Price.LessThanOrEqual(entry.Price)
		} else {
			aggressable = trade.Price.GreaterThanOrEqual(entry.Price)
		}
		if !aggressable {
			continue
		}

		entry.CumulativeVolumeAtPrice = entry.CumulativeVolumeAtPrice.Add(trade.Size)
		if entry.CumulativeVolumeAtPrice.LessThan(entry.SizeAhead) {
			continue
		}

		if s.rng.Float64() < s.fillProbability {
			toFill = append(toFill, orderID)
		}
	}

	for _, orderID := range toFill {
		s.removeLocked(orderID)
	}

	return toFill
}
