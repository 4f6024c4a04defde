package ingest

import (
	"sync"

	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/types"
)

// BookView is an in-memory read view over the latest snapshot and market
// metadata the pipeline has processed, for the debug HTTP server
// (pkg/httpserver) to query without reaching into persistence. It is
// optional: a Pipeline constructed with a nil BookView simply skips
// updating it.
type BookView struct {
	mu        sync.RWMutex
	snapshots map[string]*types.OrderbookSnapshot
	markets   map[string]types.Market
}

// NewBookView returns an empty BookView.
func NewBookView() *BookView {
	return &BookView{
		snapshots: make(map[string]*types.OrderbookSnapshot),
		markets:   make(map[string]types.Market),
	}
}

func (b *BookView) recordSnapshot(snap *types.OrderbookSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshots[snap.AssetID] = snap
}

func (b *BookView) recordMarket(market types.Market) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.markets[market.TokenID] = market
}

func (b *BookView) removeMarket(assetID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.markets, assetID)
	delete(b.snapshots, assetID)
}

// GetSnapshot returns the latest snapshot recorded for assetID, if any.
func (b *BookView) GetSnapshot(assetID string) (*types.OrderbookSnapshot, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	snap, ok := b.snapshots[assetID]
	return snap, ok
}

// GetMarket returns the market metadata recorded for assetID, if any.
func (b *BookView) GetMarket(assetID string) (types.Market, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	m, ok := b.markets[assetID]
	return m, ok
}

// ListMarkets returns every currently tracked market, in no particular
// order.
func (b *BookView) ListMarkets() []types.Market {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]types.Market, 0, len(b.markets))
	for _, m := range b.markets {
		out = append(out, m)
	}
	return out
}
