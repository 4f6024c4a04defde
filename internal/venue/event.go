// Package venue defines the venue-independent event model and adapter
// contract that venuea (separate-token) and venueb (single-ticker)
// implement, per spec.md §4.1 and §9's closed-sum-type dispatch note.
package venue

import (
	"context"

	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/types"
)

// EventKind discriminates the normalized event variants an Adapter can
// emit. Modeled as a closed sum rather than an open interface hierarchy
// so the ingestion pipeline can switch on it exhaustively.
type EventKind int

const (
	EventOrderbook EventKind = iota
	EventTrade
	EventMarketDiscovered
	EventMarketClosed
	EventConnectionLost
	EventShutdown
)

// Event is the single wire-format-independent value venue adapters emit
// on their Events() channel. Exactly one payload field is populated,
// selected by Kind.
type Event struct {
	Kind      EventKind
	Orderbook *types.OrderbookSnapshot
	Trade     *types.Trade
	Market    *types.Market
	AssetID   string // populated for MarketClosed
	Err       error  // populated for ConnectionLost
}

// Adapter is the uniform contract both venue implementations satisfy.
// Connect performs whatever handshake/auth the venue requires and starts
// the transport; it is not idempotent, and each call dials a new
// connection. Subscribe/Unsubscribe write the wire message at once and
// update the transport's desired-subscription set, which is re-sent in
// full on reconnect; nothing is queued for a session that is not yet
// connected. Events is never closed by the adapter; when the transport
// shuts down, an EventConnectionLost event is emitted instead.
type Adapter interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, assetIDs []string) error
	Unsubscribe(ctx context.Context, assetIDs []string) error
	DiscoverMarkets(ctx context.Context, filter types.DiscoveryFilter) ([]types.Market, error)
	Events() <-chan Event
	Close() error
}
