// Package replay loads historical orderbook snapshots, trades, and market
// metadata for a time range and asset set, and exposes them as a single
// deterministically time-ordered event stream for the backtest runner.
package replay

import (
	"context"

	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/types"
)

// Query selects the data a Loader should pull for one backtest run.
type Query struct {
	StartTimeMS          int64
	EndTimeMS            int64
	Venue                types.Venue
	AssetIDs             []string
	ListenerID           string // resolves to an asset set if AssetIDs is empty
	IncludeForwardFilled bool
}

// Dataset holds everything a backtest run needs, already loaded into
// memory and ready for iteration.
type Dataset struct {
	Orderbooks  []types.OrderbookSnapshot
	Trades      []types.Trade
	Markets     map[string]types.Market // keyed by token ID
	StartTimeMS int64
	EndTimeMS   int64
}

// EventIterator returns a MergedIterator over this dataset's snapshots and
// trades.
func (d *Dataset) EventIterator() *MergedIterator {
	return NewMergedIterator(d.Orderbooks, d.Trades)
}

// Loader resolves a Query into a Dataset.
type Loader interface {
	Load(ctx context.Context, query Query) (*Dataset, error)
}
