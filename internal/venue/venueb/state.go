package venueb

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/types"
)

// cents is an integer price in [0,100], the wire unit for this venue.
type cents int

// bookState is the per-ticker reconstruction state: a monotonically
// increasing seq and the two resting-size maps the wire protocol updates
// independently. Grounded on spec.md §4.1's Variant B algorithm.
type bookState struct {
	seq       int64
	yesLevels map[cents]decimal.Decimal
	noLevels  map[cents]decimal.Decimal
}

func newBookState() *bookState {
	return &bookState{
		yesLevels: make(map[cents]decimal.Decimal),
		noLevels:  make(map[cents]decimal.Decimal),
	}
}

// applySnapshot overwrites both maps atomically and sets seq. Per
// spec.md §4.1, a snapshot always wins regardless of the incoming seq
// ordering relative to prior deltas, since it is a full replacement.
func (b *bookState) applySnapshot(seq int64, yes, no map[cents]decimal.Decimal) {
	b.seq = seq
	b.yesLevels = yes
	b.noLevels = no
}

// applyDelta updates one side by a signed quantity delta at a price
// level. Deltas at or behind the tracked seq are discarded (stale);
// otherwise the level is updated in place and removed if it reaches
// zero or goes negative.
func (b *bookState) applyDelta(seq int64, side string, price cents, sizeDelta decimal.Decimal) error {
	if seq <= b.seq {
		return types.ErrStaleSequence
	}
	b.seq = seq

	levels := b.yesLevels
	if side == "no" {
		levels = b.noLevels
	}

	newQty := levels[price].Add(sizeDelta)
	if newQty.LessThanOrEqual(decimal.Zero) {
		delete(levels, price)
	} else {
		levels[price] = newQty
	}
	return nil
}

// normalize converts the two resting-size maps into a bids/asks
// OrderbookSnapshot: bids are the yes levels sorted descending by price;
// asks are the no levels converted to the complement price (100-p)/100
// and sorted ascending, per spec.md §4.1.
func (b *bookState) normalize(assetID string, timestampMS int64) *types.OrderbookSnapshot {
	bids := make([]types.PriceLevel, 0, len(b.yesLevels))
	for price, qty := range b.yesLevels {
		bids = append(bids, types.PriceLevel{
			Price: decimal.NewFromInt(int64(price)).Div(decimal.NewFromInt(100)),
			Size:  qty,
		})
	}
	sort.Slice(bids, func(i, j int) bool { return bids[i].Price.GreaterThan(bids[j].Price) })

	asks := make([]types.PriceLevel, 0, len(b.noLevels))
	for price, qty := range b.noLevels {
		asks = append(asks, types.PriceLevel{
			Price: decimal.NewFromInt(int64(100 - price)).Div(decimal.NewFromInt(100)),
			Size:  qty,
		})
	}
	sort.Slice(asks, func(i, j int) bool { return asks[i].Price.LessThan(asks[j].Price) })

	return &types.OrderbookSnapshot{
		AssetID:   assetID,
		Timestamp: timestampMS,
		Bids:      bids,
		Asks:      asks,
		Venue:     types.VenueB,
	}
}
