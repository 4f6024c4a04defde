package replay

import "github.com/RishabSBanthiya/prediction-market-data-services/pkg/types"

// EventKind discriminates the two event variants MergedIterator produces.
type EventKind int

const (
	EventKindOrderbook EventKind = iota
	EventKindTrade
)

// Event is a single time-ordered item from a merged orderbook+trade
// stream. Exactly one of Orderbook or Trade is non-nil, matching Kind.
type Event struct {
	Kind        EventKind
	TimestampMS int64
	EventIndex  int
	Orderbook   *types.OrderbookSnapshot
	Trade       *types.Trade
}

// MergedIterator walks two timestamp-sorted slices (orderbook snapshots
// and trades) as a single stream ordered by (timestamp, kind), with trades
// sorted ahead of orderbook snapshots at equal timestamps — matching the
// convention that a trade print explains the book state that follows it.
// EventIndex increases strictly by one per event regardless of source.
type MergedIterator struct {
	orderbooks []types.OrderbookSnapshot
	trades     []types.Trade
	obIdx      int
	trIdx      int
	nextIndex  int
}

// NewMergedIterator returns an iterator over already timestamp-sorted
// orderbooks and trades. Loaders are responsible for presenting both
// slices pre-sorted by TimestampMS; the iterator only merges, it does not
// sort.
func NewMergedIterator(orderbooks []types.OrderbookSnapshot, trades []types.Trade) *MergedIterator {
	return &MergedIterator{orderbooks: orderbooks, trades: trades}
}

// Next returns the next event in merged order, or (Event{}, false) once
// both sources are exhausted.
func (it *MergedIterator) Next() (Event, bool) {
	hasOB := it.obIdx < len(it.orderbooks)
	hasTr := it.trIdx < len(it.trades)

	if !hasOB && !hasTr {
		return Event{}, false
	}

	takeTrade := false
	switch {
	case hasTr && !hasOB:
		takeTrade = true
	case hasOB && !hasTr:
		takeTrade = false
	default:
		obTS := it.orderbooks[it.obIdx].Timestamp
		trTS := it.trades[it.trIdx].Timestamp
		// Trade wins ties: a trade at the same timestamp as a book update
		// is treated as having caused it.
		takeTrade = trTS <= obTS
	}

	idx := it.nextIndex
	it.nextIndex++

	if takeTrade {
		trade := &it.trades[it.trIdx]
		it.trIdx++
		return Event{Kind: EventKindTrade, TimestampMS: trade.Timestamp, EventIndex: idx, Trade: trade}, true
	}

	snapshot := &it.orderbooks[it.obIdx]
	it.obIdx++
	return Event{Kind: EventKindOrderbook, TimestampMS: snapshot.Timestamp, EventIndex: idx, Orderbook: snapshot}, true
}

// Remaining reports how many events are left across both sources.
func (it *MergedIterator) Remaining() int {
	return (len(it.orderbooks) - it.obIdx) + (len(it.trades) - it.trIdx)
}
