package types

import "github.com/shopspring/decimal"

// Side is the directional side of a trade, order, or fill.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Trade is a single executed trade on the venue tape, normalized across
// venues.
type Trade struct {
	AssetID   string
	MarketID  string
	Timestamp int64 // ms UTC
	Price     decimal.Decimal
	Size      decimal.Decimal
	Side      Side
	Venue     Venue
}
