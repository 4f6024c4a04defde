package matching

import "github.com/shopspring/decimal"

// FeeSchedule computes trading fees in basis points of notional, with a
// separate rate for maker and taker fills.
type FeeSchedule struct {
	MakerBPS int64
	TakerBPS int64
}

// NewFeeSchedule returns a schedule with the given maker/taker rates in
// basis points (1 bps = 0.01%).
func NewFeeSchedule(makerBPS, takerBPS int64) FeeSchedule {
	return FeeSchedule{MakerBPS: makerBPS, TakerBPS: takerBPS}
}

// CalculateFee returns the fee owed on a fill of quantity at price, using
// the maker or taker rate depending on isMaker.
func (f FeeSchedule) CalculateFee(quantity, price decimal.Decimal, isMaker bool) decimal.Decimal {
	bps := f.TakerBPS
	if isMaker {
		bps = f.MakerBPS
	}
	notional := quantity.Mul(price)
	return notional.Mul(decimal.NewFromInt(bps)).Div(decimal.NewFromInt(10000))
}
