package types

import "github.com/shopspring/decimal"

// OrderType distinguishes resting limit orders from immediate-execution
// market orders.
type OrderType string

const (
	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"
)

// TimeInForce controls how an order behaves when it cannot be fully
// executed immediately.
type TimeInForce string

const (
	TIFGTC TimeInForce = "gtc" // good 'til cancelled
	TIFIOC TimeInForce = "ioc" // immediate or cancel
	TIFFOK TimeInForce = "fok" // fill or kill
)

// OrderStatus is the order's position in the state machine of spec.md
// §4.5. Terminal states are Filled, Cancelled, and Rejected.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPartial   OrderStatus = "partial"
	OrderFilled    OrderStatus = "filled"
	OrderCancelled OrderStatus = "cancelled"
	OrderRejected  OrderStatus = "rejected"
)

// RejectionReason enumerates the order-level error taxonomy of spec.md §7.
type RejectionReason string

const (
	RejectInsufficientFunds    RejectionReason = "insufficient_funds"
	RejectInsufficientPosition RejectionReason = "insufficient_position"
	RejectNoLiquidity          RejectionReason = "no_liquidity"
	RejectInvalidPrice         RejectionReason = "invalid_price"
	RejectInvalidSize          RejectionReason = "invalid_size"
	RejectFOKNotFillable       RejectionReason = "fok_not_fillable"
	RejectOrderExpired         RejectionReason = "order_expired"
)

// FillReason records why a fill occurred, for reporting and fee
// attribution.
type FillReason string

const (
	FillImmediate    FillReason = "immediate"
	FillQueueReached FillReason = "queue_reached"
	FillSettlement   FillReason = "settlement"
)

// Order is a single order submitted to the matching engine. Quantity and
// FilledQuantity are always non-negative; Side encodes direction.
type Order struct {
	OrderID         string
	AssetID         string
	Side            Side
	OrderType       OrderType
	Price           decimal.Decimal // zero value for market orders
	Quantity        decimal.Decimal
	TimeInForce     TimeInForce
	Status          OrderStatus
	SubmittedAtMS   int64
	FilledQuantity  decimal.Decimal
	AvgFillPrice    decimal.Decimal
	RejectionReason RejectionReason
}

// RemainingQuantity is the unfilled portion of the order.
func (o *Order) RemainingQuantity() decimal.Decimal {
	return o.Quantity.Sub(o.FilledQuantity)
}

// IsFullyFilled reports whether FilledQuantity has reached Quantity.
func (o *Order) IsFullyFilled() bool {
	return o.FilledQuantity.GreaterThanOrEqual(o.Quantity)
}

// IsTerminal reports whether the order has left the active state machine.
func (o *Order) IsTerminal() bool {
	switch o.Status {
	case OrderFilled, OrderCancelled, OrderRejected:
		return true
	default:
		return false
	}
}

// Fill is a single execution against an Order.
type Fill struct {
	FillID      string
	OrderID     string
	AssetID     string
	Side        Side
	Price       decimal.Decimal
	Quantity    decimal.Decimal
	Fees        decimal.Decimal
	TimestampMS int64
	IsMaker     bool
	Reason      FillReason
}
