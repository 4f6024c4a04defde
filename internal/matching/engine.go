// Package matching simulates order execution against historical orderbook
// snapshots and trade tape: validating orders against the current
// portfolio, walking the book for marketable fills, and queuing resting
// limit orders until the tape proves they would have traded.
package matching

import (
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/RishabSBanthiya/prediction-market-data-services/internal/portfolio"
	"github.com/RishabSBanthiya/prediction-market-data-services/internal/queue"
	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/types"
)

// FillHandler is notified of every fill the engine applies, letting
// reporting layers (trade pairing, equity sampling) observe execution
// without the engine depending on them directly.
type FillHandler func(fill types.Fill)

// Config bounds order sizes and fee rates for an Engine.
type Config struct {
	MinOrderSize decimal.Decimal
	MaxOrderSize decimal.Decimal
	Fees         FeeSchedule
}

// Engine is a single-asset-class matching simulator. It is not safe for
// concurrent calls from multiple goroutines without external
// synchronization beyond what its internal mutex provides for its own
// state; callers (the backtest runner) drive it serially from the merged
// event stream.
type Engine struct {
	mu sync.Mutex

	logger    *zap.Logger
	portfolio *portfolio.Portfolio
	pairs     *portfolio.MarketPairRegistry
	queueSim  *queue.Simulator
	cfg       Config

	orders          map[string]*types.Order
	pendingByAsset  map[string][]string
	latestSnapshot  map[string]*types.OrderbookSnapshot
	currentTimestampMS int64

	onFill FillHandler
}

// NewEngine constructs an Engine bound to a portfolio and market-pair
// registry.
func NewEngine(logger *zap.Logger, pf *portfolio.Portfolio, pairs *portfolio.MarketPairRegistry, qs *queue.Simulator, cfg Config) *Engine {
	return &Engine{
		logger:         logger,
		portfolio:      pf,
		pairs:          pairs,
		queueSim:       qs,
		cfg:            cfg,
		orders:         make(map[string]*types.Order),
		pendingByAsset: make(map[string][]string),
		latestSnapshot: make(map[string]*types.OrderbookSnapshot),
	}
}

// SetFillHandler registers a callback invoked synchronously after every
// fill is applied to the portfolio.
func (e *Engine) SetFillHandler(h FillHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onFill = h
}

// GetOrder returns the order by ID, if tracked.
func (e *Engine) GetOrder(orderID string) (*types.Order, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	o, ok := e.orders[orderID]
	return o, ok
}

// SubmitOrder validates and, where possible, executes an order. The
// returned order always reflects the outcome: a rejected order has
// Status=OrderRejected and RejectionReason set; the engine never returns a
// non-nil error for a business-rule rejection, only for truly unexpected
// failures.
func (e *Engine) SubmitOrder(order *types.Order) (*types.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if order.OrderID == "" {
		order.OrderID = uuid.NewString()
	}
	if order.SubmittedAtMS == 0 {
		order.SubmittedAtMS = e.currentTimestampMS
	}
	order.Status = types.OrderPending

	if rejected := e.validateSize(order); rejected != "" {
		return e.reject(order, rejected), nil
	}
	if order.OrderType == types.OrderTypeLimit {
		if order.Price.LessThan(decimal.Zero) || order.Price.GreaterThan(decimal.NewFromInt(1)) {
			return e.reject(order, types.RejectInvalidPrice), nil
		}
	}

	switch order.Side {
	case types.Buy:
		worstCasePrice := order.Price
		if order.OrderType == types.OrderTypeMarket {
			worstCasePrice = decimal.NewFromInt(1)
		}
		cost := order.Quantity.Mul(worstCasePrice)
		if cost.GreaterThan(e.portfolio.BuyingPower()) {
			return e.reject(order, types.RejectInsufficientFunds), nil
		}
	case types.Sell:
		pos, _ := e.portfolio.GetPosition(order.AssetID)
		held := decimal.Zero
		if pos != nil && pos.Quantity.GreaterThan(decimal.Zero) {
			held = pos.Quantity
		}
		if held.LessThan(order.Quantity) {
			converted, ok := e.tryComplementConversion(order, held)
			if !ok {
				return e.reject(order, types.RejectInsufficientPosition), nil
			}
			order = converted
		}
	}

	e.orders[order.OrderID] = order

	switch order.OrderType {
	case types.OrderTypeMarket:
		e.executeAgainstBook(order, true)
	case types.OrderTypeLimit:
		e.handleLimitOrder(order)
	}

	return order, nil
}

func (e *Engine) validateSize(order *types.Order) types.RejectionReason {
	if order.Quantity.LessThan(e.cfg.MinOrderSize) || order.Quantity.GreaterThan(e.cfg.MaxOrderSize) {
		return types.RejectInvalidSize
	}
	return ""
}

func (e *Engine) reject(order *types.Order, reason types.RejectionReason) *types.Order {
	order.Status = types.OrderRejected
	order.RejectionReason = reason
	return order
}

// tryComplementConversion rewrites a SELL that exceeds the held position
// into a BUY of the complementary token at 1-price, for markets where the
// two outcomes are distinct tradable tokens. Self-pair (single-ticker)
// markets have no complement token to convert into, so the sell is let
// through unchanged (a short position).
func (e *Engine) tryComplementConversion(order *types.Order, held decimal.Decimal) (*types.Order, bool) {
	if e.pairs == nil {
		return nil, false
	}
	pair, ok := e.pairs.GetPairForToken(order.AssetID)
	if !ok {
		return nil, false
	}
	if pair.IsSelfPair() {
		return order, true
	}

	complementToken, err := pair.GetComplementToken(order.AssetID)
	if err != nil {
		return nil, false
	}

	converted := *order
	converted.AssetID = complementToken
	converted.Side = types.Buy
	if order.OrderType == types.OrderTypeLimit {
		converted.Price = pair.GetComplementPrice(order.Price)
	}
	return &converted, true
}

// handleLimitOrder executes a marketable limit order immediately (leaving
// any unfilled remainder resting per its time-in-force) or queues a
// non-marketable GTC order, rejecting/cancelling FOK/IOC orders that
// cannot trade at all right now.
func (e *Engine) handleLimitOrder(order *types.Order) {
	snapshot, hasBook := e.latestSnapshot[order.AssetID]
	marketable := hasBook && e.isLimitOrderMarketable(order, snapshot)

	if !marketable {
		switch order.TimeInForce {
		case types.TIFFOK:
			e.reject(order, types.RejectFOKNotFillable)
		case types.TIFIOC:
			order.Status = types.OrderCancelled
		default: // GTC
			e.queueSim.AddOrder(order, snapshot)
			e.pendingByAsset[order.AssetID] = append(e.pendingByAsset[order.AssetID], order.OrderID)
		}
		return
	}

	if order.TimeInForce == types.TIFFOK {
		if !e.canFullyFillAtLimit(order, snapshot) {
			e.reject(order, types.RejectFOKNotFillable)
			return
		}
	}

	e.executeAgainstBook(order, false)

	if order.Status == types.OrderPartial {
		switch order.TimeInForce {
		case types.TIFIOC:
			order.Status = types.OrderCancelled
		default: // GTC rests the remainder
			e.queueSim.AddOrder(order, snapshot)
			e.pendingByAsset[order.AssetID] = append(e.pendingByAsset[order.AssetID], order.OrderID)
		}
	}
}

func (e *Engine) isLimitOrderMarketable(order *types.Order, snapshot *types.OrderbookSnapshot) bool {
	if order.Side == types.Buy {
		ask, ok := snapshot.BestAsk()
		return ok && order.Price.GreaterThanOrEqual(ask.Price)
	}
	bid, ok := snapshot.BestBid()
	return ok && order.Price.LessThanOrEqual(bid.Price)
}

// canFullyFillAtLimit reports whether walking the book up to order.Price
// would satisfy the full requested quantity, without mutating any state.
func (e *Engine) canFullyFillAtLimit(order *types.Order, snapshot *types.OrderbookSnapshot) bool {
	levels := snapshot.Asks
	if order.Side == types.Sell {
		levels = snapshot.Bids
	}
	remaining := order.RemainingQuantity()
	for _, level := range levels {
		if order.Side == types.Buy && level.Price.GreaterThan(order.Price) {
			break
		}
		if order.Side == types.Sell && level.Price.LessThan(order.Price) {
			break
		}
		remaining = remaining.Sub(decimal.Min(remaining, level.Size))
		if remaining.LessThanOrEqual(decimal.Zero) {
			return true
		}
	}
	return remaining.LessThanOrEqual(decimal.Zero)
}

// executeAgainstBook walks the contra side of the latest snapshot for
// order.AssetID, filling as much as liquidity allows. isMarketOrder
// disables the limit-price stop condition and, for market orders with
// TIFFOK, rejects instead of partially filling when liquidity runs out
// before the full quantity is matched.
func (e *Engine) executeAgainstBook(order *types.Order, isMarketOrder bool) {
	snapshot, ok := e.latestSnapshot[order.AssetID]
	if !ok {
		e.reject(order, types.RejectNoLiquidity)
		return
	}

	levels := snapshot.Asks
	if order.Side == types.Sell {
		levels = snapshot.Bids
	}
	if len(levels) == 0 {
		e.reject(order, types.RejectNoLiquidity)
		return
	}

	remaining := order.RemainingQuantity()
	totalCost := decimal.Zero
	totalQty := decimal.Zero

	for _, level := range levels {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}
		if !isMarketOrder {
			if order.Side == types.Buy && level.Price.GreaterThan(order.Price) {
				break
			}
			if order.Side == types.Sell && level.Price.LessThan(order.Price) {
				break
			}
		}

		qtyFromLevel := decimal.Min(remaining, level.Size)
		totalCost = totalCost.Add(qtyFromLevel.Mul(level.Price))
		totalQty = totalQty.Add(qtyFromLevel)
		remaining = remaining.Sub(qtyFromLevel)
	}

	if totalQty.LessThanOrEqual(decimal.Zero) {
		e.reject(order, types.RejectNoLiquidity)
		return
	}

	if isMarketOrder && order.TimeInForce == types.TIFFOK && totalQty.LessThan(order.RemainingQuantity()) {
		e.reject(order, types.RejectFOKNotFillable)
		return
	}

	avgPrice := totalCost.Div(totalQty)
	// Marketable limit fills are classified maker=true; only market-order
	// fills (the order that actively crosses, never one resting) are
	// taker. This is the source backtester's convention, not a universal
	// one, and the reason it reads backwards from typical exchange
	// behavior is worth keeping explicit.
	e.applyFill(order, totalQty, avgPrice, !isMarketOrder, types.FillImmediate)
}

// ProcessOrderbookUpdate records the latest book for an asset and
// re-checks every resting limit order on that asset for marketability,
// executing any that have newly crossed.
func (e *Engine) ProcessOrderbookUpdate(snapshot *types.OrderbookSnapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.latestSnapshot[snapshot.AssetID] = snapshot
	if snapshot.Timestamp > e.currentTimestampMS {
		e.currentTimestampMS = snapshot.Timestamp
	}

	pending := e.pendingByAsset[snapshot.AssetID]
	if len(pending) == 0 {
		return
	}

	stillPending := pending[:0:0]
	for _, orderID := range pending {
		order, ok := e.orders[orderID]
		if !ok || order.IsTerminal() {
			continue
		}
		if e.isLimitOrderMarketable(order, snapshot) {
			e.queueSim.RemoveOrder(orderID)
			e.executeAgainstBook(order, false)
			if !order.IsTerminal() {
				stillPending = append(stillPending, orderID)
			}
			continue
		}
		stillPending = append(stillPending, orderID)
	}
	e.pendingByAsset[snapshot.AssetID] = stillPending
}

// ProcessTrade advances the engine clock and fills any resting orders the
// queue simulator determines have reached the front of the line.
func (e *Engine) ProcessTrade(trade *types.Trade) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if trade.Timestamp > e.currentTimestampMS {
		e.currentTimestampMS = trade.Timestamp
	}

	filledIDs := e.queueSim.ProcessTrade(trade)
	for _, orderID := range filledIDs {
		order, ok := e.orders[orderID]
		if !ok {
			continue
		}
		e.removePending(order.AssetID, orderID)
		e.applyFill(order, order.RemainingQuantity(), order.Price, true, types.FillQueueReached)
	}
}

func (e *Engine) removePending(assetID, orderID string) {
	ids := e.pendingByAsset[assetID]
	for i, id := range ids {
		if id == orderID {
			e.pendingByAsset[assetID] = append(ids[:i], ids[i+1:]...)
			return
		}
	}
}

// applyFill creates a Fill, updates the order's filled quantity, average
// fill price and status, auto-cancels dust remainders below MinOrderSize,
// settles the fill against the portfolio, and notifies the fill handler.
//
// Market-order fills are always taker (IsMaker=false): the order
// actively crossed the book. Marketable limit fills and queue-reached
// fills are both maker (IsMaker=true), per the execution model's
// convention — see the comment in executeAgainstBook. This does not
// model partial maker/taker splits within a single fill.
func (e *Engine) applyFill(order *types.Order, qty, price decimal.Decimal, isMaker bool, reason types.FillReason) {
	fees := e.cfg.Fees.CalculateFee(qty, price, isMaker)

	fill := types.Fill{
		FillID:      uuid.NewString(),
		OrderID:     order.OrderID,
		AssetID:     order.AssetID,
		Side:        order.Side,
		Price:       price,
		Quantity:    qty,
		Fees:        fees,
		TimestampMS: e.currentTimestampMS,
		IsMaker:     isMaker,
		Reason:      reason,
	}

	prevFilled := order.FilledQuantity
	newFilled := prevFilled.Add(qty)
	if newFilled.GreaterThan(decimal.Zero) {
		order.AvgFillPrice = order.AvgFillPrice.Mul(prevFilled).Add(price.Mul(qty)).Div(newFilled)
	}
	order.FilledQuantity = newFilled

	if order.IsFullyFilled() {
		order.Status = types.OrderFilled
	} else {
		order.Status = types.OrderPartial
		if order.RemainingQuantity().LessThan(e.cfg.MinOrderSize) {
			order.Status = types.OrderCancelled
			e.queueSim.RemoveOrder(order.OrderID)
			e.removePending(order.AssetID, order.OrderID)
		}
	}

	e.portfolio.ApplyFill(fill)

	if e.onFill != nil {
		e.onFill(fill)
	}
}
