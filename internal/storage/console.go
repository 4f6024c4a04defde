package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/types"
)

// ConsoleSink implements Sink by pretty-printing to stdout. Useful for
// local listener runs without a database configured.
type ConsoleSink struct {
	logger *zap.Logger
}

// NewConsoleSink creates a console sink.
func NewConsoleSink(logger *zap.Logger) *ConsoleSink {
	logger.Info("console-sink-initialized")
	return &ConsoleSink{logger: logger}
}

// InsertSnapshots prints a one-line summary per snapshot. downgraded is
// unused: the console sink has no schema to mismatch against.
func (c *ConsoleSink) InsertSnapshots(ctx context.Context, snapshots []types.OrderbookSnapshot, downgraded bool) error {
	for _, s := range snapshots {
		bid, hasBid := s.BestBid()
		ask, hasAsk := s.BestAsk()
		fmt.Printf("[snapshot] asset=%s ts=%d bid=%v ask=%v forward_filled=%v\n",
			s.AssetID, s.Timestamp, bidOrNone(bid, hasBid), bidOrNone(ask, hasAsk), s.IsForwardFilled)
	}
	return nil
}

func bidOrNone(level types.PriceLevel, ok bool) string {
	if !ok {
		return "none"
	}
	return level.Price.String() + "@" + level.Size.String()
}

// InsertTrades prints a one-line summary per trade. downgraded is unused:
// the console sink has no schema to mismatch against.
func (c *ConsoleSink) InsertTrades(ctx context.Context, trades []types.Trade, downgraded bool) error {
	for _, t := range trades {
		fmt.Printf("[trade] asset=%s ts=%d side=%s price=%s size=%s\n",
			t.AssetID, t.Timestamp, t.Side, t.Price.String(), t.Size.String())
	}
	return nil
}

// UpsertMarket prints market metadata.
func (c *ConsoleSink) UpsertMarket(ctx context.Context, market types.Market) error {
	fmt.Printf("[market] condition=%s token=%s outcome=%s venue=%s state=%s\n",
		market.ConditionID, market.TokenID, market.Outcome, market.Venue, market.State)
	return nil
}

// InsertStateHistory prints a state transition.
func (c *ConsoleSink) InsertStateHistory(ctx context.Context, assetID string, state types.MarketState, timestampMS int64) error {
	fmt.Printf("[state] asset=%s state=%s ts=%d\n", assetID, state, timestampMS)
	return nil
}

// Close is a no-op for the console sink.
func (c *ConsoleSink) Close() error {
	c.logger.Info("closing-console-sink")
	return nil
}
