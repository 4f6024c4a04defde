// Package storage persists venue data (orderbook snapshots, trades,
// market metadata, market state transitions) with a batching writer that
// sits in front of a postgres or console sink.
package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/types"
)

// Sink is the low-level persistence target a Writer batches writes to.
// Implementations do not buffer; every call is a single round trip.
type Sink interface {
	// InsertSnapshots/InsertTrades take downgraded so a Sink can omit the
	// columns it already knows a prior call reported missing, rather than
	// rediscovering the mismatch on every batch.
	InsertSnapshots(ctx context.Context, snapshots []types.OrderbookSnapshot, downgraded bool) error
	InsertTrades(ctx context.Context, trades []types.Trade, downgraded bool) error
	UpsertMarket(ctx context.Context, market types.Market) error
	InsertStateHistory(ctx context.Context, assetID string, state types.MarketState, timestampMS int64) error
	Close() error
}

// Writer is the persistence-layer entry point the ingestion pipeline
// writes through.
type Writer interface {
	WriteSnapshot(ctx context.Context, snapshot *types.OrderbookSnapshot) error
	WriteTrade(ctx context.Context, trade *types.Trade) error
	UpsertMarket(ctx context.Context, market *types.Market) error
	AppendStateHistory(ctx context.Context, assetID string, state types.MarketState, timestampMS int64) error
	Flush(ctx context.Context) error
	Close() error
}

// BatchedWriter buffers snapshot and trade writes and flushes them to a
// Sink when either the buffer reaches BatchSize or FlushInterval elapses,
// whichever comes first. UpsertMarket and AppendStateHistory bypass
// batching entirely: the ingestion discovery loop's persist-before-
// subscribe invariant depends on those writes landing before the caller
// proceeds.
type BatchedWriter struct {
	mu     sync.Mutex
	sink   Sink
	logger *zap.Logger

	batchSize     int
	flushInterval time.Duration

	snapshotBuf []types.OrderbookSnapshot
	tradeBuf    []types.Trade

	// schemaDowngraded is set on the first schema-mismatch error, before
	// the downgraded retry is attempted, so subsequent batches skip
	// straight to the reduced write shape instead of re-discovering it
	// every flush.
	schemaDowngraded bool

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewBatchedWriter wraps sink with batching and starts its background
// flush timer.
func NewBatchedWriter(sink Sink, logger *zap.Logger, batchSize int, flushInterval time.Duration) *BatchedWriter {
	w := &BatchedWriter{
		sink:          sink,
		logger:        logger,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
	go w.flushLoop()
	return w
}

func (w *BatchedWriter) flushLoop() {
	defer close(w.doneCh)
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			if err := w.Flush(context.Background()); err != nil {
				w.logger.Warn("periodic-flush-failed", zap.Error(err))
			}
		}
	}
}

// WriteSnapshot buffers a snapshot, flushing immediately if the buffer has
// reached BatchSize.
func (w *BatchedWriter) WriteSnapshot(ctx context.Context, snapshot *types.OrderbookSnapshot) error {
	w.mu.Lock()
	w.snapshotBuf = append(w.snapshotBuf, *snapshot)
	full := len(w.snapshotBuf) >= w.batchSize
	w.mu.Unlock()

	if full {
		return w.Flush(ctx)
	}
	return nil
}

// WriteTrade buffers a trade, flushing immediately if the buffer has
// reached BatchSize.
func (w *BatchedWriter) WriteTrade(ctx context.Context, trade *types.Trade) error {
	w.mu.Lock()
	w.tradeBuf = append(w.tradeBuf, *trade)
	full := len(w.tradeBuf) >= w.batchSize
	w.mu.Unlock()

	if full {
		return w.Flush(ctx)
	}
	return nil
}

// UpsertMarket writes through immediately, unbatched.
func (w *BatchedWriter) UpsertMarket(ctx context.Context, market *types.Market) error {
	return w.sink.UpsertMarket(ctx, *market)
}

// AppendStateHistory writes through immediately, unbatched.
func (w *BatchedWriter) AppendStateHistory(ctx context.Context, assetID string, state types.MarketState, timestampMS int64) error {
	return w.sink.InsertStateHistory(ctx, assetID, state, timestampMS)
}

// Flush drains both buffers to the sink. A schema-mismatch error on the
// first attempt triggers one downgraded retry; a foreign-key violation
// drops the batch rather than retrying, since retrying an FK violation
// without the referenced row appearing would loop forever.
func (w *BatchedWriter) Flush(ctx context.Context) error {
	w.mu.Lock()
	snapshots := w.snapshotBuf
	trades := w.tradeBuf
	w.snapshotBuf = nil
	w.tradeBuf = nil
	w.mu.Unlock()

	if len(snapshots) > 0 {
		if err := w.flushSnapshots(ctx, snapshots); err != nil {
			return err
		}
	}
	if len(trades) > 0 {
		if err := w.flushTrades(ctx, trades); err != nil {
			return err
		}
	}
	return nil
}

func (w *BatchedWriter) flushSnapshots(ctx context.Context, snapshots []types.OrderbookSnapshot) error {
	w.mu.Lock()
	downgraded := w.schemaDowngraded
	w.mu.Unlock()

	err := w.sink.InsertSnapshots(ctx, snapshots, downgraded)
	if err == nil {
		return nil
	}

	if errors.Is(err, types.ErrPersistenceFKViolation) {
		w.logger.Warn("dropping-snapshot-batch-fk-violation", zap.Int("count", len(snapshots)))
		return nil
	}

	if errors.Is(err, types.ErrPersistenceSchemaMismatch) && !downgraded {
		w.mu.Lock()
		w.schemaDowngraded = true
		w.mu.Unlock()
		w.logger.Warn("schema-mismatch-downgrading-and-retrying", zap.Int("count", len(snapshots)))
		return w.sink.InsertSnapshots(ctx, snapshots, true)
	}

	return err
}

func (w *BatchedWriter) flushTrades(ctx context.Context, trades []types.Trade) error {
	w.mu.Lock()
	downgraded := w.schemaDowngraded
	w.mu.Unlock()

	err := w.sink.InsertTrades(ctx, trades, downgraded)
	if err == nil {
		return nil
	}

	if errors.Is(err, types.ErrPersistenceFKViolation) {
		w.logger.Warn("dropping-trade-batch-fk-violation", zap.Int("count", len(trades)))
		return nil
	}

	if errors.Is(err, types.ErrPersistenceSchemaMismatch) && !downgraded {
		w.mu.Lock()
		w.schemaDowngraded = true
		w.mu.Unlock()
		w.logger.Warn("schema-mismatch-downgrading-and-retrying", zap.Int("count", len(trades)))
		return w.sink.InsertTrades(ctx, trades, true)
	}

	return err
}

// Close flushes any remaining buffered writes and closes the sink.
func (w *BatchedWriter) Close() error {
	close(w.stopCh)
	<-w.doneCh

	if err := w.Flush(context.Background()); err != nil {
		w.logger.Warn("final-flush-failed", zap.Error(err))
	}
	return w.sink.Close()
}
