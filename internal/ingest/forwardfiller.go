package ingest

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/RishabSBanthiya/prediction-market-data-services/internal/storage"
	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/types"
)

// ForwardFiller keeps the last real snapshot seen per token and, on a
// fixed tick, writes a synthetic copy through the same writer real
// events go through. This gives downstream replay a regular heartbeat
// between real venue updates (spec.md §4.2).
type ForwardFiller struct {
	mu     sync.Mutex
	last   map[string]*types.OrderbookSnapshot
	writer storage.Writer
	interval time.Duration
	logger *zap.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewForwardFiller constructs a ForwardFiller. Start must be called to
// begin the tick loop.
func NewForwardFiller(writer storage.Writer, interval time.Duration, logger *zap.Logger) *ForwardFiller {
	return &ForwardFiller{
		last:     make(map[string]*types.OrderbookSnapshot),
		writer:   writer,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// RecordReal stores the latest real (non-forward-filled) snapshot for a
// token, overwriting whatever was there before. Forward-filled copies are
// never recorded here.
func (f *ForwardFiller) RecordReal(snapshot *types.OrderbookSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last[snapshot.AssetID] = snapshot
}

// Register begins tracking a token with no real snapshot yet. The token
// is skipped on ticks until its first real snapshot arrives.
func (f *ForwardFiller) Register(assetID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.last[assetID]; !ok {
		f.last[assetID] = nil
	}
}

// Unregister stops tracking a token, e.g. once its market closes.
func (f *ForwardFiller) Unregister(assetID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.last, assetID)
}

// Start runs the tick loop in a new goroutine until Close is called or
// ctx is done.
func (f *ForwardFiller) Start(ctx context.Context) {
	go f.run(ctx)
}

func (f *ForwardFiller) run(ctx context.Context) {
	defer close(f.doneCh)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-f.stopCh:
			return
		case <-ticker.C:
			f.tick(ctx)
		}
	}
}

// tick emits a forward-filled copy for every token with at least one
// real snapshot recorded.
func (f *ForwardFiller) tick(ctx context.Context) {
	f.mu.Lock()
	copies := make([]*types.OrderbookSnapshot, 0, len(f.last))
	for _, snap := range f.last {
		if snap == nil {
			continue
		}
		copies = append(copies, snap)
	}
	f.mu.Unlock()

	nowMS := time.Now().UnixMilli()
	for _, real := range copies {
		copyOf := real.Clone()
		copyOf.IsForwardFilled = true
		copyOf.SourceTimestamp = real.Timestamp
		copyOf.Timestamp = nowMS

		if err := f.writer.WriteSnapshot(ctx, copyOf); err != nil {
			f.logger.Warn("forward-fill-write-failed", zap.String("asset_id", copyOf.AssetID), zap.Error(err))
			continue
		}
		ForwardFilledSnapshotsTotal.Inc()
	}
}

// Close stops the tick loop and waits for it to exit.
func (f *ForwardFiller) Close() {
	close(f.stopCh)
	<-f.doneCh
}
