// Package ingest implements the two-priority event pipeline, periodic
// market discovery, and state forward-filling described in spec.md §4.2:
// it is the single writer of the "currently subscribed" asset set, and
// the only path through which venue events reach persistence.
package ingest

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/RishabSBanthiya/prediction-market-data-services/internal/storage"
	"github.com/RishabSBanthiya/prediction-market-data-services/internal/venue"
	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/types"
)

const controlPopTimeout = 100 * time.Millisecond

// Pipeline drains data_queue fully before popping at most one
// control_queue item per loop iteration, so discovery and shutdown
// traffic can never starve real-time orderbook and trade processing.
type Pipeline struct {
	dataQueue    chan venue.Event
	controlQueue chan venue.Event

	adapter       venue.Adapter
	writer        storage.Writer
	forwardFiller *ForwardFiller
	books         *BookView // optional, may be nil
	logger        *zap.Logger

	subMu      sync.Mutex
	subscribed map[string]struct{}
}

// NewPipeline constructs a Pipeline. adapter is used only to issue
// Subscribe/Unsubscribe calls once a market has been persisted, per the
// persist-before-subscribe invariant. books is optional; pass nil to skip
// maintaining the debug-server read view.
func NewPipeline(adapter venue.Adapter, writer storage.Writer, forwardFiller *ForwardFiller, books *BookView, logger *zap.Logger, dataBuf, controlBuf int) *Pipeline {
	return &Pipeline{
		dataQueue:     make(chan venue.Event, dataBuf),
		controlQueue:  make(chan venue.Event, controlBuf),
		adapter:       adapter,
		writer:        writer,
		forwardFiller: forwardFiller,
		books:         books,
		logger:        logger,
		subscribed:    make(map[string]struct{}),
	}
}

// SubmitData enqueues a venue data event (orderbook/trade). If the queue
// is full the event is dropped and counted; live ingestion prioritizes
// forward progress over buffering indefinitely.
func (p *Pipeline) SubmitData(e venue.Event) {
	select {
	case p.dataQueue <- e:
	default:
		EventsDroppedTotal.WithLabelValues("data_queue_full").Inc()
		p.logger.Warn("data-queue-full-dropping-event")
	}
}

// SubmitControl enqueues a control-plane event (discovery, market
// open/close, shutdown).
func (p *Pipeline) SubmitControl(e venue.Event) {
	select {
	case p.controlQueue <- e:
	default:
		EventsDroppedTotal.WithLabelValues("control_queue_full").Inc()
		p.logger.Warn("control-queue-full-dropping-event")
	}
}

// Run executes the processor loop until ctx is cancelled or a Shutdown
// control event is processed.
func (p *Pipeline) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		QueueDepth.WithLabelValues("data").Set(float64(len(p.dataQueue)))
		QueueDepth.WithLabelValues("control").Set(float64(len(p.controlQueue)))

		didWork := p.drainData(ctx)
		shutdown := p.popControl(ctx)
		if shutdown {
			return
		}
		if !didWork {
			time.Sleep(5 * time.Millisecond)
		}
	}
}

// drainData processes every currently queued data event without
// blocking, returning whether at least one was processed.
func (p *Pipeline) drainData(ctx context.Context) bool {
	didWork := false
	for {
		select {
		case e := <-p.dataQueue:
			p.processDataEvent(ctx, e)
			didWork = true
		default:
			return didWork
		}
	}
}

// popControl waits up to controlPopTimeout for a single control event.
// Returns true if a Shutdown event was processed or ctx is done.
func (p *Pipeline) popControl(ctx context.Context) bool {
	timer := time.NewTimer(controlPopTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return true
	case <-timer.C:
		return false
	case e := <-p.controlQueue:
		return p.processControlEvent(ctx, e)
	}
}

func (p *Pipeline) processDataEvent(ctx context.Context, e venue.Event) {
	switch e.Kind {
	case venue.EventOrderbook:
		p.handleOrderbook(ctx, e.Orderbook)
	case venue.EventTrade:
		p.handleTrade(ctx, e.Trade)
	case venue.EventConnectionLost:
		p.logger.Warn("venue-connection-lost", zap.Error(e.Err))
	default:
	}
}

func (p *Pipeline) handleOrderbook(ctx context.Context, snap *types.OrderbookSnapshot) {
	if !p.isSubscribed(snap.AssetID) {
		EventsDroppedTotal.WithLabelValues("unsubscribed_asset").Inc()
		p.logger.Debug("dropping-snapshot-unsubscribed-asset", zap.String("asset_id", snap.AssetID))
		return
	}
	if err := p.writer.WriteSnapshot(ctx, snap); err != nil {
		p.logger.Warn("write-snapshot-failed", zap.String("asset_id", snap.AssetID), zap.Error(err))
		return
	}
	p.forwardFiller.RecordReal(snap)
	if p.books != nil {
		p.books.recordSnapshot(snap)
	}
	EventsProcessedTotal.WithLabelValues("data", "orderbook").Inc()
}

func (p *Pipeline) handleTrade(ctx context.Context, trade *types.Trade) {
	if !p.isSubscribed(trade.AssetID) {
		EventsDroppedTotal.WithLabelValues("unsubscribed_asset").Inc()
		p.logger.Debug("dropping-trade-unsubscribed-asset", zap.String("asset_id", trade.AssetID))
		return
	}
	if err := p.writer.WriteTrade(ctx, trade); err != nil {
		p.logger.Warn("write-trade-failed", zap.String("asset_id", trade.AssetID), zap.Error(err))
		return
	}
	EventsProcessedTotal.WithLabelValues("data", "trade").Inc()
}

// processControlEvent handles one control-plane event. Returns true if
// the pipeline should stop (a Shutdown event was processed).
func (p *Pipeline) processControlEvent(ctx context.Context, e venue.Event) bool {
	switch e.Kind {
	case venue.EventMarketDiscovered:
		p.handleMarketDiscovered(ctx, e.Market)
	case venue.EventMarketClosed:
		p.handleMarketClosed(ctx, e.AssetID)
	case venue.EventConnectionLost:
		p.logger.Warn("venue-connection-lost", zap.Error(e.Err))
	case venue.EventShutdown:
		p.logger.Info("pipeline-shutdown-event-processed")
		return true
	default:
	}
	EventsProcessedTotal.WithLabelValues("control", kindLabel(e.Kind)).Inc()
	return false
}

// handleMarketDiscovered persists the market and its tracking-state
// transition, registers it with the forward-filler, and only then
// subscribes on the adapter and marks it locally subscribed — the order
// matters: a snapshot for an asset must never arrive before its Market
// row exists, or the persistence layer's foreign key will reject it.
func (p *Pipeline) handleMarketDiscovered(ctx context.Context, market *types.Market) {
	if err := p.writer.UpsertMarket(ctx, market); err != nil {
		p.logger.Warn("upsert-market-failed", zap.String("token_id", market.TokenID), zap.Error(err))
		return
	}
	if err := p.writer.AppendStateHistory(ctx, market.TokenID, types.MarketStateTracking, time.Now().UnixMilli()); err != nil {
		p.logger.Warn("append-state-history-failed", zap.String("token_id", market.TokenID), zap.Error(err))
	}

	p.forwardFiller.Register(market.TokenID)
	if p.books != nil {
		p.books.recordMarket(*market)
	}

	if err := p.adapter.Subscribe(ctx, []string{market.TokenID}); err != nil {
		p.logger.Warn("adapter-subscribe-failed", zap.String("token_id", market.TokenID), zap.Error(err))
		return
	}
	p.markSubscribed(market.TokenID)
	MarketsDiscoveredTotal.Inc()
}

func (p *Pipeline) handleMarketClosed(ctx context.Context, assetID string) {
	if err := p.writer.AppendStateHistory(ctx, assetID, types.MarketStateClosed, time.Now().UnixMilli()); err != nil {
		p.logger.Warn("append-state-history-failed", zap.String("token_id", assetID), zap.Error(err))
	}
	p.forwardFiller.Unregister(assetID)
	if p.books != nil {
		p.books.removeMarket(assetID)
	}
	if err := p.adapter.Unsubscribe(ctx, []string{assetID}); err != nil {
		p.logger.Warn("adapter-unsubscribe-failed", zap.String("token_id", assetID), zap.Error(err))
	}
	p.markUnsubscribed(assetID)
	MarketsClosedTotal.Inc()
}

func (p *Pipeline) markSubscribed(assetID string) {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	p.subscribed[assetID] = struct{}{}
}

func (p *Pipeline) markUnsubscribed(assetID string) {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	delete(p.subscribed, assetID)
}

func (p *Pipeline) isSubscribed(assetID string) bool {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	_, ok := p.subscribed[assetID]
	return ok
}

func kindLabel(k venue.EventKind) string {
	switch k {
	case venue.EventMarketDiscovered:
		return "market_discovered"
	case venue.EventMarketClosed:
		return "market_closed"
	case venue.EventShutdown:
		return "shutdown"
	case venue.EventConnectionLost:
		return "connection_lost"
	default:
		return "unknown"
	}
}
