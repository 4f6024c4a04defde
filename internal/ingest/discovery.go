package ingest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/RishabSBanthiya/prediction-market-data-services/internal/venue"
	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/cache"
	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/types"
)

const marketCacheTTL = 24 * time.Hour

// Discovery periodically asks a venue adapter for its current market set
// and diffs it against what is already subscribed, submitting
// MarketDiscovered/MarketClosed control events for the pipeline to act
// on. Its known-token set short-circuits re-submitting a control event
// for a market already seen this run; it is not the source of truth for
// the subscribed set (the pipeline owns that). Discovered markets are
// also written to the market cache, which Discovery itself never reads.
type Discovery struct {
	adapter  venue.Adapter
	filter   types.DiscoveryFilter
	interval time.Duration
	pipeline *Pipeline
	cache    *cache.MarketCache
	logger   *zap.Logger

	known map[string]types.Venue

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewDiscovery constructs a Discovery loop.
func NewDiscovery(adapter venue.Adapter, filter types.DiscoveryFilter, interval time.Duration, pipeline *Pipeline, marketCache *cache.MarketCache, logger *zap.Logger) *Discovery {
	return &Discovery{
		adapter:  adapter,
		filter:   filter,
		interval: interval,
		pipeline: pipeline,
		cache:    marketCache,
		logger:   logger,
		known:    make(map[string]types.Venue),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the periodic poll loop in a new goroutine.
func (d *Discovery) Start(ctx context.Context) {
	go d.run(ctx)
}

func (d *Discovery) run(ctx context.Context) {
	defer close(d.doneCh)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	if err := d.poll(ctx); err != nil {
		d.logger.Warn("initial-discovery-poll-failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stopCh:
			return
		case <-ticker.C:
			if err := d.poll(ctx); err != nil {
				d.logger.Warn("discovery-poll-failed", zap.Error(err))
			}
		}
	}
}

func (d *Discovery) poll(ctx context.Context) error {
	markets, err := d.adapter.DiscoverMarkets(ctx, d.filter)
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(markets))
	for i := range markets {
		m := markets[i]
		seen[m.TokenID] = struct{}{}

		if _, ok := d.known[m.TokenID]; ok {
			continue
		}
		d.known[m.TokenID] = m.Venue
		d.cache.SetMarket(m.Venue, m.TokenID, m, marketCacheTTL)
		d.pipeline.SubmitControl(venue.Event{Kind: venue.EventMarketDiscovered, Market: &m})
	}

	for tokenID, v := range d.known {
		if _, ok := seen[tokenID]; ok {
			continue
		}
		delete(d.known, tokenID)
		d.cache.DeleteMarket(v, tokenID)
		d.pipeline.SubmitControl(venue.Event{Kind: venue.EventMarketClosed, AssetID: tokenID})
	}

	return nil
}

// Close stops the poll loop and waits for it to exit.
func (d *Discovery) Close() {
	close(d.stopCh)
	<-d.doneCh
}
