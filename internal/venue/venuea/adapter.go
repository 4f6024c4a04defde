// Package venuea adapts the separate-token venue (one CLOB token id per
// outcome, full orderbook snapshot on every update) to the venue-neutral
// internal/venue.Adapter contract. Grounded on the teacher's
// pkg/websocket.Manager transport and internal/orderbook message
// handling, generalized from best-bid/ask-only tracking to full-depth
// snapshots so the matching engine can walk price levels.
package venuea

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/RishabSBanthiya/prediction-market-data-services/internal/venue"
	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/types"
	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/websocket"
)

// Config configures an Adapter instance.
type Config struct {
	RESTBaseURL string
	WSURL       string
	HTTPClient  *http.Client
	WS          websocket.Config // Logger/BuildSubscribe are set by Adapter
	Logger      *zap.Logger
}

// Adapter implements venue.Adapter for the separate-token venue.
type Adapter struct {
	cfg    Config
	logger *zap.Logger
	ws     *websocket.Manager
	http   *http.Client

	events chan venue.Event
	done   chan struct{}
	once   sync.Once
}

// New constructs an Adapter. Connect must be called before Events
// produces anything.
func New(cfg Config) *Adapter {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	a := &Adapter{
		cfg:    cfg,
		logger: cfg.Logger,
		http:   cfg.HTTPClient,
		events: make(chan venue.Event, 10000),
		done:   make(chan struct{}),
	}

	wsCfg := cfg.WS
	wsCfg.URL = cfg.WSURL
	wsCfg.Logger = cfg.Logger
	wsCfg.BuildSubscribe = buildSubscribeMessage
	a.ws = websocket.New(wsCfg)
	return a
}

// buildSubscribeMessage matches the venue's subscribe wire shape: a
// single message naming the asset_ids to add or remove.
func buildSubscribeMessage(assetIDs []string, kind string) interface{} {
	msgType := "market"
	return map[string]interface{}{
		"type":       msgType,
		"assets_ids": assetIDs,
		"action":     kind,
	}
}

// Connect starts the websocket transport (dial, ping loop, reconnect
// loop) and the background decode loop; each call starts a new connection
// and decode loop. Backoff/reconnect is handled entirely inside
// websocket.Manager (1s -> 60s exponential with the default config).
func (a *Adapter) Connect(ctx context.Context) error {
	if err := a.ws.Start(); err != nil {
		return fmt.Errorf("start websocket: %w", err)
	}
	go a.decodeLoop()
	return nil
}

// Subscribe forwards to the websocket manager, which writes the subscribe
// message at once and keeps the IDs in its desired set; the whole set is
// re-sent on reconnect. A write that fails, or one made before Connect,
// returns an error and the IDs wait for the next reconnect.
func (a *Adapter) Subscribe(ctx context.Context, assetIDs []string) error {
	return a.ws.Subscribe(ctx, assetIDs)
}

// Unsubscribe forwards to the websocket manager.
func (a *Adapter) Unsubscribe(ctx context.Context, assetIDs []string) error {
	return a.ws.Unsubscribe(ctx, assetIDs)
}

// Events returns the channel of normalized events.
func (a *Adapter) Events() <-chan venue.Event {
	return a.events
}

// Close stops the transport and the decode loop.
func (a *Adapter) Close() error {
	a.once.Do(func() { close(a.done) })
	return a.ws.Close()
}

// decodeLoop reads raw frames from the websocket transport, decodes
// event_type, and emits normalized Orderbook/Trade events. Messages that
// fail to decode are dropped with a warning; the session is not torn
// down (spec.md §7's DecodeError policy).
func (a *Adapter) decodeLoop() {
	for {
		select {
		case <-a.done:
			return
		case raw, ok := <-a.ws.MessageChan():
			if !ok {
				a.emit(venue.Event{Kind: venue.EventConnectionLost, Err: types.ErrConnectionLost})
				return
			}
			a.handleRaw(raw)
		}
	}
}

func (a *Adapter) handleRaw(raw []byte) {
	var env wireEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		a.logger.Warn("venuea-decode-error", zap.Error(err))
		return
	}

	switch env.EventType {
	case "book", "price_change":
		var msg wireBookEvent
		if err := json.Unmarshal(raw, &msg); err != nil {
			a.logger.Warn("venuea-decode-error", zap.String("event_type", env.EventType), zap.Error(err))
			return
		}
		snap, err := normalizeSnapshot(msg)
		if err != nil {
			a.logger.Warn("venuea-normalize-error", zap.Error(err))
			return
		}
		a.emit(venue.Event{Kind: venue.EventOrderbook, Orderbook: snap})
	case "last_trade_price":
		var msg wireTradeEvent
		if err := json.Unmarshal(raw, &msg); err != nil {
			a.logger.Warn("venuea-decode-error", zap.String("event_type", env.EventType), zap.Error(err))
			return
		}
		trade, err := normalizeTrade(msg)
		if err != nil {
			a.logger.Warn("venuea-normalize-error", zap.Error(err))
			return
		}
		a.emit(venue.Event{Kind: venue.EventTrade, Trade: trade})
	default:
		// Unrecognized event types are ignored, not dropped-with-warning:
		// the venue adds message kinds this adapter has no use for.
	}
}

func (a *Adapter) emit(e venue.Event) {
	select {
	case a.events <- e:
	default:
		a.logger.Warn("venuea-events-channel-full-dropping", zap.Int("kind", int(e.Kind)))
	}
}

// normalizeSnapshot converts a wire book/price_change message into the
// venue-neutral OrderbookSnapshot. Variant A sends a full replacement on
// every message, so no incremental state is tracked here.
func normalizeSnapshot(msg wireBookEvent) (*types.OrderbookSnapshot, error) {
	bids, err := parseLevels(msg.Bids)
	if err != nil {
		return nil, fmt.Errorf("parse bids: %w", err)
	}
	asks, err := parseLevels(msg.Asks)
	if err != nil {
		return nil, fmt.Errorf("parse asks: %w", err)
	}

	ts, err := strconv.ParseInt(msg.Timestamp, 10, 64)
	if err != nil {
		ts = time.Now().UnixMilli()
	}

	snap := &types.OrderbookSnapshot{
		AssetID:   msg.AssetID,
		MarketID:  msg.Market,
		Timestamp: ts,
		Bids:      bids,
		Asks:      asks,
		Venue:     types.VenueA,
		Hash:      msg.Hash,
	}
	if snap.IsCrossed() {
		return nil, fmt.Errorf("%w: crossed book for asset %s", types.ErrStaleSequence, msg.AssetID)
	}
	return snap, nil
}

func normalizeTrade(msg wireTradeEvent) (*types.Trade, error) {
	price, err := decimal.NewFromString(msg.Price)
	if err != nil {
		return nil, fmt.Errorf("parse price: %w", err)
	}
	size, err := decimal.NewFromString(msg.Size)
	if err != nil {
		return nil, fmt.Errorf("parse size: %w", err)
	}
	ts, err := strconv.ParseInt(msg.Timestamp, 10, 64)
	if err != nil {
		ts = time.Now().UnixMilli()
	}
	side := types.Buy
	if msg.Side == "sell" || msg.Side == "SELL" {
		side = types.Sell
	}
	return &types.Trade{
		AssetID:   msg.AssetID,
		MarketID:  msg.Market,
		Timestamp: ts,
		Price:     price,
		Size:      size,
		Side:      side,
		Venue:     types.VenueA,
	}, nil
}

func parseLevels(levels []wireLevel) ([]types.PriceLevel, error) {
	out := make([]types.PriceLevel, 0, len(levels))
	for _, l := range levels {
		price, err := decimal.NewFromString(l.Price)
		if err != nil {
			return nil, fmt.Errorf("parse level price %q: %w", l.Price, err)
		}
		size, err := decimal.NewFromString(l.Size)
		if err != nil {
			return nil, fmt.Errorf("parse level size %q: %w", l.Size, err)
		}
		out = append(out, types.PriceLevel{Price: price, Size: size})
	}
	return out, nil
}

// DiscoverMarkets queries the Variant A REST discovery endpoint and
// expands each question's clob_token_ids/outcomes pair into one Market
// row per outcome token, per spec.md §6.
func (a *Adapter) DiscoverMarkets(ctx context.Context, filter types.DiscoveryFilter) ([]types.Market, error) {
	url := a.cfg.RESTBaseURL + "/markets"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build discovery request: %w", err)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discovery request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read discovery response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discovery request: status %d: %s", resp.StatusCode, string(body))
	}

	var raw []discoveryMarket
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode discovery response: %w", err)
	}

	now := time.Now()
	var out []types.Market
	for _, m := range raw {
		if !matchesFilter(m, filter) {
			continue
		}
		volume, _ := strconv.ParseFloat(m.Volume, 64)
		liquidity, _ := strconv.ParseFloat(m.Liquidity, 64)
		for i, tokenID := range m.ClobTokenIDs {
			outcome := ""
			if i < len(m.Outcomes) {
				outcome = m.Outcomes[i]
			}
			out = append(out, types.Market{
				ConditionID:   m.ConditionID,
				TokenID:       tokenID,
				Outcome:       outcome,
				OutcomeIndex:  i,
				Question:      m.Question,
				Venue:         types.VenueA,
				Active:        m.Active,
				Closed:        m.Closed,
				Volume:        volume,
				Liquidity:     liquidity,
				State:         types.MarketStateNone,
				DiscoveredAt:  now,
				LastUpdatedAt: now,
			})
		}
	}
	return out, nil
}

func matchesFilter(m discoveryMarket, filter types.DiscoveryFilter) bool {
	if len(filter.ConditionIDs) > 0 && !contains(filter.ConditionIDs, m.ConditionID) {
		return false
	}
	if len(filter.SeriesTickers) > 0 && !containsAny(filter.SeriesTickers, m.Series) {
		return false
	}
	if len(filter.TagIDs) > 0 && !containsAny(filter.TagIDs, m.Tags) {
		return false
	}
	volume, _ := strconv.ParseFloat(m.Volume, 64)
	liquidity, _ := strconv.ParseFloat(m.Liquidity, 64)
	if filter.MinVolume > 0 && volume < filter.MinVolume {
		return false
	}
	if filter.MinLiquidity > 0 && liquidity < filter.MinLiquidity {
		return false
	}
	return true
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func containsAny(a, b []string) bool {
	for _, x := range a {
		if contains(b, x) {
			return true
		}
	}
	return false
}
