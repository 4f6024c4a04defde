// Package venueb adapts the single-ticker venue (one book per ticker,
// yes/no sides in integer cents, snapshot + seq-checked delta wire
// protocol) to the venue-neutral internal/venue.Adapter contract.
// Reconstruction follows spec.md §4.1 exactly: snapshots overwrite state
// atomically, deltas at or behind the tracked seq are discarded, and
// bids/asks are derived by converting the no-side price to its
// complement.
package venueb

import (
	"context"
	"fmt"
	"io"
	"net/http"
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
	WSPath      string // signed path for the websocket upgrade, e.g. "/trade-api/ws/v2"
	Signer      *Signer
	HTTPClient  *http.Client
	WS          websocket.Config
	Logger      *zap.Logger
}

// Adapter implements venue.Adapter for the single-ticker venue.
type Adapter struct {
	cfg    Config
	logger *zap.Logger
	ws     *websocket.Manager
	http   *http.Client

	mu     sync.Mutex
	books  map[string]*bookState // ticker -> state

	events chan venue.Event
	done   chan struct{}
	once   sync.Once
}

// New constructs an Adapter.
func New(cfg Config) *Adapter {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	a := &Adapter{
		cfg:    cfg,
		logger: cfg.Logger,
		http:   cfg.HTTPClient,
		books:  make(map[string]*bookState),
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

func buildSubscribeMessage(assetIDs []string, kind string) interface{} {
	cmd := "subscribe"
	if kind == "unsubscribe" {
		cmd = "unsubscribe"
	}
	return map[string]interface{}{
		"id":  1,
		"cmd": cmd,
		"params": map[string]interface{}{
			"channels":      []string{"orderbook_delta", "trade"},
			"market_tickers": assetIDs,
		},
	}
}

// Connect computes the signed websocket-upgrade headers (same header set
// as REST, per spec.md §6), returning an error if signing fails, and
// starts the transport. The signed headers are not sent with the upgrade:
// pkg/websocket.Manager dials without custom headers, so a venue that
// requires them rejects the upgrade and Connect returns that error.
func (a *Adapter) Connect(ctx context.Context) error {
	if a.cfg.Signer != nil {
		if _, err := a.cfg.Signer.WebsocketHeaders(a.cfg.WSPath); err != nil {
			return fmt.Errorf("sign websocket upgrade: %w", err)
		}
		// The headers are discarded here; pkg/websocket.Config has no
		// field for custom dial headers.
	}
	if err := a.ws.Start(); err != nil {
		return fmt.Errorf("start websocket: %w", err)
	}
	go a.decodeLoop()
	return nil
}

func (a *Adapter) Subscribe(ctx context.Context, assetIDs []string) error {
	return a.ws.Subscribe(ctx, assetIDs)
}

func (a *Adapter) Unsubscribe(ctx context.Context, assetIDs []string) error {
	return a.ws.Unsubscribe(ctx, assetIDs)
}

func (a *Adapter) Events() <-chan venue.Event {
	return a.events
}

func (a *Adapter) Close() error {
	a.once.Do(func() { close(a.done) })
	return a.ws.Close()
}

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
		a.logger.Warn("venueb-decode-error", zap.Error(err))
		return
	}

	switch env.Type {
	case "orderbook_snapshot":
		var msg wireSnapshot
		if err := json.Unmarshal(raw, &msg); err != nil {
			a.logger.Warn("venueb-decode-error", zap.String("type", env.Type), zap.Error(err))
			return
		}
		a.applySnapshot(msg)
	case "orderbook_delta":
		var msg wireDelta
		if err := json.Unmarshal(raw, &msg); err != nil {
			a.logger.Warn("venueb-decode-error", zap.String("type", env.Type), zap.Error(err))
			return
		}
		a.applyDelta(msg)
	case "trade":
		var msg wireTrade
		if err := json.Unmarshal(raw, &msg); err != nil {
			a.logger.Warn("venueb-decode-error", zap.String("type", env.Type), zap.Error(err))
			return
		}
		a.emit(venue.Event{Kind: venue.EventTrade, Trade: normalizeTrade(msg)})
	case "error":
		var msg wireError
		_ = json.Unmarshal(raw, &msg)
		a.logger.Warn("venueb-venue-error", zap.String("message", msg.Message))
	case "subscribed":
		// Acknowledgement only; nothing to normalize.
	default:
	}
}

func (a *Adapter) applySnapshot(msg wireSnapshot) {
	a.mu.Lock()
	state, ok := a.books[msg.Ticker]
	if !ok {
		state = newBookState()
		a.books[msg.Ticker] = state
	}

	yes := make(map[cents]decimal.Decimal, len(msg.Yes))
	for _, lvl := range msg.Yes {
		yes[cents(lvl.Price)] = decimal.NewFromInt(lvl.Quantity)
	}
	no := make(map[cents]decimal.Decimal, len(msg.No))
	for _, lvl := range msg.No {
		no[cents(lvl.Price)] = decimal.NewFromInt(lvl.Quantity)
	}
	state.applySnapshot(msg.Seq, yes, no)
	snap := state.normalize(msg.Ticker, time.Now().UnixMilli())
	a.mu.Unlock()

	a.emit(venue.Event{Kind: venue.EventOrderbook, Orderbook: snap})
}

func (a *Adapter) applyDelta(msg wireDelta) {
	a.mu.Lock()
	state, ok := a.books[msg.Ticker]
	if !ok {
		// No snapshot yet to apply a delta against; discard and wait for
		// a snapshot, per spec.md §4.1's stale-sequence handling.
		a.mu.Unlock()
		a.logger.Debug("venueb-delta-before-snapshot", zap.String("ticker", msg.Ticker))
		return
	}

	err := state.applyDelta(msg.Seq, msg.Side, cents(msg.Price), decimal.NewFromInt(msg.Delta))
	if err != nil {
		a.mu.Unlock()
		a.logger.Debug("venueb-stale-delta", zap.String("ticker", msg.Ticker), zap.Int64("seq", msg.Seq))
		return
	}
	snap := state.normalize(msg.Ticker, time.Now().UnixMilli())
	a.mu.Unlock()

	if snap.IsCrossed() {
		a.logger.Warn("venueb-crossed-book-discarded", zap.String("ticker", msg.Ticker))
		return
	}
	a.emit(venue.Event{Kind: venue.EventOrderbook, Orderbook: snap})
}

func normalizeTrade(msg wireTrade) *types.Trade {
	side := types.Buy
	if msg.TakerSide == "no" {
		side = types.Sell
	}
	return &types.Trade{
		AssetID:   msg.Ticker,
		MarketID:  msg.Ticker,
		Timestamp: msg.TS * 1000,
		Price:     decimal.NewFromInt(int64(msg.YesPrice)).Div(decimal.NewFromInt(100)),
		Size:      decimal.NewFromInt(msg.Count),
		Side:      side,
		Venue:     types.VenueB,
	}
}

func (a *Adapter) emit(e venue.Event) {
	select {
	case a.events <- e:
	default:
		a.logger.Warn("venueb-events-channel-full-dropping", zap.Int("kind", int(e.Kind)))
	}
}

// DiscoverMarkets paginates the Variant B REST discovery endpoint by
// series/event ticker and returns one self-paired Market per ticker
// (TokenID equals the ticker; the yes/no sides live on one book).
func (a *Adapter) DiscoverMarkets(ctx context.Context, filter types.DiscoveryFilter) ([]types.Market, error) {
	var out []types.Market
	cursor := ""
	now := time.Now()

	for {
		url := a.cfg.RESTBaseURL + "/markets?limit=200"
		if cursor != "" {
			url += "&cursor=" + cursor
		}
		if len(filter.SeriesTickers) > 0 {
			url += "&series_ticker=" + filter.SeriesTickers[0]
		}
		if len(filter.EventTickers) > 0 {
			url += "&event_ticker=" + filter.EventTickers[0]
		}
		if filter.Status != "" {
			url += "&status=" + filter.Status
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("build discovery request: %w", err)
		}
		if a.cfg.Signer != nil {
			headers, err := a.cfg.Signer.Headers(http.MethodGet, "/markets", "")
			if err != nil {
				return nil, fmt.Errorf("sign discovery request: %w", err)
			}
			for k, v := range headers {
				req.Header.Set(k, v)
			}
		}

		resp, err := a.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("discovery request: %w", err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read discovery response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("discovery request: status %d: %s", resp.StatusCode, string(body))
		}

		var page discoveryResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decode discovery response: %w", err)
		}

		for _, m := range page.Markets {
			if filter.TitleContains != "" && !containsSubstr(m.Title, filter.TitleContains) {
				continue
			}
			if filter.MinVolume > 0 && float64(m.Volume) < filter.MinVolume {
				continue
			}
			if filter.MinLiquidity > 0 && float64(m.Liquidity) < filter.MinLiquidity {
				continue
			}
			out = append(out, types.Market{
				ConditionID:   m.EventTicker,
				TokenID:       m.Ticker,
				Outcome:       "Yes/No",
				OutcomeIndex:  0,
				Question:      m.Title,
				Venue:         types.VenueB,
				Active:        m.Status == "active",
				Closed:        m.Status == "finalized" || m.Status == "settled",
				Volume:        float64(m.Volume),
				Liquidity:     float64(m.Liquidity),
				State:         types.MarketStateNone,
				DiscoveredAt:  now,
				LastUpdatedAt: now,
			})
		}

		if page.Cursor == "" {
			break
		}
		cursor = page.Cursor
	}

	return out, nil
}

func containsSubstr(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	return len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
