package replay

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	json "github.com/goccy/go-json"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/types"
)

// QueryStore is the read-only persistence surface a Loader pulls from.
// Kept separate from storage.Sink (the write path) since replay never
// needs batching, schema-tolerance, or FK-drop semantics — only
// straight reads.
type QueryStore interface {
	QuerySnapshots(ctx context.Context, venue types.Venue, assetIDs []string, startMS, endMS int64, includeForwardFilled bool) ([]types.OrderbookSnapshot, error)
	QueryTrades(ctx context.Context, venue types.Venue, assetIDs []string, startMS, endMS int64) ([]types.Trade, error)
	QueryMarkets(ctx context.Context, venue types.Venue, assetIDs []string) ([]types.Market, error)
	// ResolveAssetIDs returns every token ID tracked for a venue. Used
	// when a Query names a listener rather than an explicit asset list;
	// this repo runs one listener per venue per process, so "listener's
	// assets" and "venue's assets" coincide (see DESIGN.md).
	ResolveAssetIDs(ctx context.Context, venue types.Venue) ([]string, error)
}

// PostgresQueryStore implements QueryStore over the same tables
// storage.PostgresSink writes to.
type PostgresQueryStore struct {
	db *sql.DB
}

// NewPostgresQueryStore wraps an open connection pool.
func NewPostgresQueryStore(db *sql.DB) *PostgresQueryStore {
	return &PostgresQueryStore{db: db}
}

func (s *PostgresQueryStore) QuerySnapshots(ctx context.Context, venue types.Venue, assetIDs []string, startMS, endMS int64, includeForwardFilled bool) ([]types.OrderbookSnapshot, error) {
	query := `
		SELECT asset_id, market_id, timestamp_ms, bids, asks, is_forward_filled, source_timestamp_ms, venue, hash
		FROM orderbook_snapshots
		WHERE venue = $1 AND asset_id = ANY($2) AND timestamp_ms BETWEEN $3 AND $4
	`
	if !includeForwardFilled {
		query += " AND is_forward_filled = false"
	}
	query += " ORDER BY timestamp_ms ASC, asset_id ASC"

	rows, err := s.db.QueryContext(ctx, query, string(venue), pq.Array(assetIDs), startMS, endMS)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []types.OrderbookSnapshot
	for rows.Next() {
		var (
			snap              types.OrderbookSnapshot
			bidsJSON, asksJSON string
			venueStr          string
		)
		if err := rows.Scan(&snap.AssetID, &snap.MarketID, &snap.Timestamp, &bidsJSON, &asksJSON,
			&snap.IsForwardFilled, &snap.SourceTimestamp, &venueStr, &snap.Hash); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		snap.Venue = types.Venue(venueStr)
		if err := json.Unmarshal([]byte(bidsJSON), &snap.Bids); err != nil {
			return nil, fmt.Errorf("unmarshal bids: %w", err)
		}
		if err := json.Unmarshal([]byte(asksJSON), &snap.Asks); err != nil {
			return nil, fmt.Errorf("unmarshal asks: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

func (s *PostgresQueryStore) QueryTrades(ctx context.Context, venue types.Venue, assetIDs []string, startMS, endMS int64) ([]types.Trade, error) {
	query := `
		SELECT asset_id, market_id, timestamp_ms, price, size, side, venue
		FROM trades
		WHERE venue = $1 AND asset_id = ANY($2) AND timestamp_ms BETWEEN $3 AND $4
		ORDER BY timestamp_ms ASC, asset_id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, string(venue), pq.Array(assetIDs), startMS, endMS)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var out []types.Trade
	for rows.Next() {
		var (
			trade            types.Trade
			priceStr, sizeStr string
			sideStr, venueStr string
		)
		if err := rows.Scan(&trade.AssetID, &trade.MarketID, &trade.Timestamp, &priceStr, &sizeStr, &sideStr, &venueStr); err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			return nil, fmt.Errorf("parse trade price: %w", err)
		}
		size, err := decimal.NewFromString(sizeStr)
		if err != nil {
			return nil, fmt.Errorf("parse trade size: %w", err)
		}
		trade.Price = price
		trade.Size = size
		trade.Side = types.Side(sideStr)
		trade.Venue = types.Venue(venueStr)
		out = append(out, trade)
	}
	return out, rows.Err()
}

func (s *PostgresQueryStore) QueryMarkets(ctx context.Context, venue types.Venue, assetIDs []string) ([]types.Market, error) {
	query := `
		SELECT condition_id, token_id, outcome, outcome_index, question, venue, active, closed, volume, liquidity, state, discovered_at, last_updated_at
		FROM markets
		WHERE venue = $1 AND token_id = ANY($2)
	`
	rows, err := s.db.QueryContext(ctx, query, string(venue), pq.Array(assetIDs))
	if err != nil {
		return nil, fmt.Errorf("query markets: %w", err)
	}
	defer rows.Close()

	var out []types.Market
	for rows.Next() {
		var m types.Market
		var venueStr, stateStr string
		if err := rows.Scan(&m.ConditionID, &m.TokenID, &m.Outcome, &m.OutcomeIndex, &m.Question,
			&venueStr, &m.Active, &m.Closed, &m.Volume, &m.Liquidity, &stateStr, &m.DiscoveredAt, &m.LastUpdatedAt); err != nil {
			return nil, fmt.Errorf("scan market row: %w", err)
		}
		m.Venue = types.Venue(venueStr)
		m.State = types.MarketState(stateStr)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PostgresQueryStore) ResolveAssetIDs(ctx context.Context, venue types.Venue) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT token_id FROM markets WHERE venue = $1`, string(venue))
	if err != nil {
		return nil, fmt.Errorf("resolve asset ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan asset id: %w", err)
		}
		out = append(out, id)
	}
	sort.Strings(out)
	return out, rows.Err()
}

