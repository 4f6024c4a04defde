package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/types"
)

// postgres error codes this sink translates into the storage package's
// sentinel errors so BatchedWriter can decide retry policy without
// depending on lib/pq directly.
const (
	pqUndefinedColumn     = "42703"
	pqForeignKeyViolation = "23503"
)

// PostgresSink implements Sink using PostgreSQL.
type PostgresSink struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL connection configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresSink opens a connection pool and verifies it with a ping.
func NewPostgresSink(cfg *PostgresConfig) (*PostgresSink, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-sink-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresSink{db: db, logger: cfg.Logger}, nil
}

// snapshotColumns/snapshotDowngradedColumns mirror spec.md §4.3's schema
// tolerance note: the writer "assumes the current schema (with venue tag,
// forward-fill columns, etc.)" and, on a missing-column error, drops those
// columns and retries. asset_id/market_id/timestamp_ms/bids/asks are the
// columns every schema generation has; the rest are the ones a narrower,
// pre-forward-fill schema may lack.
var (
	snapshotColumns           = []string{"asset_id", "market_id", "timestamp_ms", "bids", "asks", "is_forward_filled", "source_timestamp_ms", "venue", "hash"}
	snapshotDowngradedColumns = []string{"asset_id", "market_id", "timestamp_ms", "bids", "asks"}
	tradeColumns              = []string{"asset_id", "market_id", "timestamp_ms", "price", "size", "side", "venue"}
	tradeDowngradedColumns    = []string{"asset_id", "market_id", "timestamp_ms", "price", "size", "side"}
)

// InsertSnapshots bulk-inserts orderbook snapshots, encoding bid/ask levels
// as JSON columns. When downgraded is true, the forward-fill/venue/hash
// columns are omitted, for a schema that predates them.
func (p *PostgresSink) InsertSnapshots(ctx context.Context, snapshots []types.OrderbookSnapshot, downgraded bool) error {
	if len(snapshots) == 0 {
		return nil
	}

	columns := snapshotColumns
	if downgraded {
		columns = snapshotDowngradedColumns
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO orderbook_snapshots (%s) VALUES ", strings.Join(columns, ", "))

	args := make([]interface{}, 0, len(snapshots)*len(columns))
	for i, s := range snapshots {
		bidsJSON, err := json.Marshal(s.Bids)
		if err != nil {
			return fmt.Errorf("marshal bids: %w", err)
		}
		asksJSON, err := json.Marshal(s.Asks)
		if err != nil {
			return fmt.Errorf("marshal asks: %w", err)
		}

		row := []interface{}{s.AssetID, s.MarketID, s.Timestamp, string(bidsJSON), string(asksJSON),
			s.IsForwardFilled, s.SourceTimestamp, string(s.Venue), s.Hash}
		if downgraded {
			row = row[:len(snapshotDowngradedColumns)]
		}

		if i > 0 {
			sb.WriteString(", ")
		}
		writePlaceholders(&sb, len(args), len(row))
		args = append(args, row...)
	}

	_, err := p.db.ExecContext(ctx, sb.String(), args...)
	return translatePQError(err)
}

// InsertTrades bulk-inserts trades. When downgraded is true, the venue
// column is omitted, for a schema that predates it.
func (p *PostgresSink) InsertTrades(ctx context.Context, trades []types.Trade, downgraded bool) error {
	if len(trades) == 0 {
		return nil
	}

	columns := tradeColumns
	if downgraded {
		columns = tradeDowngradedColumns
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO trades (%s) VALUES ", strings.Join(columns, ", "))

	args := make([]interface{}, 0, len(trades)*len(columns))
	for i, t := range trades {
		row := []interface{}{t.AssetID, t.MarketID, t.Timestamp, t.Price.String(), t.Size.String(), string(t.Side), string(t.Venue)}
		if downgraded {
			row = row[:len(tradeDowngradedColumns)]
		}

		if i > 0 {
			sb.WriteString(", ")
		}
		writePlaceholders(&sb, len(args), len(row))
		args = append(args, row...)
	}

	_, err := p.db.ExecContext(ctx, sb.String(), args...)
	return translatePQError(err)
}

// writePlaceholders appends one "($n, $n+1, ...)" group to sb, numbering
// placeholders from argsSoFar+1 so multi-row batches stay positionally
// correct regardless of how many columns each row has.
func writePlaceholders(sb *strings.Builder, argsSoFar, n int) {
	sb.WriteString("(")
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(sb, "$%d", argsSoFar+i+1)
	}
	sb.WriteString(")")
}

// UpsertMarket inserts or updates market metadata, keyed on (venue,
// token_id).
func (p *PostgresSink) UpsertMarket(ctx context.Context, market types.Market) error {
	query := `
		INSERT INTO markets (condition_id, token_id, outcome, outcome_index, question, venue, active, closed, volume, liquidity, state, discovered_at, last_updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (venue, token_id) DO UPDATE SET
			active = EXCLUDED.active,
			closed = EXCLUDED.closed,
			volume = EXCLUDED.volume,
			liquidity = EXCLUDED.liquidity,
			state = EXCLUDED.state,
			last_updated_at = EXCLUDED.last_updated_at
	`
	_, err := p.db.ExecContext(ctx, query,
		market.ConditionID, market.TokenID, market.Outcome, market.OutcomeIndex, market.Question,
		string(market.Venue), market.Active, market.Closed, market.Volume, market.Liquidity,
		string(market.State), market.DiscoveredAt, market.LastUpdatedAt)
	return translatePQError(err)
}

// InsertStateHistory appends a market state transition row.
func (p *PostgresSink) InsertStateHistory(ctx context.Context, assetID string, state types.MarketState, timestampMS int64) error {
	query := `INSERT INTO market_state_history (asset_id, state, timestamp_ms) VALUES ($1, $2, $3)`
	_, err := p.db.ExecContext(ctx, query, assetID, string(state), timestampMS)
	return translatePQError(err)
}

// Close closes the connection pool.
func (p *PostgresSink) Close() error {
	p.logger.Info("closing-postgres-sink")
	return p.db.Close()
}

func translatePQError(err error) error {
	if err == nil {
		return nil
	}
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return fmt.Errorf("postgres: %w", err)
	}
	switch string(pqErr.Code) {
	case pqUndefinedColumn:
		return fmt.Errorf("%w: %s", types.ErrPersistenceSchemaMismatch, pqErr.Message)
	case pqForeignKeyViolation:
		return fmt.Errorf("%w: %s", types.ErrPersistenceFKViolation, pqErr.Message)
	default:
		return fmt.Errorf("postgres: %w", err)
	}
}
