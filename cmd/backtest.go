package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/RishabSBanthiya/prediction-market-data-services/internal/backtest"
	"github.com/RishabSBanthiya/prediction-market-data-services/internal/portfolio"
	"github.com/RishabSBanthiya/prediction-market-data-services/internal/replay"
	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/cache"
	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/config"
	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay captured history through the matching engine",
	Long: `Loads previously captured orderbook snapshots and trades for a
venue and asset set, replays them in timestamp order through the matching
engine and portfolio accounting, and reports the resulting trades, equity
curve, and performance metrics as JSON.`,
	RunE: runBacktest,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringP("venue", "v", "a", "Venue to replay: a or b")
	backtestCmd.Flags().StringSlice("asset-ids", nil, "Asset (token) IDs to include; defaults to every asset known for the venue")
	backtestCmd.Flags().String("start", "", "Start of the replay window, RFC3339 (default: 24h before --end)")
	backtestCmd.Flags().String("end", "", "End of the replay window, RFC3339 (default: now)")
	backtestCmd.Flags().Bool("include-forward-filled", false, "Include forward-filled snapshots in the replay")
	backtestCmd.Flags().String("initial-cash", "10000", "Starting cash balance")
	backtestCmd.Flags().Int64("maker-fee-bps", 0, "Maker fee, in basis points")
	backtestCmd.Flags().Int64("taker-fee-bps", 0, "Taker fee, in basis points")
	backtestCmd.Flags().String("min-order-size", "1", "Minimum order size the matching engine will accept")
	backtestCmd.Flags().String("max-order-size", "100000", "Maximum order size the matching engine will accept")
	backtestCmd.Flags().Float64("fill-probability", 1.0, "Probability a queued resting order fills on a trade once traded volume has reached the size queued ahead of it")
	backtestCmd.Flags().Int64("fill-seed", 1, "Deterministic seed for the fill probability simulator")
	backtestCmd.Flags().Int64("equity-sample-interval-ms", 60000, "Minimum time, in milliseconds, between fill-triggered equity samples")
	backtestCmd.Flags().Int64("equity-sample-interval-events", 100, "Force an equity curve checkpoint every N dispatched events, regardless of fill activity")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	query, err := backtestQueryFromFlags(cmd)
	if err != nil {
		return err
	}

	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPass, cfg.PostgresDB, cfg.PostgresSSL,
	)
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ristrettoCache, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10000,
		MaxCost:     1000,
		BufferItems: 64,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("create cache: %w", err)
	}
	marketCache := cache.NewMarketCache(ristrettoCache)
	defer marketCache.Close()

	store := replay.NewPostgresQueryStore(db)
	loader := replay.NewStoreLoader(store, marketCache, logger)

	ctx := context.Background()
	dataset, err := loader.Load(ctx, query)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}

	markets := make([]types.Market, 0, len(dataset.Markets))
	for _, m := range dataset.Markets {
		markets = append(markets, m)
	}
	pairs := portfolio.BuildMarketPairsFromMarkets(markets, logger)

	runCfg, err := backtestConfigFromFlags(cmd)
	if err != nil {
		return err
	}

	runner := backtest.NewRunner(runCfg, pairs, backtest.Strategy{}, logger)
	result, err := runner.Run(ctx, dataset)
	if err != nil {
		return fmt.Errorf("run backtest: %w", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(out))

	return nil
}

func backtestQueryFromFlags(cmd *cobra.Command) (replay.Query, error) {
	venueFlag, _ := cmd.Flags().GetString("venue")
	assetIDs, _ := cmd.Flags().GetStringSlice("asset-ids")
	startStr, _ := cmd.Flags().GetString("start")
	endStr, _ := cmd.Flags().GetString("end")
	includeForwardFilled, _ := cmd.Flags().GetBool("include-forward-filled")

	venue := types.VenueA
	if strings.EqualFold(venueFlag, "b") {
		venue = types.VenueB
	}

	end := time.Now()
	if endStr != "" {
		parsed, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			return replay.Query{}, fmt.Errorf("parse --end: %w", err)
		}
		end = parsed
	}

	start := end.Add(-24 * time.Hour)
	if startStr != "" {
		parsed, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			return replay.Query{}, fmt.Errorf("parse --start: %w", err)
		}
		start = parsed
	}

	return replay.Query{
		StartTimeMS:          start.UnixMilli(),
		EndTimeMS:            end.UnixMilli(),
		Venue:                venue,
		AssetIDs:             assetIDs,
		IncludeForwardFilled: includeForwardFilled,
	}, nil
}

func backtestConfigFromFlags(cmd *cobra.Command) (backtest.Config, error) {
	initialCashStr, _ := cmd.Flags().GetString("initial-cash")
	minOrderSizeStr, _ := cmd.Flags().GetString("min-order-size")
	maxOrderSizeStr, _ := cmd.Flags().GetString("max-order-size")
	makerFeeBPS, _ := cmd.Flags().GetInt64("maker-fee-bps")
	takerFeeBPS, _ := cmd.Flags().GetInt64("taker-fee-bps")
	fillProbability, _ := cmd.Flags().GetFloat64("fill-probability")
	fillSeed, _ := cmd.Flags().GetInt64("fill-seed")
	equitySampleIntervalMS, _ := cmd.Flags().GetInt64("equity-sample-interval-ms")
	equitySampleIntervalEvt, _ := cmd.Flags().GetInt64("equity-sample-interval-events")

	initialCash, err := decimal.NewFromString(initialCashStr)
	if err != nil {
		return backtest.Config{}, fmt.Errorf("parse --initial-cash: %w", err)
	}
	minOrderSize, err := decimal.NewFromString(minOrderSizeStr)
	if err != nil {
		return backtest.Config{}, fmt.Errorf("parse --min-order-size: %w", err)
	}
	maxOrderSize, err := decimal.NewFromString(maxOrderSizeStr)
	if err != nil {
		return backtest.Config{}, fmt.Errorf("parse --max-order-size: %w", err)
	}

	return backtest.Config{
		InitialCash:             initialCash,
		MakerFeeBPS:             makerFeeBPS,
		TakerFeeBPS:             takerFeeBPS,
		MinOrderSize:            minOrderSize,
		MaxOrderSize:            maxOrderSize,
		FillProbabilitySeed:     fillSeed,
		FillProbability:         fillProbability,
		EquitySampleIntervalMS:  equitySampleIntervalMS,
		EquitySampleIntervalEvt: equitySampleIntervalEvt,
	}, nil
}
