package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RishabSBanthiya/prediction-market-data-services/internal/app"
	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run the live market data capture pipeline",
	Long: `Starts the live ingestion process, which will:
1. Discover markets on the selected venue
2. Subscribe to their orderbooks over WebSocket
3. Normalize and persist snapshots, trades, and market state changes

Use --venue to choose which venue adapter to run.`,
	RunE: runIngest,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringP("venue", "v", "a", "Venue adapter to run: a (separate yes/no tokens) or b (single-ticker)")
}

func runIngest(cmd *cobra.Command, args []string) error {
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

	venue, _ := cmd.Flags().GetString("venue")

	application, err := app.New(cfg, logger, &app.Options{Venue: venue})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	if err := application.Run(); err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
