package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "predmkt",
	Short: "Prediction market data capture and backtesting toolkit",
	Long: `predmkt captures orderbook snapshots and trades from prediction
market venues and replays recorded history through a deterministic
backtest engine.

"ingest" runs the live capture pipeline: it discovers markets, subscribes
to their orderbooks over WebSocket, and persists what it sees. "backtest"
replays previously captured history through the matching engine and
reports trades, equity, and performance metrics; the command itself
submits no orders.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	// Flags can be added here if needed
}
