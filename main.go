// Command predmkt is the entry point for the data capture and backtesting
// toolkit; see package cmd for the actual command tree.
package main

import "github.com/RishabSBanthiya/prediction-market-data-services/cmd"

func main() {
	cmd.Execute()
}
