package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Command line flags
var (
	configFile string

	// Simulate command flags
	seed       int64
	trades     int
	orderCount int
	tradesFile string
	pace       string
	quiet      bool

	// Orders command flags
	market string
	status string
	limit  int
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "trailstop",
		Short:        "Trailing-stop orders over tick based pools",
		Version:      "1.0.0",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file (e.g. ./trailstop.yaml)")

	rootCmd.AddCommand(buildInitCmd(), buildSimulateCmd(), buildOrdersCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runInit,
	}
}

func buildSimulateCmd() *cobra.Command {
	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay trades over paper pools while depositors trail orders",
		RunE:  runSimulate,
	}

	simulateCmd.Flags().Int64VarP(&seed, "seed", "s", 0, "Random seed (overrides the configuration)")
	simulateCmd.Flags().IntVarP(&trades, "trades", "t", 0, "Random trades per market")
	simulateCmd.Flags().IntVarP(&orderCount, "orders", "o", 0, "Orders placed during the run")
	simulateCmd.Flags().StringVarP(&tradesFile, "file", "f", "", "CSV trades of the first market (e.g. ./trades.csv)")
	simulateCmd.Flags().StringVarP(&pace, "pace", "p", "", "Pause between trades (e.g. 100ms, 1s)")
	simulateCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Hide the progress bar")

	return simulateCmd
}

func buildOrdersCmd() *cobra.Command {
	ordersCmd := &cobra.Command{
		Use:   "orders",
		Short: "List stored orders",
		RunE:  runOrders,
	}

	ordersCmd.Flags().StringVarP(&market, "market", "m", "", "Market (e.g. ETH/USDC)")
	ordersCmd.Flags().StringVarP(&status, "status", "s", "", "Status: ACTIVE, FILLED or WITHDRAWN")
	ordersCmd.Flags().IntVarP(&limit, "limit", "l", 0, "Most recently updated orders to show")

	return ordersCmd
}
