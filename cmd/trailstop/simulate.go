package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/raykavin/trailstop"
	"github.com/raykavin/trailstop/internal/config"
	"github.com/raykavin/trailstop/internal/simulation"
	"github.com/raykavin/trailstop/pkg/core"
	"github.com/raykavin/trailstop/pkg/notification"
	"github.com/spf13/cobra"
)

func runInit(_ *cobra.Command, args []string) error {
	path := config.DefaultConfigPath
	if len(args) > 0 {
		path = args[0]
	}

	if err := config.SaveDefault(path); err != nil {
		return err
	}
	trailstop.DefaultLog.Infof("configuration written to %s", path)
	return nil
}

// loadConfig reads the configuration and applies the simulate flags
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Simulation.Seed = seed
	}
	if flags.Changed("trades") {
		cfg.Simulation.Trades = trades
	}
	if flags.Changed("orders") {
		cfg.Simulation.Orders = orderCount
	}
	if flags.Changed("file") {
		cfg.Simulation.TradesFile = tradesFile
	}
	if flags.Changed("pace") {
		cfg.Simulation.Pace = pace
	}
	return cfg, nil
}

func serviceOptions(cfg *config.Config, store core.OrderStorage) []trailstop.Option {
	options := []trailstop.Option{trailstop.WithStorage(store)}

	if cfg.Telegram.Enabled {
		options = append(options, trailstop.WithTelegram(notification.TelegramSettings{
			Token: cfg.Telegram.Token,
			Users: cfg.Telegram.Users,
		}))
	}

	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		options = append(options, trailstop.WithMetrics(registry))
		go serveMetrics(cfg.Metrics.Address, registry)
	}

	return options
}

func serveMetrics(address string, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{Addr: address, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	trailstop.DefaultLog.Infof("serving metrics on %s/metrics", address)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		trailstop.DefaultLog.WithError(err).Error("metrics server stopped")
	}
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	store, err := simulation.OpenStorage(cfg.Storage)
	if err != nil {
		return err
	}

	paper, markets := simulation.NewVenue(cfg, trailstop.DefaultLog)
	service, err := trailstop.NewService(ctx, core.Address(cfg.Engine.Address), paper, markets,
		serviceOptions(cfg, store)...)
	if err != nil {
		return err
	}
	service.Start()

	var progress io.Writer = os.Stderr
	if quiet {
		progress = nil
	}

	simulator, err := simulation.New(service, paper, markets, cfg.Simulation, progress, trailstop.DefaultLog)
	if err != nil {
		return errors.Join(err, service.Stop())
	}

	tradeList, err := simulation.Trades(rand.New(rand.NewSource(cfg.Simulation.Seed)), cfg.Simulation, markets)
	if err != nil {
		return errors.Join(err, service.Stop())
	}

	result, err := simulator.Run(ctx, tradeList)
	if err != nil && !errors.Is(err, context.Canceled) {
		return errors.Join(err, service.Stop())
	}

	if err := service.Stop(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nTRADES: %d (%d failed) | ORDERS: %d (%d rejected, %d withdrawn, %d unfilled)\n",
		result.Trades, result.Failed, len(result.Placements), result.Rejected, result.Withdrawn, result.Unfilled)
	if err := service.Summary(out); err != nil {
		return err
	}
	printClaims(out, result)
	return nil
}

// printClaims renders the output claimed by every depositor
func printClaims(out io.Writer, result simulation.Result) {
	holders := make([]string, 0, len(result.Claims))
	for holder := range result.Claims {
		holders = append(holders, string(holder))
	}
	sort.Strings(holders)

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Depositor", "Asset", "Claimed"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	for _, holder := range holders {
		claims := result.Claims[core.Address(holder)]
		assets := make([]string, 0, len(claims))
		for asset := range claims {
			assets = append(assets, string(asset))
		}
		sort.Strings(assets)

		for _, asset := range assets {
			table.Append([]string{holder, asset, claims[core.Asset(asset)].String()})
		}
	}
	table.Render()
}
