package simulation

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/raykavin/trailstop"
	"github.com/raykavin/trailstop/internal/config"
	"github.com/raykavin/trailstop/pkg/core"
	"github.com/raykavin/trailstop/pkg/logger/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Storage = config.StorageConfig{Driver: "memory"}
	cfg.Markets = []config.MarketConfig{
		{ID: "ETH/USDC", Token0: "ETH", Token1: "USDC", TickSpacing: 50, Depth: 10},
		{ID: "BTC/USDC", Token0: "BTC", Token1: "USDC", TickSpacing: 50, Tick: 1_000, Depth: 20},
	}
	cfg.Simulation = config.SimulationConfig{
		Seed:           7,
		Trades:         150,
		MaxTradeAmount: 3_000,
		Orders:         40,
		MaxOrderAmount: 1_000,
		Depositors:     []string{"alice", "bob"},
		Traders:        []string{"dave", "erin"},
		Balance:        1_000_000_000,
		Pace:           "0s",
	}
	return cfg
}

func newTestSimulator(t *testing.T, cfg *config.Config) (*Simulator, *trailstop.Service) {
	t.Helper()
	log := zerolog.Nop()

	store, err := OpenStorage(cfg.Storage)
	require.NoError(t, err)

	paper, markets := NewVenue(cfg, log)
	service, err := trailstop.NewService(context.Background(), core.Address(cfg.Engine.Address), paper, markets,
		trailstop.WithLogger(log), trailstop.WithStorage(store))
	require.NoError(t, err)
	t.Cleanup(func() { _ = service.Stop() })

	simulator, err := New(service, paper, markets, cfg.Simulation, nil, log)
	require.NoError(t, err)
	return simulator, service
}

func TestSimulator_Run(t *testing.T) {
	cfg := testConfig()
	simulator, service := newTestSimulator(t, cfg)

	trades, err := Trades(rand.New(rand.NewSource(cfg.Simulation.Seed)), cfg.Simulation, simulator.markets)
	require.NoError(t, err)
	require.Len(t, trades, 300)

	result, err := simulator.Run(context.Background(), trades)
	require.NoError(t, err)

	assert.Equal(t, 300, result.Trades)
	assert.Equal(t, 0, result.Rejected)
	assert.Len(t, result.Placements, cfg.Simulation.Orders)
	assert.LessOrEqual(t, result.Withdrawn, cfg.Simulation.Orders/withdrawEvery)
	assert.NotEmpty(t, result.Claims, "the random walk reverses far enough to fill some orders")

	for holder, claims := range result.Claims {
		for asset, amount := range claims {
			assert.True(t, amount.IsPositive(), "%s claimed %s %s", holder, amount, asset)
		}
	}

	active, err := service.Storage().Orders(core.WithStatus(core.OrderStatusTypeActive), core.WithCanonical())
	require.NoError(t, err)

	pending := make(map[core.Asset]decimal.Decimal)
	for _, order := range active {
		market, ok := service.Engine().Market(order.Market)
		require.True(t, ok)
		asset := order.Direction.Input(market)
		pending[asset] = pending[asset].Add(order.TotalAmount)
	}

	vault := core.Address(cfg.Engine.Address)
	for asset, amount := range pending {
		assert.True(t, simulator.venue.Balance(asset, vault).GreaterThanOrEqual(amount),
			"custody of %s covers the pending deposits", asset)
	}
	for _, asset := range []core.Asset{"ETH", "BTC", "USDC"} {
		assert.False(t, simulator.venue.Balance(asset, vault).IsNegative())
	}
}

func TestSimulator_Cancelled(t *testing.T) {
	cfg := testConfig()
	simulator, _ := newTestSimulator(t, cfg)

	trades, err := Trades(rand.New(rand.NewSource(1)), cfg.Simulation, simulator.markets)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := simulator.Run(ctx, trades)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, result.Trades)
}

func TestNew(t *testing.T) {
	cfg := testConfig()
	log := zerolog.Nop()

	t.Run("invalid pace", func(t *testing.T) {
		settings := cfg.Simulation
		settings.Pace = "soon"
		_, err := New(nil, nil, nil, settings, nil, log)
		require.Error(t, err)
	})

	t.Run("pace in days", func(t *testing.T) {
		settings := cfg.Simulation
		settings.Pace = "1d2h"
		simulator, err := New(nil, nil, nil, settings, nil, log)
		require.NoError(t, err)
		assert.Equal(t, "26h0m0s", simulator.pace.String())
	})

	t.Run("orders without depositors", func(t *testing.T) {
		settings := cfg.Simulation
		settings.Depositors = nil
		_, err := New(nil, nil, nil, settings, nil, log)
		require.ErrorIs(t, err, config.ErrInvalidConfig)
	})
}

func TestTrades(t *testing.T) {
	cfg := testConfig()
	_, markets := NewVenue(cfg, zerolog.Nop())

	t.Run("random walk per market, ordered by time", func(t *testing.T) {
		trades, err := Trades(rand.New(rand.NewSource(3)), cfg.Simulation, markets)
		require.NoError(t, err)
		require.Len(t, trades, 2*cfg.Simulation.Trades)

		for i := 1; i < len(trades); i++ {
			assert.False(t, trades[i].Time.Before(trades[i-1].Time))
		}
	})

	t.Run("file trades belong to the first market", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "trades.csv")
		require.NoError(t, os.WriteFile(file, []byte("time,sender,direction,amount\n"+
			"1700000000,dave,ZERO_FOR_ONE,100\n"+
			"1700000060,erin,ONE_FOR_ZERO,250\n"), 0o644))

		settings := cfg.Simulation
		settings.TradesFile = file
		trades, err := Trades(rand.New(rand.NewSource(3)), settings, markets)
		require.NoError(t, err)
		require.Len(t, trades, 2)
		assert.Equal(t, core.MarketID("ETH/USDC"), trades[0].Market)
		assert.Equal(t, core.Address("erin"), trades[1].Sender)
	})

	t.Run("no markets", func(t *testing.T) {
		_, err := Trades(rand.New(rand.NewSource(3)), cfg.Simulation, nil)
		require.ErrorIs(t, err, config.ErrInvalidConfig)
	})
}

func TestNewVenue(t *testing.T) {
	cfg := testConfig()
	paper, markets := NewVenue(cfg, zerolog.Nop())

	require.Len(t, markets, 2)
	at, err := paper.CurrentTick(context.Background(), "BTC/USDC")
	require.NoError(t, err)
	assert.Equal(t, int64(1_000), at)

	balance := decimal.NewFromInt(cfg.Simulation.Balance)
	for _, account := range []core.Address{"alice", "bob", "dave", "erin"} {
		assert.True(t, balance.Equal(paper.Balance("USDC", account)), "USDC is quoted by both markets")
		assert.True(t, balance.Equal(paper.Balance("BTC", account)))
		assert.True(t, balance.Equal(paper.Balance("ETH", account)))
	}
}

func TestOpenStorage(t *testing.T) {
	dir := t.TempDir()

	for _, settings := range []config.StorageConfig{
		{Driver: "memory"},
		{Driver: "buntdb", Path: filepath.Join(dir, "orders.db")},
		{Driver: "sqlite", Path: filepath.Join(dir, "orders.sqlite")},
	} {
		t.Run(settings.Driver, func(t *testing.T) {
			store, err := OpenStorage(settings)
			require.NoError(t, err)
			require.NoError(t, store.SaveMarket(core.Market{ID: "ETH/USDC", Token0: "ETH", Token1: "USDC"}))

			markets, err := store.Markets()
			require.NoError(t, err)
			assert.Len(t, markets, 1)
		})
	}

	_, err := OpenStorage(config.StorageConfig{Driver: "redis"})
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}
