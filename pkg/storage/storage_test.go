package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/raykavin/trailstop/pkg/core"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storages(t *testing.T) map[string]core.OrderStorage {
	t.Helper()

	bunt, err := FromMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = bunt.Close() })

	sql, err := FromSQL(sqlite.Open(filepath.Join(t.TempDir(), "orders.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sql.Close() })

	return map[string]core.OrderStorage{"buntdb": bunt, "sql": sql}
}

func testOrder(id core.OrderID, market core.MarketID, status core.OrderStatusType) core.Order {
	return core.Order{
		ID:          id,
		Market:      market,
		Direction:   core.OneForZero,
		Percentage:  core.MinPercentage,
		TriggerTick: -100,
		TotalAmount: decimal.NewFromInt(1_000_000),
		Status:      status,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
}

func TestStorage_Orders(t *testing.T) {
	for name, storage := range storages(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, storage.SaveOrder(testOrder(2, "ETH/USDC", core.OrderStatusTypeActive)))
			require.NoError(t, storage.SaveOrder(testOrder(1, "ETH/USDC", core.OrderStatusTypeFilled)))
			require.NoError(t, storage.SaveOrder(testOrder(10, "BTC/USDC", core.OrderStatusTypeActive)))

			orders, err := storage.Orders()
			require.NoError(t, err)
			require.Len(t, orders, 3)
			assert.Equal(t, core.OrderID(1), orders[0].ID)
			assert.Equal(t, core.OrderID(2), orders[1].ID)
			assert.Equal(t, core.OrderID(10), orders[2].ID)
			assert.True(t, decimal.NewFromInt(1_000_000).Equal(orders[0].TotalAmount))
			assert.Equal(t, core.OneForZero, orders[0].Direction)

			orders, err = storage.Orders(core.WithMarket("ETH/USDC"), core.WithStatus(core.OrderStatusTypeActive))
			require.NoError(t, err)
			require.Len(t, orders, 1)
			assert.Equal(t, core.OrderID(2), orders[0].ID)
		})
	}
}

func TestStorage_SaveOrderReplaces(t *testing.T) {
	for name, storage := range storages(t) {
		t.Run(name, func(t *testing.T) {
			order := testOrder(1, "ETH/USDC", core.OrderStatusTypeActive)
			require.NoError(t, storage.SaveOrder(order))

			order.Status = core.OrderStatusTypeFilled
			order.FilledAmount = decimal.NewFromInt(42)
			order.MergedInto = 3
			require.NoError(t, storage.SaveOrder(order))

			orders, err := storage.Orders()
			require.NoError(t, err)
			require.Len(t, orders, 1)
			assert.Equal(t, core.OrderStatusTypeFilled, orders[0].Status)
			assert.Equal(t, "42", orders[0].FilledAmount.String())
			assert.Equal(t, core.OrderID(3), orders[0].MergedInto)

			assert.ErrorIs(t, storage.SaveOrder(core.Order{}), core.ErrUnknownOrder)
		})
	}
}

func TestStorage_Markets(t *testing.T) {
	for name, storage := range storages(t) {
		t.Run(name, func(t *testing.T) {
			market := core.Market{ID: "ETH/USDC", Token0: "ETH", Token1: "USDC", TickSpacing: 50}
			require.NoError(t, storage.SaveMarket(market))

			market.LastTrackedTick = -350
			require.NoError(t, storage.SaveMarket(market))
			require.NoError(t, storage.SaveMarket(core.Market{ID: "BTC/USDC", Token0: "BTC", Token1: "USDC", TickSpacing: 50}))

			markets, err := storage.Markets()
			require.NoError(t, err)
			require.Len(t, markets, 2)
			assert.Equal(t, core.MarketID("BTC/USDC"), markets[0].ID)
			assert.Equal(t, core.MarketID("ETH/USDC"), markets[1].ID)
			assert.Equal(t, int64(-350), markets[1].LastTrackedTick)
		})
	}
}

func TestBuntStorage_RecentOrders(t *testing.T) {
	storage, err := FromMemory()
	require.NoError(t, err)
	defer storage.Close()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= 3; i++ {
		order := testOrder(core.OrderID(i), "ETH/USDC", core.OrderStatusTypeActive)
		order.UpdatedAt = base.Add(time.Duration(-i) * time.Hour)
		require.NoError(t, storage.SaveOrder(order))
	}

	orders, err := storage.RecentOrders(2)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, core.OrderID(1), orders[0].ID)
	assert.Equal(t, core.OrderID(2), orders[1].ID)
}

func TestBuntStorage_FromFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "orders.db")

	storage, err := FromFile(file)
	require.NoError(t, err)
	require.NoError(t, storage.SaveOrder(testOrder(7, "ETH/USDC", core.OrderStatusTypeActive)))
	require.NoError(t, storage.Close())

	storage, err = FromFile(file)
	require.NoError(t, err)
	defer storage.Close()

	orders, err := storage.Orders()
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, core.OrderID(7), orders[0].ID)
}
