package trailstop

import (
	"bytes"
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/raykavin/trailstop/pkg/core"
	"github.com/raykavin/trailstop/pkg/logger/zerolog"
	"github.com/raykavin/trailstop/pkg/storage"
	"github.com/raykavin/trailstop/pkg/venue"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	vault  core.Address = "engine"
	trader core.Address = "trader"
	alice  core.Address = "alice"
)

var ethUSDC = core.Market{ID: "ETH/USDC", Token0: "ETH", Token1: "USDC", TickSpacing: 50}

func d(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

type recorder struct {
	mu     sync.Mutex
	events []core.OrderEvent
}

func (r *recorder) OnOrder(event core.OrderEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) types() []core.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()

	types := make([]core.EventType, 0, len(r.events))
	for _, event := range r.events {
		types = append(types, event.Type)
	}
	return types
}

func newPaperVenue() *venue.PaperVenue {
	return venue.NewPaperVenue(vault, zerolog.Nop(),
		venue.WithPaperMarket(ethUSDC, 0, d(10)),
		venue.WithPaperAsset("ETH", trader, d(1_000_000)),
		venue.WithPaperAsset("USDC", alice, d(10_000)),
	)
}

func TestService(t *testing.T) {
	ctx := context.Background()
	paper := newPaperVenue()
	events := &recorder{}
	registry := prometheus.NewRegistry()

	service, err := NewService(ctx, vault, paper, []core.Market{ethUSDC},
		WithLogger(zerolog.Nop()),
		WithMetrics(registry),
		WithOrderSubscription(events),
	)
	require.NoError(t, err)
	service.Start()

	engine := service.Engine()
	trigger, id, err := engine.Place(ctx, alice, ethUSDC.ID, core.Percentage(10_000), d(1000), core.OneForZero)
	require.NoError(t, err)
	assert.Equal(t, int64(-100), trigger)
	assert.Equal(t, 1, service.ActiveOrders(ethUSDC.ID))

	_, err = paper.ExecuteExactInput(ctx, trader, ethUSDC.ID, core.ZeroForOne, d(1000), core.MinTick)
	require.NoError(t, err)
	assert.Equal(t, 0, service.ActiveOrders(ethUSDC.ID))

	payout, err := engine.Claim(ctx, alice, id)
	require.NoError(t, err)
	assert.True(t, payout.IsPositive())
	assert.True(t, payout.Equal(paper.Balance("ETH", alice)))

	stored, err := service.Storage().Orders()
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, core.OrderStatusTypeFilled, stored[0].Status)

	require.NoError(t, service.Stop())

	assert.Equal(t, []core.EventType{core.EventPlaced, core.EventFilled, core.EventClaimed}, events.types())

	stats := service.Stats(ethUSDC.ID)
	assert.Equal(t, 1, stats.Count)
	assert.Equal(t, 1000.0, stats.Input)

	families, err := registry.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, family := range families {
		names = append(names, family.GetName())
	}
	assert.Contains(t, names, "trailstop_order_events_total")
	assert.Contains(t, names, "trailstop_filled_input_total")

}

func TestService_Summary(t *testing.T) {
	ctx := context.Background()
	service, err := NewService(ctx, vault, newPaperVenue(), []core.Market{ethUSDC}, WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	_, _, err = service.Engine().Place(ctx, alice, ethUSDC.ID, core.Percentage(20_000), d(500), core.OneForZero)
	require.NoError(t, err)

	var buffer bytes.Buffer
	require.NoError(t, service.Summary(&buffer))
	assert.Contains(t, buffer.String(), "ETH/USDC")
	assert.Contains(t, buffer.String(), "1.000000")
}

func TestService_Restore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "orders.db")

	store, err := storage.FromFile(path)
	require.NoError(t, err)

	first, err := NewService(ctx, vault, newPaperVenue(), []core.Market{ethUSDC},
		WithLogger(zerolog.Nop()), WithStorage(store))
	require.NoError(t, err)

	_, id, err := first.Engine().Place(ctx, alice, ethUSDC.ID, core.Percentage(30_000), d(700), core.OneForZero)
	require.NoError(t, err)
	require.NoError(t, first.Stop())

	store, err = storage.FromFile(path)
	require.NoError(t, err)

	second, err := NewService(ctx, vault, newPaperVenue(), []core.Market{ethUSDC},
		WithLogger(zerolog.Nop()), WithStorage(store), WithRestore())
	require.NoError(t, err)
	defer second.Stop()

	assert.Equal(t, 1, second.ActiveOrders(ethUSDC.ID))
	order, ok := second.Engine().Order(id)
	require.True(t, ok)
	assert.True(t, d(700).Equal(order.TotalAmount))
	assert.Equal(t, int64(-300), order.TriggerTick)

	_, _, err = second.Engine().Place(ctx, alice, ethUSDC.ID, core.Percentage(30_000), d(100), core.OneForZero)
	require.NoError(t, err)
	order, _ = second.Engine().Order(id)
	assert.True(t, d(800).Equal(order.TotalAmount), "a restored order keeps accepting deposits")
}
