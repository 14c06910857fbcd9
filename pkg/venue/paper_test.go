package venue

import (
	"context"
	"errors"
	"testing"

	"github.com/raykavin/trailstop/pkg/core"
	"github.com/raykavin/trailstop/pkg/ledger"
	"github.com/raykavin/trailstop/pkg/logger/zerolog"
	"github.com/raykavin/trailstop/pkg/order"
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

func newTestVenue() *PaperVenue {
	return NewPaperVenue(vault, zerolog.Nop(),
		WithPaperMarket(ethUSDC, 0, d(10)),
		WithPaperAsset("ETH", trader, d(1_000_000)),
		WithPaperAsset("USDC", trader, d(1_000_000)),
		WithPaperAsset("USDC", alice, d(10_000)),
	)
}

type recordingHooks struct {
	before, after int
	afterErr      error
}

func (r *recordingHooks) BeforeSwap(context.Context, core.Address, core.MarketID) error {
	r.before++
	return nil
}

func (r *recordingHooks) AfterSwap(context.Context, core.Address, core.MarketID, core.Direction) error {
	r.after++
	return r.afterErr
}

func TestPaperVenue_Swap(t *testing.T) {
	ctx := context.Background()

	t.Run("zero for one pushes the price down", func(t *testing.T) {
		venue := newTestVenue()

		out, err := venue.ExecuteExactInput(ctx, trader, ethUSDC.ID, core.ZeroForOne, d(1000), core.MinTick)
		require.NoError(t, err)
		assert.Equal(t, "995", out.String())

		at, err := venue.CurrentTick(ctx, ethUSDC.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(-100), at)
		assert.True(t, d(999_000).Equal(venue.Balance("ETH", trader)))
		assert.True(t, d(1_000_995).Equal(venue.Balance("USDC", trader)))

		volume, trades := venue.Volume(ethUSDC.ID)
		assert.Equal(t, 1, trades)
		assert.True(t, d(1000).Equal(volume["ETH"]))
	})

	t.Run("one for zero pushes the price up", func(t *testing.T) {
		venue := newTestVenue()

		out, err := venue.ExecuteExactInput(ctx, trader, ethUSDC.ID, core.OneForZero, d(1000), core.MaxTick)
		require.NoError(t, err)
		assert.Equal(t, "995", out.String())

		at, _ := venue.CurrentTick(ctx, ethUSDC.ID)
		assert.Equal(t, int64(100), at)

		price, err := venue.Price(ethUSDC.ID)
		require.NoError(t, err)
		assert.InDelta(t, 1.01005, price, 1e-5)
	})

	t.Run("price limit", func(t *testing.T) {
		venue := newTestVenue()

		_, err := venue.ExecuteExactInput(ctx, trader, ethUSDC.ID, core.ZeroForOne, d(1000), 0)
		require.ErrorIs(t, err, ErrPriceLimit)

		_, err = venue.ExecuteExactInput(ctx, trader, ethUSDC.ID, core.ZeroForOne, d(1000), -50)
		require.NoError(t, err)
		at, _ := venue.CurrentTick(ctx, ethUSDC.ID)
		assert.Equal(t, int64(-50), at)
	})

	t.Run("rejections", func(t *testing.T) {
		venue := newTestVenue()

		_, err := venue.ExecuteExactInput(ctx, alice, ethUSDC.ID, core.ZeroForOne, d(1), core.MinTick)
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		_, err = venue.ExecuteExactInput(ctx, trader, "BTC/USDC", core.ZeroForOne, d(1), core.MinTick)
		assert.ErrorIs(t, err, core.ErrUnknownMarket)
		_, err = venue.ExecuteExactInput(ctx, trader, ethUSDC.ID, core.ZeroForOne, decimal.Zero, core.MinTick)
		assert.ErrorIs(t, err, ErrInvalidAmount)

		var swapErr *SwapError
		require.True(t, errors.As(err, &swapErr))
		assert.Equal(t, trader, swapErr.Sender)

		_, err = venue.CurrentTick(ctx, "BTC/USDC")
		assert.ErrorIs(t, err, core.ErrUnknownMarket)
	})
}

func TestPaperVenue_Hooks(t *testing.T) {
	ctx := context.Background()

	t.Run("called around every swap", func(t *testing.T) {
		venue := newTestVenue()
		hooks := &recordingHooks{}
		venue.RegisterHooks(hooks)

		_, err := venue.ExecuteExactInput(ctx, trader, ethUSDC.ID, core.ZeroForOne, d(100), core.MinTick)
		require.NoError(t, err)
		assert.Equal(t, 1, hooks.before)
		assert.Equal(t, 1, hooks.after)
	})

	t.Run("failing hook reverts the trade", func(t *testing.T) {
		venue := newTestVenue()
		venue.RegisterHooks(&recordingHooks{afterErr: errors.New("hook failed")})

		_, err := venue.ExecuteExactInput(ctx, trader, ethUSDC.ID, core.ZeroForOne, d(1000), core.MinTick)
		require.Error(t, err)

		at, _ := venue.CurrentTick(ctx, ethUSDC.ID)
		assert.Equal(t, int64(0), at)
		assert.True(t, d(1_000_000).Equal(venue.Balance("ETH", trader)))
		assert.True(t, d(1_000_000).Equal(venue.Balance("USDC", trader)))
		_, trades := venue.Volume(ethUSDC.ID)
		assert.Equal(t, 0, trades)
	})
}

func TestPaperVenue_Custody(t *testing.T) {
	ctx := context.Background()
	venue := newTestVenue()

	require.NoError(t, venue.TakeCustody(ctx, "USDC", alice, d(4000)))
	assert.True(t, d(6000).Equal(venue.Balance("USDC", alice)))
	assert.True(t, d(4000).Equal(venue.Balance("USDC", vault)))

	require.NoError(t, venue.Release(ctx, "USDC", alice, d(1000)))
	assert.True(t, d(7000).Equal(venue.Balance("USDC", alice)))

	assert.ErrorIs(t, venue.Release(ctx, "USDC", alice, d(5000)), ErrInsufficientFunds)
	assert.ErrorIs(t, venue.TakeCustody(ctx, "ETH", alice, d(1)), ErrInsufficientFunds)
}

func TestPaperVenue_TrailingStop(t *testing.T) {
	ctx := context.Background()
	venue := newTestVenue()
	engine := order.NewEngine(vault, venue, ledger.NewMemory(), zerolog.Nop())
	venue.RegisterHooks(engine)
	require.NoError(t, engine.InitializeMarket(ctx, ethUSDC))

	trigger, id, err := engine.Place(ctx, alice, ethUSDC.ID, core.MinPercentage, d(1000), core.OneForZero)
	require.NoError(t, err)
	assert.Equal(t, int64(-100), trigger)

	_, err = venue.Execute(ctx, Trade{Market: ethUSDC.ID, Sender: trader, Direction: core.ZeroForOne, Amount: d(2000)})
	require.NoError(t, err)

	filled, ok := engine.Order(id)
	require.True(t, ok)
	require.Equal(t, core.OrderStatusTypeFilled, filled.Status)
	assert.True(t, filled.FilledAmount.IsPositive())

	// The fill bought ETH back and moved the price up by 1000 / 10 ticks.
	at, _ := venue.CurrentTick(ctx, ethUSDC.ID)
	assert.Equal(t, int64(-100), at)

	paid, err := engine.Claim(ctx, alice, id)
	require.NoError(t, err)
	assert.True(t, filled.FilledAmount.Equal(paid))
	assert.True(t, paid.Equal(venue.Balance("ETH", alice)))
	assert.True(t, venue.Balance("USDC", vault).IsZero())
}
