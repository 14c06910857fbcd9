package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// Extreme ticks a venue accepts. Fills use them as price limits so that a
// triggered order always executes, like a market order.
const (
	MinTick int64 = -887272
	MaxTick int64 = 887272
)

// Venue is the price source of a market.
type Venue interface {
	CurrentTick(ctx context.Context, market MarketID) (int64, error)
}

// Swapper executes an exact-input trade and reports the output amount. The venue
// must execute at any price up to limitTick.
type Swapper interface {
	ExecuteExactInput(ctx context.Context, sender Address, market MarketID, direction Direction,
		amount decimal.Decimal, limitTick int64) (decimal.Decimal, error)
}

// Custodian moves tokens between depositors and the engine.
type Custodian interface {
	TakeCustody(ctx context.Context, asset Asset, from Address, amount decimal.Decimal) error
	Release(ctx context.Context, asset Asset, to Address, amount decimal.Decimal) error
}

// ShareLedger is the fungible per-order ownership primitive.
type ShareLedger interface {
	Mint(id OrderID, holder Address, amount decimal.Decimal) error
	Burn(id OrderID, holder Address, amount decimal.Decimal) error
	BalanceOf(id OrderID, holder Address) decimal.Decimal
}

// Exchange groups everything the engine consumes from the venue side.
type Exchange interface {
	Venue
	Swapper
	Custodian
}

// Hooks are invoked by the venue around every trade. sender is the account that
// initiated the trade.
type Hooks interface {
	BeforeSwap(ctx context.Context, sender Address, market MarketID) error
	AfterSwap(ctx context.Context, sender Address, market MarketID, direction Direction) error
}

// OrderStorage persists order records and market contexts.
type OrderStorage interface {
	// SaveMarket inserts or replaces a market
	SaveMarket(market Market) error

	// Markets returns every stored market
	Markets() ([]Market, error)

	// SaveOrder inserts or replaces an order record
	SaveOrder(order Order) error

	// Orders retrieves orders based on provided filters, ordered by id
	Orders(filters ...OrderFilter) ([]Order, error)
}

type Notifier interface {
	Notify(string)
	OnOrder(event OrderEvent)
	OnError(err error)
}
