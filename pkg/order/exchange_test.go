package order

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/raykavin/trailstop/pkg/core"
	"github.com/shopspring/decimal"
)

var errInsufficientFunds = errors.New("insufficient funds")

type swapCall struct {
	sender    core.Address
	market    core.MarketID
	direction core.Direction
	amount    decimal.Decimal
	limit     int64
}

// fakeExchange is a scripted venue: the test moves the tick by hand and every
// swap returns amount * rate.
type fakeExchange struct {
	mu sync.Mutex

	markets  map[core.MarketID]core.Market
	ticks    map[core.MarketID]int64
	rate     decimal.Decimal
	balances map[core.Asset]map[core.Address]decimal.Decimal

	swapErr    error
	releaseErr error
	swaps      []swapCall

	// hooks, when set, are called around every swap like a real venue would.
	hooks core.Hooks
	// onSwap, when set, runs first in every swap, outside the exchange lock.
	onSwap func(sender core.Address, market core.MarketID)
}

func newFakeExchange() *fakeExchange {
	return &fakeExchange{
		markets:  make(map[core.MarketID]core.Market),
		ticks:    make(map[core.MarketID]int64),
		rate:     decimal.NewFromInt(2),
		balances: make(map[core.Asset]map[core.Address]decimal.Decimal),
	}
}

func (f *fakeExchange) addMarket(market core.Market, at int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markets[market.ID] = market
	f.ticks[market.ID] = at
}

func (f *fakeExchange) setTick(market core.MarketID, at int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ticks[market] = at
}

func (f *fakeExchange) fund(asset core.Asset, holder core.Address, amount int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credit(asset, holder, decimal.NewFromInt(amount))
}

func (f *fakeExchange) balance(asset core.Asset, holder core.Address) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[asset][holder]
}

func (f *fakeExchange) credit(asset core.Asset, holder core.Address, amount decimal.Decimal) {
	if f.balances[asset] == nil {
		f.balances[asset] = make(map[core.Address]decimal.Decimal)
	}
	f.balances[asset][holder] = f.balances[asset][holder].Add(amount)
}

func (f *fakeExchange) move(asset core.Asset, from, to core.Address, amount decimal.Decimal) error {
	if f.balances[asset][from].LessThan(amount) {
		return fmt.Errorf("%s of %s: %w", asset, from, errInsufficientFunds)
	}
	f.credit(asset, from, amount.Neg())
	f.credit(asset, to, amount)
	return nil
}

func (f *fakeExchange) CurrentTick(_ context.Context, market core.MarketID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	at, ok := f.ticks[market]
	if !ok {
		return 0, core.ErrUnknownMarket
	}
	return at, nil
}

func (f *fakeExchange) ExecuteExactInput(ctx context.Context, sender core.Address, market core.MarketID,
	direction core.Direction, amount decimal.Decimal, limit int64) (decimal.Decimal, error) {

	if f.onSwap != nil {
		f.onSwap(sender, market)
	}
	if f.hooks != nil {
		if err := f.hooks.BeforeSwap(ctx, sender, market); err != nil {
			return decimal.Zero, err
		}
	}

	f.mu.Lock()
	f.swaps = append(f.swaps, swapCall{sender, market, direction, amount, limit})
	if f.swapErr != nil {
		f.mu.Unlock()
		return decimal.Zero, f.swapErr
	}

	out := amount.Mul(f.rate).Truncate(0)
	m := f.markets[market]
	if err := f.move(direction.Input(m), sender, "pool", amount); err != nil {
		f.mu.Unlock()
		return decimal.Zero, err
	}
	f.credit(direction.Output(m), sender, out)
	f.mu.Unlock()

	if f.hooks != nil {
		if err := f.hooks.AfterSwap(ctx, sender, market, direction); err != nil {
			return decimal.Zero, err
		}
	}
	return out, nil
}

func (f *fakeExchange) TakeCustody(_ context.Context, asset core.Asset, from core.Address, amount decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.move(asset, from, testEngine, amount)
}

func (f *fakeExchange) Release(_ context.Context, asset core.Asset, to core.Address, amount decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.releaseErr != nil {
		return f.releaseErr
	}
	return f.move(asset, testEngine, to, amount)
}
