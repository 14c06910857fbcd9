// Package venue provides a simulated tick-based pool to run the trailing-stop
// engine against without a chain.
package venue

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/raykavin/trailstop/pkg/core"
	"github.com/raykavin/trailstop/pkg/logger"
	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrPriceLimit        = errors.New("price limit reached")
)

// SwapError wraps an error raised while executing a trade
type SwapError struct {
	Err       error
	Market    core.MarketID
	Sender    core.Address
	Direction core.Direction
	Amount    decimal.Decimal
}

func (s *SwapError) Error() string {
	return fmt.Sprintf("swap %s %s by %s on %s: %v", s.Amount, s.Direction, s.Sender, s.Market, s.Err)
}

func (s *SwapError) Unwrap() error {
	return s.Err
}

// ---------------------
// Types
// ---------------------

// pool is the state of one simulated market
type pool struct {
	market core.Market
	tick   int64
	depth  decimal.Decimal
	volume map[core.Asset]decimal.Decimal
	trades int
}

// PaperVenue is an in-memory pool set. A trade of amount moves the tick by
// amount/depth ticks and is priced at 1.0001^tick token1 per token0. Every
// registered hook runs around each trade; a failing hook reverts the trade.
type PaperVenue struct {
	mu sync.RWMutex

	vault    core.Address
	pools    map[core.MarketID]*pool
	balances map[core.Asset]map[core.Address]decimal.Decimal
	hooks    []core.Hooks

	log logger.Logger
}

// PaperVenueOption defines an option function to configure PaperVenue
type PaperVenueOption func(*PaperVenue)

// ---------------------
// Configuration Options
// ---------------------

// WithPaperAsset funds holder with an initial balance of asset
func WithPaperAsset(asset core.Asset, holder core.Address, amount decimal.Decimal) PaperVenueOption {
	return func(venue *PaperVenue) {
		venue.credit(asset, holder, amount)
	}
}

// WithPaperMarket opens a pool at the given tick. depth is the input amount
// needed to move the price by one tick.
func WithPaperMarket(market core.Market, at int64, depth decimal.Decimal) PaperVenueOption {
	return func(venue *PaperVenue) {
		if !depth.IsPositive() {
			depth = decimal.NewFromInt(1)
		}
		venue.pools[market.ID] = &pool{
			market: market,
			tick:   at,
			depth:  depth,
			volume: make(map[core.Asset]decimal.Decimal),
		}
	}
}

// ---------------------
// Constructor
// ---------------------

// NewPaperVenue creates a simulated venue. Custody transfers move tokens to and
// from vault.
func NewPaperVenue(vault core.Address, log logger.Logger, options ...PaperVenueOption) *PaperVenue {
	venue := &PaperVenue{
		vault:    vault,
		pools:    make(map[core.MarketID]*pool),
		balances: make(map[core.Asset]map[core.Address]decimal.Decimal),
		log:      log,
	}

	for _, option := range options {
		option(venue)
	}

	log.Infof("Using paper venue with %d markets", len(venue.pools))
	return venue
}

// RegisterHooks adds hooks called around every trade, in registration order.
func (p *PaperVenue) RegisterHooks(hooks core.Hooks) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hooks = append(p.hooks, hooks)
}

// ---------------------
// Market data
// ---------------------

// Markets returns the definition of every pool
func (p *PaperVenue) Markets() []core.Market {
	p.mu.RLock()
	defer p.mu.RUnlock()

	markets := make([]core.Market, 0, len(p.pools))
	for _, pool := range p.pools {
		markets = append(markets, pool.market)
	}
	return markets
}

// CurrentTick implements core.Venue
func (p *PaperVenue) CurrentTick(_ context.Context, market core.MarketID) (int64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	pool, ok := p.pools[market]
	if !ok {
		return 0, fmt.Errorf("market %s: %w", market, core.ErrUnknownMarket)
	}
	return pool.tick, nil
}

// Price returns the token1 per token0 price of a market
func (p *PaperVenue) Price(market core.MarketID) (float64, error) {
	at, err := p.CurrentTick(context.Background(), market)
	if err != nil {
		return 0, err
	}
	return Price(at), nil
}

// Volume returns the input volume traded on a market per asset, and the number
// of trades
func (p *PaperVenue) Volume(market core.MarketID) (map[core.Asset]decimal.Decimal, int) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	pool, ok := p.pools[market]
	if !ok {
		return nil, 0
	}

	volume := make(map[core.Asset]decimal.Decimal, len(pool.volume))
	for asset, amount := range pool.volume {
		volume[asset] = amount
	}
	return volume, pool.trades
}

// Price converts a tick into a token1 per token0 price
func Price(at int64) float64 {
	return math.Pow(1.0001, float64(at))
}

// ---------------------
// Balances
// ---------------------

// Balance returns the balance of holder in asset
func (p *PaperVenue) Balance(asset core.Asset, holder core.Address) decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.balances[asset][holder]
}

// Fund credits holder with amount of asset
func (p *PaperVenue) Fund(asset core.Asset, holder core.Address, amount decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.credit(asset, holder, amount)
}

// credit assumes the mutex is held by the caller
func (p *PaperVenue) credit(asset core.Asset, holder core.Address, amount decimal.Decimal) {
	if p.balances[asset] == nil {
		p.balances[asset] = make(map[core.Address]decimal.Decimal)
	}
	p.balances[asset][holder] = p.balances[asset][holder].Add(amount)
}

// transfer assumes the mutex is held by the caller
func (p *PaperVenue) transfer(asset core.Asset, from, to core.Address, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if p.balances[asset][from].LessThan(amount) {
		return fmt.Errorf("%s has %s %s, needs %s: %w", from, p.balances[asset][from], asset, amount,
			ErrInsufficientFunds)
	}

	p.credit(asset, from, amount.Neg())
	p.credit(asset, to, amount)
	return nil
}

// TakeCustody implements core.Custodian
func (p *PaperVenue) TakeCustody(_ context.Context, asset core.Asset, from core.Address, amount decimal.Decimal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.transfer(asset, from, p.vault, amount)
}

// Release implements core.Custodian
func (p *PaperVenue) Release(_ context.Context, asset core.Asset, to core.Address, amount decimal.Decimal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.transfer(asset, p.vault, to, amount)
}

// ---------------------
// Trading
// ---------------------

// fill is what a trade changed, kept to revert it
type fill struct {
	input, output core.Asset
	in, out       decimal.Decimal
	ticks         int64
}

// ExecuteExactInput implements core.Swapper. The hooks run outside the venue
// lock so that they can trade themselves.
func (p *PaperVenue) ExecuteExactInput(ctx context.Context, sender core.Address, market core.MarketID,
	direction core.Direction, amount decimal.Decimal, limitTick int64) (decimal.Decimal, error) {

	p.mu.RLock()
	hooks := append([]core.Hooks(nil), p.hooks...)
	p.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook.BeforeSwap(ctx, sender, market); err != nil {
			return decimal.Zero, &SwapError{Err: err, Market: market, Sender: sender, Direction: direction, Amount: amount}
		}
	}

	trade, err := p.trade(sender, market, direction, amount, limitTick)
	if err != nil {
		return decimal.Zero, &SwapError{Err: err, Market: market, Sender: sender, Direction: direction, Amount: amount}
	}

	for _, hook := range hooks {
		if err := hook.AfterSwap(ctx, sender, market, direction); err != nil {
			p.revert(sender, market, trade)
			return decimal.Zero, &SwapError{Err: err, Market: market, Sender: sender, Direction: direction, Amount: amount}
		}
	}

	return trade.out, nil
}

func (p *PaperVenue) trade(sender core.Address, market core.MarketID, direction core.Direction,
	amount decimal.Decimal, limitTick int64) (fill, error) {

	p.mu.Lock()
	defer p.mu.Unlock()

	pool, ok := p.pools[market]
	if !ok {
		return fill{}, core.ErrUnknownMarket
	}
	if !amount.IsPositive() {
		return fill{}, ErrInvalidAmount
	}

	moved := amount.Div(pool.depth).IntPart()
	target := pool.tick + moved
	if direction == core.ZeroForOne {
		target = pool.tick - moved
		if pool.tick <= limitTick {
			return fill{}, ErrPriceLimit
		}
		target = max(target, limitTick, core.MinTick)
	} else {
		if pool.tick >= limitTick {
			return fill{}, ErrPriceLimit
		}
		target = min(target, limitTick, core.MaxTick)
	}

	// Priced at the middle of the range the trade walks through.
	price := decimal.NewFromFloat(Price((pool.tick + target) / 2))
	out := amount.Mul(price)
	if direction == core.OneForZero {
		out = amount.Div(price)
	}
	out = out.Truncate(0)

	trade := fill{
		input:  direction.Input(pool.market),
		output: direction.Output(pool.market),
		in:     amount,
		out:    out,
		ticks:  target - pool.tick,
	}

	if err := p.transfer(trade.input, sender, p.poolAccount(market), amount); err != nil {
		return fill{}, err
	}
	p.credit(trade.output, sender, out)
	p.credit(trade.output, p.poolAccount(market), out.Neg())

	pool.tick = target
	pool.volume[trade.input] = pool.volume[trade.input].Add(amount)
	pool.trades++

	p.log.WithFields(map[string]any{"market": market, "sender": sender}).
		Debugf("[SWAP] %s %s %s -> %s %s, tick %d -> %d", direction, amount, trade.input, out, trade.output,
			target-trade.ticks, target)

	return trade, nil
}

func (p *PaperVenue) revert(sender core.Address, market core.MarketID, trade fill) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pool := p.pools[market]
	pool.tick -= trade.ticks
	pool.volume[trade.input] = pool.volume[trade.input].Sub(trade.in)
	pool.trades--

	p.credit(trade.input, p.poolAccount(market), trade.in.Neg())
	p.credit(trade.input, sender, trade.in)
	p.credit(trade.output, sender, trade.out.Neg())
	p.credit(trade.output, p.poolAccount(market), trade.out)

	p.log.WithField("market", market).Warnf("[SWAP REVERTED] %s by %s", trade.in, sender)
}

// poolAccount is the address reserves are booked under. Pool reserves may go
// negative: the paper pool has unlimited liquidity.
func (p *PaperVenue) poolAccount(market core.MarketID) core.Address {
	return core.Address("pool:" + string(market))
}
