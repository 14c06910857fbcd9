package order

import (
	"github.com/raykavin/trailstop/pkg/core"
	"github.com/shopspring/decimal"
)

// PendingAmount returns the aggregate waiting at a tick on one side.
func (e *Engine) PendingAmount(market core.MarketID, at int64, direction core.Direction) decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()

	if entry, ok := e.index.tick(tickKey{market, at, direction}); ok {
		return entry.pending
	}
	return decimal.Zero
}

// ActiveCount returns the number of live orders in a bucket.
func (e *Engine) ActiveCount(market core.MarketID, percentage core.Percentage, direction core.Direction) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.index.buckets[bucketKey{market, percentage, direction}])
}

// TickCount returns the number of orders indexed at a tick on one side.
func (e *Engine) TickCount(market core.MarketID, at int64, direction core.Direction) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if entry, ok := e.index.tick(tickKey{market, at, direction}); ok {
		return len(entry.ids)
	}
	return 0
}

// BucketOrderAt returns the n-th order id of a bucket, in insertion order.
func (e *Engine) BucketOrderAt(market core.MarketID, percentage core.Percentage, direction core.Direction,
	n int) (core.OrderID, bool) {

	e.mu.Lock()
	defer e.mu.Unlock()

	ids := e.index.buckets[bucketKey{market, percentage, direction}]
	if n < 0 || n >= len(ids) {
		return 0, false
	}
	return ids[n], true
}

// TickOrderAt returns the n-th order id indexed at a tick, in insertion order.
func (e *Engine) TickOrderAt(market core.MarketID, at int64, direction core.Direction, n int) (core.OrderID, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.index.tick(tickKey{market, at, direction})
	if !ok || n < 0 || n >= len(entry.ids) {
		return 0, false
	}
	return entry.ids[n], true
}

// LastOrderID returns the id assigned to the most recently created order.
func (e *Engine) LastOrderID() core.OrderID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.lastID()
}

// Order returns a copy of the record stored under id, merged or not.
func (e *Engine) Order(id core.OrderID) (core.Order, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.registry.get(id)
	if !ok {
		return core.Order{}, false
	}
	return *order, true
}

// Resolve returns the canonical order id reached from id.
func (e *Engine) Resolve(id core.OrderID) (core.OrderID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, err := e.registry.resolve(id)
	if err != nil {
		return 0, err
	}
	return order.ID, nil
}

// ShareOf returns holder's share balance of id.
func (e *Engine) ShareOf(id core.OrderID, holder core.Address) decimal.Decimal {
	return e.shares.BalanceOf(id, holder)
}

// Market returns a copy of a serviced market.
func (e *Engine) Market(id core.MarketID) (core.Market, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	market, ok := e.markets[id]
	if !ok {
		return core.Market{}, false
	}
	return *market, true
}

// Markets returns a copy of every serviced market.
func (e *Engine) Markets() []core.Market {
	e.mu.Lock()
	defer e.mu.Unlock()

	markets := make([]core.Market, 0, len(e.markets))
	for _, market := range e.markets {
		markets = append(markets, *market)
	}
	return markets
}
