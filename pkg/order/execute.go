package order

import (
	"context"
	"fmt"

	"github.com/raykavin/trailstop/pkg/core"
	"github.com/raykavin/trailstop/pkg/tick"
	"github.com/shopspring/decimal"
)

// AfterSwap implements core.Hooks. It walks the ticks the trade crossed since the
// tracked reference and fills every order waiting there on the side opposite the
// trade, so a trade never triggers orders that move the price its own way.
func (e *Engine) AfterSwap(ctx context.Context, sender core.Address, marketID core.MarketID,
	direction core.Direction) error {

	if e.reentrant(sender) {
		return nil
	}

	defer e.reportErrors()
	e.mu.Lock()
	defer e.mu.Unlock()

	market, err := e.market(marketID)
	if err != nil {
		return err
	}

	current, err := e.exchange.CurrentTick(ctx, market.ID)
	if err != nil {
		err = fmt.Errorf("market %s: reading tick: %w", market.ID, err)
		e.notifyError(err)
		return err
	}

	side := direction.Opposite()
	for _, crossed := range tick.Crossed(market.LastTrackedTick, current, market.TickSpacing) {
		entry, ok := e.index.tick(tickKey{market.ID, crossed, side})
		if !ok || !entry.pending.IsPositive() {
			continue
		}

		if err := e.fillOrders(ctx, market, crossed, side, entry.pending); err != nil {
			e.notifyError(err)
			return err
		}
	}

	return nil
}

// fillOrders executes the whole aggregate of a tick in one swap and splits the
// output between the orders indexed there in proportion to their amounts. The
// tick is unindexed before the swap and restored if the swap fails.
func (e *Engine) fillOrders(ctx context.Context, market *core.Market, at int64, side core.Direction,
	amount decimal.Decimal) error {

	key := tickKey{market.ID, at, side}
	entry := e.index.clearTick(key)

	orders := make([]*core.Order, 0, len(entry.ids))
	for _, id := range entry.ids {
		order, ok := e.registry.get(id)
		if !ok {
			continue
		}
		e.index.removeFromBucket(bucketKey{market.ID, order.Percentage, side}, id)
		orders = append(orders, order)
	}

	out, err := e.swap(ctx, market, side, amount)
	if err != nil {
		e.index.ticks[key] = entry
		for _, order := range orders {
			e.index.addToBucket(bucketKey{market.ID, order.Percentage, side}, order.ID)
		}
		return fmt.Errorf("market %s: filling %s at %d: %w", market.ID, side, at, err)
	}

	now := e.now()
	for _, order := range orders {
		share, _ := out.Mul(order.TotalAmount).QuoRem(amount, 0)
		order.FilledAmount = order.FilledAmount.Add(share)
		order.Status = core.OrderStatusTypeFilled
		order.UpdatedAt = now

		e.persist(order)
		e.publish(core.OrderEvent{Type: core.EventFilled, Order: *order, Amount: order.TotalAmount, AmountOut: share})
	}

	e.log.WithFields(map[string]any{"market": market.ID, "tick": at, "side": side.String()}).
		Infof("[ORDERS FILLED] %d orders, in: %s, out: %s", len(orders), amount, out)
	return nil
}

// swap runs the fill trade with the price limit at the extreme of the venue range.
// The trade is sent as the engine, so the hook calls the venue makes for it are
// ignored.
func (e *Engine) swap(ctx context.Context, market *core.Market, side core.Direction,
	amount decimal.Decimal) (decimal.Decimal, error) {

	limit := core.MaxTick - 1
	if side == core.ZeroForOne {
		limit = core.MinTick + 1
	}

	return e.exchange.ExecuteExactInput(ctx, e.self, market.ID, side, amount, limit)
}
