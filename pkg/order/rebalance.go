package order

import (
	"context"
	"fmt"

	"github.com/raykavin/trailstop/pkg/core"
	"github.com/raykavin/trailstop/pkg/tick"
)

// BeforeSwap implements core.Hooks. It brings the market's tracked reference up
// to the venue price, re-pegging the orders that trail the move.
func (e *Engine) BeforeSwap(ctx context.Context, sender core.Address, marketID core.MarketID) error {
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

	if err := e.track(ctx, market); err != nil {
		e.notifyError(err)
		return err
	}
	return nil
}

// track compares the venue reference with the tracked one and rebalances when
// the price left the bucket.
func (e *Engine) track(ctx context.Context, market *core.Market) error {
	current, err := e.exchange.CurrentTick(ctx, market.ID)
	if err != nil {
		return fmt.Errorf("market %s: reading tick: %w", market.ID, err)
	}

	if ref := tick.Reference(current); ref != market.LastTrackedTick {
		e.rebalance(market, market.LastTrackedTick, ref)
	}
	return nil
}

// rebalance moves every order of the trailing side to its trigger relative to
// the new reference, merging it into a bucket sibling already sitting there.
// lastTrackedTick is written only once every bucket is done.
func (e *Engine) rebalance(market *core.Market, from, to int64) {
	side := tick.RepeggedSide(from, to)
	log := e.log.WithFields(map[string]any{"market": market.ID, "side": side.String()})
	log.Debugf("[REBALANCE] %d -> %d", from, to)

	var touched []*core.Order
	for _, percentage := range core.Percentages {
		bucket := bucketKey{market.ID, percentage, side}
		trigger := tick.Trigger(to, percentage, side)

		for _, id := range e.index.bucket(bucket) {
			order, ok := e.registry.get(id)
			if !ok {
				continue
			}

			e.index.removeFromTick(tickKey{market.ID, order.TriggerTick, side}, id, order.TotalAmount)
			order.UpdatedAt = e.now()
			touched = append(touched, order)

			if target := e.siblingAt(bucket, trigger, id); target != nil {
				target.TotalAmount = target.TotalAmount.Add(order.TotalAmount)
				target.UpdatedAt = order.UpdatedAt
				order.MergedInto = target.ID
				e.index.addPending(tickKey{market.ID, trigger, side}, order.TotalAmount)
				e.index.removeFromBucket(bucket, id)
				touched = append(touched, target)

				log.Tracef("order %d merged into %d at %d", id, target.ID, trigger)
				e.publish(core.OrderEvent{Type: core.EventMerged, Order: *order})
				continue
			}

			order.TriggerTick = trigger
			e.index.addToTick(tickKey{market.ID, trigger, side}, id, order.TotalAmount)
			e.publish(core.OrderEvent{Type: core.EventRebalanced, Order: *order})
		}
	}

	market.LastTrackedTick = to
	market.UpdatedAt = e.now()
	e.persist(touched...)
	e.persistMarket(market)
}

// siblingAt returns the canonical active order of the bucket, other than
// exclude, whose trigger is at the given tick.
func (e *Engine) siblingAt(bucket bucketKey, trigger int64, exclude core.OrderID) *core.Order {
	for _, id := range e.index.buckets[bucket] {
		if id == exclude {
			continue
		}
		order, ok := e.registry.get(id)
		if ok && order.Canonical() && order.IsActive() && order.TriggerTick == trigger {
			return order
		}
	}
	return nil
}
