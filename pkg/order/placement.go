package order

import (
	"context"
	"fmt"

	"github.com/raykavin/trailstop/pkg/core"
	"github.com/raykavin/trailstop/pkg/tick"
	"github.com/shopspring/decimal"
)

// Place deposits amount on behalf of holder into a trailing order that executes
// once the price reverses by percentage. Orders of the same bucket waiting at the
// same trigger are shared: the deposit joins the existing order and holder
// receives shares of it. It returns the trigger tick and the order id the shares
// were minted against.
func (e *Engine) Place(ctx context.Context, holder core.Address, marketID core.MarketID,
	percentage core.Percentage, amount decimal.Decimal, direction core.Direction) (int64, core.OrderID, error) {

	if !percentage.Valid() {
		return 0, 0, fmt.Errorf("percentage %d: %w", percentage, core.ErrIncorrectPercentage)
	}
	if !amount.IsPositive() || !amount.IsInteger() {
		return 0, 0, fmt.Errorf("amount %s: %w", amount, core.ErrInvalidAmount)
	}

	defer e.reportErrors()
	e.mu.Lock()
	defer e.mu.Unlock()

	market, err := e.market(marketID)
	if err != nil {
		return 0, 0, err
	}

	// The venue may have moved since the last hook; re-peg first so that the new
	// order starts from the same reference as its bucket.
	if err := e.track(ctx, market); err != nil {
		return 0, 0, err
	}

	trigger := tick.Trigger(market.LastTrackedTick, percentage, direction)
	bucket := bucketKey{market.ID, percentage, direction}
	existing := e.siblingAt(bucket, trigger, 0)

	id := e.registry.nextID()
	if existing != nil {
		id = existing.ID
	}

	asset := direction.Input(*market)
	if err := e.exchange.TakeCustody(ctx, asset, holder, amount); err != nil {
		return 0, 0, fmt.Errorf("taking custody of %s %s: %w", amount, asset, err)
	}

	if err := e.shares.Mint(id, holder, amount); err != nil {
		if rerr := e.exchange.Release(ctx, asset, holder, amount); rerr != nil {
			e.notifyError(fmt.Errorf("returning %s %s to %s: %w", amount, asset, holder, rerr))
		}
		return 0, 0, fmt.Errorf("minting shares of %d: %w", id, err)
	}

	now := e.now()
	order := existing
	if order != nil {
		order.TotalAmount = order.TotalAmount.Add(amount)
		order.UpdatedAt = now
	} else {
		order = e.registry.create(core.Order{
			Market:      market.ID,
			Direction:   direction,
			Percentage:  percentage,
			TriggerTick: trigger,
			TotalAmount: amount,
			Status:      core.OrderStatusTypeActive,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		e.index.addToBucket(bucket, order.ID)
	}
	e.index.addToTick(tickKey{market.ID, trigger, direction}, order.ID, amount)

	e.persist(order)
	e.publish(core.OrderEvent{Type: core.EventPlaced, Order: *order, Holder: holder, Amount: amount})
	e.log.WithFields(map[string]any{"market": market.ID, "holder": holder}).
		Infof("[ORDER PLACED] %s", order)

	return trigger, order.ID, nil
}

// Remove withdraws holder's whole share of an order that has not been executed
// yet and returns the deposit. An order drained to zero leaves the indices.
func (e *Engine) Remove(ctx context.Context, holder core.Address, id core.OrderID) (decimal.Decimal, error) {
	defer e.reportErrors()
	e.mu.Lock()
	defer e.mu.Unlock()

	order, err := e.registry.resolve(id)
	if err != nil {
		return decimal.Zero, err
	}

	share := e.shares.BalanceOf(id, holder)
	if !share.IsPositive() {
		return decimal.Zero, fmt.Errorf("order %d, holder %s: %w", id, holder, core.ErrNoAmount)
	}
	if order.IsFilled() {
		return decimal.Zero, fmt.Errorf("order %d: %w", id, core.ErrAlreadyExecuted)
	}

	market, err := e.market(order.Market)
	if err != nil {
		return decimal.Zero, err
	}

	if err := e.shares.Burn(id, holder, share); err != nil {
		return decimal.Zero, fmt.Errorf("burning shares of %d: %w", id, err)
	}

	bucket := bucketKey{market.ID, order.Percentage, order.Direction}
	at := tickKey{market.ID, order.TriggerTick, order.Direction}
	previous := *order

	order.TotalAmount = order.TotalAmount.Sub(share)
	order.UpdatedAt = e.now()
	e.index.subPending(at, share)
	emptied := order.TotalAmount.IsZero()
	if emptied {
		order.Status = core.OrderStatusTypeWithdrawn
		e.index.removeFromBucket(bucket, order.ID)
		e.index.removeFromTick(at, order.ID, decimal.Zero)
	}

	asset := order.Direction.Input(*market)
	if err := e.exchange.Release(ctx, asset, holder, share); err != nil {
		*order = previous
		e.index.addToTick(at, order.ID, share)
		if emptied {
			e.index.addToBucket(bucket, order.ID)
		}
		if merr := e.shares.Mint(id, holder, share); merr != nil {
			e.notifyError(fmt.Errorf("restoring shares of %d for %s: %w", id, holder, merr))
		}
		return decimal.Zero, fmt.Errorf("releasing %s %s: %w", share, asset, err)
	}

	e.persist(order)
	e.publish(core.OrderEvent{Type: core.EventWithdrawn, Order: *order, Holder: holder, Amount: share})
	e.log.WithFields(map[string]any{"market": market.ID, "holder": holder}).
		Infof("[ORDER WITHDRAWN] %s, returned %s", order, share)

	return share, nil
}

// Claim pays holder's part of an executed order's output:
// share * filledAmount / totalAmount, totalAmount being frozen at fill time.
func (e *Engine) Claim(ctx context.Context, holder core.Address, id core.OrderID) (decimal.Decimal, error) {
	defer e.reportErrors()
	e.mu.Lock()
	defer e.mu.Unlock()

	order, err := e.registry.resolve(id)
	if err != nil {
		return decimal.Zero, err
	}

	share := e.shares.BalanceOf(id, holder)
	if !share.IsPositive() {
		return decimal.Zero, fmt.Errorf("order %d, holder %s: %w", id, holder, core.ErrNoAmount)
	}
	if !order.IsFilled() {
		return decimal.Zero, fmt.Errorf("order %d: %w", id, core.ErrNotExecuted)
	}

	market, err := e.market(order.Market)
	if err != nil {
		return decimal.Zero, err
	}

	payout, _ := share.Mul(order.FilledAmount).QuoRem(order.TotalAmount, 0)

	if err := e.shares.Burn(id, holder, share); err != nil {
		return decimal.Zero, fmt.Errorf("burning shares of %d: %w", id, err)
	}

	asset := order.Direction.Output(*market)
	if payout.IsPositive() {
		if err := e.exchange.Release(ctx, asset, holder, payout); err != nil {
			if merr := e.shares.Mint(id, holder, share); merr != nil {
				e.notifyError(fmt.Errorf("restoring shares of %d for %s: %w", id, holder, merr))
			}
			return decimal.Zero, fmt.Errorf("releasing %s %s: %w", payout, asset, err)
		}
	}

	e.publish(core.OrderEvent{Type: core.EventClaimed, Order: *order, Holder: holder, Amount: payout})
	e.log.WithFields(map[string]any{"market": market.ID, "holder": holder}).
		Infof("[ORDER CLAIMED] %s, paid %s %s", order, payout, asset)

	return payout, nil
}
