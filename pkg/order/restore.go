package order

import (
	"errors"
	"fmt"
)

var errNoStorage = errors.New("engine has no storage")

// Restore rebuilds markets, records and indices from storage. It must run on a
// fresh engine, before any market is initialized.
func (e *Engine) Restore() error {
	if e.storage == nil {
		return errNoStorage
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	markets, err := e.storage.Markets()
	if err != nil {
		return fmt.Errorf("restore: loading markets: %w", err)
	}

	orders, err := e.storage.Orders()
	if err != nil {
		return fmt.Errorf("restore: loading orders: %w", err)
	}

	for i := range markets {
		market := markets[i]
		e.markets[market.ID] = &market
	}

	for _, order := range orders {
		e.registry.put(order)
	}

	indexed := 0
	for _, order := range orders {
		if !order.Indexed() {
			continue
		}
		if _, ok := e.markets[order.Market]; !ok {
			return fmt.Errorf("restore: order %d: market %s missing", order.ID, order.Market)
		}

		e.index.addToBucket(bucketKey{order.Market, order.Percentage, order.Direction}, order.ID)
		e.index.addToTick(tickKey{order.Market, order.TriggerTick, order.Direction}, order.ID, order.TotalAmount)
		indexed++
	}

	e.log.Infof("[RESTORED] %d markets, %d orders, %d active", len(markets), len(orders), indexed)
	return nil
}
