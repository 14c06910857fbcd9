// Package ledger keeps per-order share balances: the fungible ownership a
// depositor holds over a (possibly merged) trailing order.
package ledger

import (
	"fmt"
	"sync"

	"github.com/raykavin/trailstop/pkg/core"
	"github.com/shopspring/decimal"
)

type shareKey struct {
	id     core.OrderID
	holder core.Address
}

// Memory is an in-memory core.ShareLedger
type Memory struct {
	mu       sync.RWMutex
	balances map[shareKey]decimal.Decimal
	supply   map[core.OrderID]decimal.Decimal
}

// NewMemory creates an empty ledger
func NewMemory() *Memory {
	return &Memory{
		balances: make(map[shareKey]decimal.Decimal),
		supply:   make(map[core.OrderID]decimal.Decimal),
	}
}

// Mint credits amount shares of id to holder
func (m *Memory) Mint(id core.OrderID, holder core.Address, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("ledger/mint %d: %w", id, core.ErrInvalidAmount)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := shareKey{id, holder}
	m.balances[key] = m.balances[key].Add(amount)
	m.supply[id] = m.supply[id].Add(amount)
	return nil
}

// Burn debits amount shares of id from holder
func (m *Memory) Burn(id core.OrderID, holder core.Address, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("ledger/burn %d: %w", id, core.ErrInvalidAmount)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := shareKey{id, holder}
	balance := m.balances[key]
	if balance.LessThan(amount) {
		return fmt.Errorf("ledger/burn %d: balance %s below %s: %w", id, balance, amount, core.ErrNoAmount)
	}

	if remaining := balance.Sub(amount); remaining.IsZero() {
		delete(m.balances, key)
	} else {
		m.balances[key] = remaining
	}
	m.supply[id] = m.supply[id].Sub(amount)
	return nil
}

// BalanceOf returns the shares of id held by holder
func (m *Memory) BalanceOf(id core.OrderID, holder core.Address) decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balances[shareKey{id, holder}]
}

// Supply returns the total shares minted for id and not yet burned
func (m *Memory) Supply(id core.OrderID) decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.supply[id]
}
