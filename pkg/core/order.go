package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderID identifies an order record. Zero means "no order".
type OrderID uint64

// OrderFilter defines a function type for filtering orders
type OrderFilter func(order Order) bool

// OrderStatusType represents the lifecycle state of a trailing order
type OrderStatusType string

// Order status constants
const (
	OrderStatusTypeActive    OrderStatusType = "ACTIVE"
	OrderStatusTypeFilled    OrderStatusType = "FILLED"
	OrderStatusTypeWithdrawn OrderStatusType = "WITHDRAWN"
)

// Order is one trailing-stop record. Merged records keep existing with MergedInto
// pointing at their successor so that holders of their shares can still be served.
type Order struct {
	ID           OrderID         `json:"id" gorm:"primaryKey"`
	Market       MarketID        `json:"market" gorm:"index"`
	Direction    Direction       `json:"direction"`
	Percentage   Percentage      `json:"percentage"`
	TriggerTick  int64           `json:"trigger_tick"`
	TotalAmount  decimal.Decimal `json:"total_amount" gorm:"type:text"`
	FilledAmount decimal.Decimal `json:"filled_amount" gorm:"type:text"`
	MergedInto   OrderID         `json:"merged_into"`
	Status       OrderStatusType `json:"status" gorm:"index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Canonical reports whether the order has not been forwarded into another one.
func (o Order) Canonical() bool {
	return o.MergedInto == 0 || o.MergedInto == o.ID
}

// IsActive returns true while the order is waiting for its trigger
func (o Order) IsActive() bool {
	return o.Status == OrderStatusTypeActive
}

// IsFilled returns true once the order was executed
func (o Order) IsFilled() bool {
	return o.Status == OrderStatusTypeFilled
}

// Indexed reports whether the order must be present in the bucket and tick indices.
func (o Order) Indexed() bool {
	return o.Canonical() && o.IsActive() && o.TotalAmount.IsPositive()
}

func (o Order) String() string {
	if !o.Canonical() {
		return fmt.Sprintf("[MERGED] %s | ID: %d -> %d", o.Market, o.ID, o.MergedInto)
	}
	return fmt.Sprintf("[%s] %s %s %s | ID: %d, Trigger: %d, Total: %s, Filled: %s",
		o.Status, o.Market, o.Direction, o.Percentage, o.ID, o.TriggerTick,
		o.TotalAmount, o.FilledAmount)
}

// WithStatus filters orders by status
func WithStatus(status OrderStatusType) OrderFilter {
	return func(order Order) bool {
		return order.Status == status
	}
}

// WithMarket filters orders by market
func WithMarket(market MarketID) OrderFilter {
	return func(order Order) bool {
		return order.Market == market
	}
}

// WithCanonical keeps only orders that were not merged away
func WithCanonical() OrderFilter {
	return func(order Order) bool {
		return order.Canonical()
	}
}
