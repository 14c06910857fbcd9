package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EventType describes what happened to an order
type EventType string

const (
	EventPlaced     EventType = "PLACED"
	EventMerged     EventType = "MERGED"
	EventRebalanced EventType = "REBALANCED"
	EventFilled     EventType = "FILLED"
	EventWithdrawn  EventType = "WITHDRAWN"
	EventClaimed    EventType = "CLAIMED"
)

// OrderEvent is published by the engine after every state change of an order.
// Holder and Amount are set for depositor operations; Amount is the swap input
// for fills and AmountOut the output credited to the order.
type OrderEvent struct {
	Type      EventType
	Order     Order
	Holder    Address
	Amount    decimal.Decimal
	AmountOut decimal.Decimal
	Time      time.Time
}

func (e OrderEvent) String() string {
	switch e.Type {
	case EventPlaced, EventWithdrawn, EventClaimed:
		return fmt.Sprintf("[ORDER %s] %s | holder: %s, amount: %s", e.Type, e.Order, e.Holder, e.Amount)
	case EventFilled:
		return fmt.Sprintf("[ORDER %s] %s | in: %s, out: %s", e.Type, e.Order, e.Amount, e.AmountOut)
	default:
		return fmt.Sprintf("[ORDER %s] %s", e.Type, e.Order)
	}
}

// OrderSubscriber receives order events from the feed
type OrderSubscriber interface {
	OnOrder(event OrderEvent)
}
