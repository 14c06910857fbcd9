// Package notification provides implementations for various notification services
package notification

import (
	"errors"
	"fmt"
	"strings"

	"github.com/raykavin/trailstop/pkg/core"
	"github.com/raykavin/trailstop/pkg/venue"
)

// OrderReader is the read side of the engine the bots answer queries from
type OrderReader interface {
	Markets() []core.Market
	Order(id core.OrderID) (core.Order, bool)
	Resolve(id core.OrderID) (core.OrderID, error)
}

// eventTitle returns the headline of an event, or "" for events not worth a
// message: rebalances and merges happen on every price move.
func eventTitle(event core.OrderEvent) string {
	switch event.Type {
	case core.EventPlaced:
		return fmt.Sprintf("🆕 ORDER PLACED - %s", event.Order.Market)
	case core.EventFilled:
		return fmt.Sprintf("✅ ORDER FILLED - %s", event.Order.Market)
	case core.EventWithdrawn:
		return fmt.Sprintf("❌ ORDER WITHDRAWN - %s", event.Order.Market)
	case core.EventClaimed:
		return fmt.Sprintf("💰 ORDER CLAIMED - %s", event.Order.Market)
	}
	return ""
}

func errorMessage(err error) string {
	var sb strings.Builder
	sb.WriteString("🛑 ERROR\n")

	var swapError *venue.SwapError
	if errors.As(err, &swapError) {
		sb.WriteString("-----\n")
		fmt.Fprintf(&sb, "Market: %s\n", swapError.Market)
		fmt.Fprintf(&sb, "Direction: %s\n", swapError.Direction)
		fmt.Fprintf(&sb, "Amount: %s\n", swapError.Amount)
	}

	sb.WriteString("-----\n")
	sb.WriteString(err.Error())
	return sb.String()
}
