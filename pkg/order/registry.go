package order

import (
	"fmt"

	"github.com/raykavin/trailstop/pkg/core"
)

// registry is the arena of order records. The record with id N lives at N-1;
// records are never removed so that merged and settled orders stay claimable.
type registry struct {
	orders []*core.Order
}

func newRegistry() *registry {
	return &registry{}
}

func (r *registry) lastID() core.OrderID {
	return core.OrderID(len(r.orders))
}

func (r *registry) nextID() core.OrderID {
	return r.lastID() + 1
}

// create appends a record and assigns it the next id.
func (r *registry) create(order core.Order) *core.Order {
	order.ID = r.nextID()
	r.orders = append(r.orders, &order)
	return &order
}

// put stores a record under its own id, growing the arena when needed. Used when
// restoring from storage.
func (r *registry) put(order core.Order) {
	if order.ID == 0 {
		return
	}
	for core.OrderID(len(r.orders)) < order.ID {
		r.orders = append(r.orders, nil)
	}
	r.orders[order.ID-1] = &order
}

func (r *registry) get(id core.OrderID) (*core.Order, bool) {
	if id == 0 || id > r.lastID() {
		return nil, false
	}
	order := r.orders[id-1]
	if order == nil {
		return nil, false
	}
	return order, true
}

// resolve follows MergedInto pointers to the canonical record. A chain can never
// be longer than the arena, so a longer walk means a cycle. Every record visited
// is pointed straight at the canonical id.
func (r *registry) resolve(id core.OrderID) (*core.Order, error) {
	order, ok := r.get(id)
	if !ok {
		return nil, fmt.Errorf("order %d: %w", id, core.ErrUnknownOrder)
	}

	var path []*core.Order
	for steps := 0; !order.Canonical(); steps++ {
		if steps > len(r.orders) {
			return nil, fmt.Errorf("order %d: %w", id, core.ErrMergeChain)
		}

		path = append(path, order)
		next, ok := r.get(order.MergedInto)
		if !ok {
			return nil, fmt.Errorf("order %d forwards to %d: %w", order.ID, order.MergedInto, core.ErrMergeChain)
		}
		order = next
	}

	for _, visited := range path {
		visited.MergedInto = order.ID
	}
	return order, nil
}
