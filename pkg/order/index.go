package order

import (
	"github.com/raykavin/trailstop/pkg/core"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// bucketKey groups the orders sharing market, trailing distance and side.
type bucketKey struct {
	market     core.MarketID
	percentage core.Percentage
	direction  core.Direction
}

// tickKey groups the orders that trigger at the same tick on the same side.
type tickKey struct {
	market    core.MarketID
	tick      int64
	direction core.Direction
}

// tickEntry holds the ids indexed at a tick in insertion order and the sum of
// their pending amounts.
type tickEntry struct {
	ids     []core.OrderID
	pending decimal.Decimal
}

// index holds the two views over the active canonical orders.
type index struct {
	buckets map[bucketKey][]core.OrderID
	ticks   map[tickKey]*tickEntry
}

func newIndex() *index {
	return &index{
		buckets: make(map[bucketKey][]core.OrderID),
		ticks:   make(map[tickKey]*tickEntry),
	}
}

// bucket returns a copy of the ids in the bucket, safe to iterate while the
// bucket is modified.
func (x *index) bucket(key bucketKey) []core.OrderID {
	return append([]core.OrderID(nil), x.buckets[key]...)
}

func (x *index) addToBucket(key bucketKey, id core.OrderID) {
	if !lo.Contains(x.buckets[key], id) {
		x.buckets[key] = append(x.buckets[key], id)
	}
}

func (x *index) removeFromBucket(key bucketKey, id core.OrderID) {
	ids := lo.Without(x.buckets[key], id)
	if len(ids) == 0 {
		delete(x.buckets, key)
		return
	}
	x.buckets[key] = ids
}

func (x *index) tick(key tickKey) (*tickEntry, bool) {
	entry, ok := x.ticks[key]
	return entry, ok
}

func (x *index) entry(key tickKey) *tickEntry {
	entry, ok := x.ticks[key]
	if !ok {
		entry = &tickEntry{}
		x.ticks[key] = entry
	}
	return entry
}

// addToTick indexes id at the tick, when not already there, and adds amount to
// the tick's pending aggregate.
func (x *index) addToTick(key tickKey, id core.OrderID, amount decimal.Decimal) {
	entry := x.entry(key)
	if !lo.Contains(entry.ids, id) {
		entry.ids = append(entry.ids, id)
	}
	entry.pending = entry.pending.Add(amount)
}

// addPending credits the aggregate without touching the id list.
func (x *index) addPending(key tickKey, amount decimal.Decimal) {
	entry := x.entry(key)
	entry.pending = entry.pending.Add(amount)
}

// subPending debits the aggregate without touching the id list.
func (x *index) subPending(key tickKey, amount decimal.Decimal) {
	entry := x.entry(key)
	entry.pending = entry.pending.Sub(amount)
	x.compact(key, entry)
}

// removeFromTick unindexes id and debits amount from the aggregate.
func (x *index) removeFromTick(key tickKey, id core.OrderID, amount decimal.Decimal) {
	entry, ok := x.ticks[key]
	if !ok {
		return
	}
	entry.ids = lo.Without(entry.ids, id)
	entry.pending = entry.pending.Sub(amount)
	x.compact(key, entry)
}

// clearTick removes and returns the whole entry of a tick.
func (x *index) clearTick(key tickKey) *tickEntry {
	entry, ok := x.ticks[key]
	if !ok {
		return &tickEntry{}
	}
	delete(x.ticks, key)
	return entry
}

func (x *index) compact(key tickKey, entry *tickEntry) {
	if len(entry.ids) == 0 && entry.pending.IsZero() {
		delete(x.ticks, key)
	}
}
