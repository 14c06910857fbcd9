// Package tick converts trailing percentages into venue ticks and walks the
// tick ranges crossed by a trade.
package tick

import "github.com/raykavin/trailstop/pkg/core"

const (
	// Spacing is the only tick granularity the engine services.
	Spacing int64 = 50
	// PerPoint is the number of ticks in one percentage point of price movement.
	PerPoint int64 = 100
)

// FromPercentage returns the trailing distance of p in ticks.
func FromPercentage(p core.Percentage) int64 {
	return p.Points() * PerPoint
}

// Floor aligns t down to a multiple of spacing.
func Floor(t, spacing int64) int64 {
	q := t / spacing
	if t%spacing != 0 && t < 0 {
		q--
	}
	return q * spacing
}

// Ceil aligns t up to a multiple of spacing.
func Ceil(t, spacing int64) int64 {
	q := t / spacing
	if t%spacing != 0 && t > 0 {
		q++
	}
	return q * spacing
}

// Reference returns the bucket a raw venue tick belongs to.
func Reference(t int64) int64 {
	return Floor(t, Spacing)
}

// Trigger returns the tick an order of the given direction and percentage executes
// at when the market reference is ref. ZeroForOne orders wait above the reference,
// OneForZero orders below it.
func Trigger(ref int64, p core.Percentage, d core.Direction) int64 {
	if d == core.ZeroForOne {
		return ref + FromPercentage(p)
	}
	return ref - FromPercentage(p)
}

// RepeggedSide returns the side whose triggers trail a move from one reference to
// another: a rising price lifts the OneForZero triggers, a falling price lowers the
// ZeroForOne ones.
func RepeggedSide(from, to int64) core.Direction {
	if to > from {
		return core.OneForZero
	}
	return core.ZeroForOne
}

// Crossed returns the aligned ticks passed by a move from the tracked reference
// to the raw tick current, in the order they were passed. The start is excluded
// and the last boundary actually reached is included.
func Crossed(from, current, spacing int64) []int64 {
	var ticks []int64
	switch {
	case current > from:
		for t := from + spacing; t <= Floor(current, spacing); t += spacing {
			ticks = append(ticks, t)
		}
	case current < from:
		for t := from - spacing; t >= Ceil(current, spacing); t -= spacing {
			ticks = append(ticks, t)
		}
	}
	return ticks
}
