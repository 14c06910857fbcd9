package core

import "fmt"

// Percentage is a trailing distance in parts per million (10_000 = 1%).
type Percentage uint32

const (
	PercentageUnit Percentage = 10_000
	MinPercentage             = PercentageUnit
	MaxPercentage             = 10 * PercentageUnit
)

// Percentages is the fixed set an order may trail by, 1% to 10% in 1% steps.
var Percentages = func() []Percentage {
	out := make([]Percentage, 0, MaxPercentage/PercentageUnit)
	for p := MinPercentage; p <= MaxPercentage; p += PercentageUnit {
		out = append(out, p)
	}
	return out
}()

// Valid reports whether p belongs to the supported set.
func (p Percentage) Valid() bool {
	return p >= MinPercentage && p <= MaxPercentage && p%PercentageUnit == 0
}

// Points returns the number of whole percentage points.
func (p Percentage) Points() int64 {
	return int64(p / PercentageUnit)
}

func (p Percentage) String() string {
	return fmt.Sprintf("%d%%", p.Points())
}
