package core

// Direction is the swap an order performs when it is triggered.
type Direction uint8

const (
	// ZeroForOne deposits token0 and receives token1. Its trigger sits above the
	// reference tick and is crossed by trades that push the price up.
	ZeroForOne Direction = iota
	// OneForZero deposits token1 and receives token0. Its trigger sits below the
	// reference tick and is crossed by trades that push the price down.
	OneForZero
)

// Directions lists both sides in index order.
var Directions = []Direction{ZeroForOne, OneForZero}

func (d Direction) String() string {
	if d == ZeroForOne {
		return "ZERO_FOR_ONE"
	}
	return "ONE_FOR_ZERO"
}

// Opposite returns the other side.
func (d Direction) Opposite() Direction {
	if d == ZeroForOne {
		return OneForZero
	}
	return ZeroForOne
}

// Input returns the asset deposited by an order of this direction.
func (d Direction) Input(m Market) Asset {
	if d == ZeroForOne {
		return m.Token0
	}
	return m.Token1
}

// Output returns the asset an order of this direction receives once filled.
func (d Direction) Output(m Market) Asset {
	if d == ZeroForOne {
		return m.Token1
	}
	return m.Token0
}

// ParseDirection accepts the String form and the short aliases used in config files.
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "ZERO_FOR_ONE", "zero_for_one", "0for1", "sell0":
		return ZeroForOne, true
	case "ONE_FOR_ZERO", "one_for_zero", "1for0", "sell1":
		return OneForZero, true
	}
	return 0, false
}
