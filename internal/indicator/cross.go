package indicator

// Cross - направление пересечения двух рядов на свече i.
type Cross int

const (
	NoCross Cross = iota
	CrossUp
	CrossDown
)

func (c Cross) String() string {
	switch c {
	case CrossUp:
		return "UP"
	case CrossDown:
		return "DOWN"
	default:
		return ""
	}
}

// CrossRule задаёт, какая сторона сравнения строгая.
type CrossRule int

const (
	// Reach: prev strictly on one side, current on the other side or equal.
	Reach CrossRule = iota
	// Break: prev on one side or equal, current strictly on the other side.
	Break
)

// CrossAt сравнивает a и b на свечах i-1 и i.
// Undefined values or an out-of-range index yield NoCross.
func CrossAt(a, b []float64, i int, rule CrossRule) Cross {
	if i <= 0 || i >= len(a) || i >= len(b) {
		return NoCross
	}
	return cross(a[i-1], b[i-1], a[i], b[i], rule)
}

// CrossLevelAt - то же, что CrossAt, но против константного уровня.
func CrossLevelAt(a []float64, level float64, i int, rule CrossRule) Cross {
	if i <= 0 || i >= len(a) {
		return NoCross
	}
	return cross(a[i-1], level, a[i], level, rule)
}

func cross(prevA, prevB, currA, currB float64, rule CrossRule) Cross {
	if !Defined(prevA) || !Defined(prevB) || !Defined(currA) || !Defined(currB) {
		return NoCross
	}
	switch rule {
	case Break:
		if prevA <= prevB && currA > currB {
			return CrossUp
		}
		if prevA >= prevB && currA < currB {
			return CrossDown
		}
	default:
		if prevA < prevB && currA >= currB {
			return CrossUp
		}
		if prevA > prevB && currA <= currB {
			return CrossDown
		}
	}
	return NoCross
}
