package holdings

import (
	"fmt"
	"math"
)

// Percent is a percentage, 12.5 meaning 12.5%.
type Percent float64

// PercentInfinite is the change of a position that did not exist before.
var PercentInfinite = Percent(math.Inf(1))

// PercentClosed is the change of a position that was fully sold.
const PercentClosed = Percent(-100)

// IsInfinite reports whether p is the PercentInfinite sentinel.
func (p Percent) IsInfinite() bool { return math.IsInf(float64(p), 1) }

func (p Percent) Equal(q Percent) bool {
	if p.IsInfinite() || q.IsInfinite() {
		return p.IsInfinite() && q.IsInfinite()
	}
	// it has to be compared with some precision
	const precision = 0.0001
	return math.Abs(float64(p-q)) < precision
}

func (p Percent) String() string {
	if p.IsInfinite() {
		return "∞"
	}
	return fmt.Sprintf("%.2f%%", p)
}

func (p Percent) SignedString() string {
	if p.IsInfinite() {
		return "+∞"
	}
	res := fmt.Sprintf("%+.2f%%", p)
	if res == "+0.00%" || res == "-0.00%" {
		return "-"
	}
	return res
}
