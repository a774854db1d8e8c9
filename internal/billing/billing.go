package billing

import "errors"

// ErrNegativeTip is returned when a tip below zero is requested.
var ErrNegativeTip = errors.New("tip must not be negative")

// Totals is the derived money state of a tab. Total always equals
// Subtotal + Tax + Tip.
type Totals struct {
	Subtotal Cents `json:"subtotal"`
	Tax      Cents `json:"tax"`
	Tip      Cents `json:"tip"`
	Total    Cents `json:"total"`
}

// Line is a priced order line.
type Line struct {
	UnitPrice Cents
	Quantity  int
}

// Tax computes subtotal x rate, rounded once to the cent.
func Tax(subtotal Cents, rate Rate) Cents {
	return Cents(divRound(int64(subtotal)*int64(rate), 10000))
}

// Recompute derives tax and total from the exact subtotal and tip.
func Recompute(subtotal, tip Cents, rate Rate) Totals {
	tax := Tax(subtotal, rate)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Tip:      tip,
		Total:    subtotal + tax + tip,
	}
}

// AddOrder adds delta to the subtotal and recomputes tax and total. The tip
// is carried over unchanged.
func AddOrder(cur Totals, delta Cents, rate Rate) Totals {
	return Recompute(cur.Subtotal+delta, cur.Tip, rate)
}

// SetTip overwrites the tip. Subtotal and tax are unaffected.
func SetTip(cur Totals, tip Cents, rate Rate) (Totals, error) {
	if tip < 0 {
		return cur, ErrNegativeTip
	}
	return Recompute(cur.Subtotal, tip, rate), nil
}

// LineTotal is price x quantity.
func LineTotal(price Cents, qty int) Cents {
	return price * Cents(qty)
}

// OrderSubtotal sums the lines of one order.
func OrderSubtotal(lines []Line) Cents {
	var sum Cents
	for _, l := range lines {
		sum += LineTotal(l.UnitPrice, l.Quantity)
	}
	return sum
}

// TipFromPercent resolves a percentage tip against the subtotal, rounded to
// the cent. 18% of 26.00 is 4.68.
func TipFromPercent(subtotal Cents, pct float64) Cents {
	bps := int64(RateFromFraction(pct / 100))
	return Cents(divRound(int64(subtotal)*bps, 10000))
}

// Consistent reports whether t satisfies the total invariant for rate.
func Consistent(t Totals, rate Rate) bool {
	return t.Tax == Tax(t.Subtotal, rate) && t.Total == t.Subtotal+t.Tax+t.Tip
}
