// Package billing holds the tab arithmetic: money in cents, tax in basis
// points, tip and total recomputation, and bill splitting. Nothing here
// touches storage; repositories call into it inside their transactions.
package billing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Cents is an amount in the smallest currency unit. It marshals to JSON as a
// decimal with two places so clients keep seeing 26.00 rather than 2600.
type Cents int64

// MaxAmount bounds any decoded amount: 10,000,000.00.
const MaxAmount Cents = 1_000_000_000

// FromFloat converts a decimal currency amount to cents, rounding half away
// from zero.
func FromFloat(v float64) Cents {
	return Cents(math.Round(v * 100))
}

// Float returns the amount as a decimal currency value.
func (c Cents) Float() float64 { return float64(c) / 100 }

func (c Cents) String() string {
	sign := ""
	n := int64(c)
	if n < 0 {
		sign = "-"
		n = -n
	}
	return fmt.Sprintf("%s%d.%02d", sign, n/100, n%100)
}

func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Cents) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*c = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("billing: invalid amount %q", s)
	}
	if math.Abs(f) > MaxAmount.Float() {
		return fmt.Errorf("billing: amount %q exceeds %s", s, MaxAmount)
	}
	*c = FromFloat(f)
	return nil
}

// Rate is a tax rate in basis points of a percent: 875 means 8.75%.
type Rate int64

// RateFromFraction converts 0.0875 into 875.
func RateFromFraction(f float64) Rate {
	return Rate(math.Round(f * 10000))
}

// Fraction converts 875 into 0.0875.
func (r Rate) Fraction() float64 { return float64(r) / 10000 }

func (r Rate) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(r.Fraction(), 'f', -1, 64)), nil
}

func (r *Rate) UnmarshalJSON(b []byte) error {
	f, err := strconv.ParseFloat(strings.Trim(string(b), `"`), 64)
	if err != nil {
		return fmt.Errorf("billing: invalid rate %q", string(b))
	}
	*r = RateFromFraction(f)
	return nil
}

// divRound divides num by den rounding half away from zero. den must be > 0.
func divRound(num, den int64) int64 {
	if num >= 0 {
		return (num + den/2) / den
	}
	return -((-num + den/2) / den)
}
