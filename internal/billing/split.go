package billing

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPeople is returned for an even split outside 2..MaxPeople.
	ErrInvalidPeople = errors.New("even split needs between 2 and 20 people")
	// ErrTotalTooSmall is returned when an even split would leave a share
	// of zero cents.
	ErrTotalTooSmall = errors.New("total is too small to split between that many people")
	// ErrNoShares is returned for an empty custom split.
	ErrNoShares = errors.New("at least one split is required")
	// ErrUnbalanced is returned when custom shares do not add up to the tab total.
	ErrUnbalanced = errors.New("split amounts must equal tab total")
	// ErrInvalidShare is returned for a share with a non-positive amount.
	ErrInvalidShare = errors.New("split amount must be positive")
)

// Share is one custom split line before persistence.
type Share struct {
	Amount Cents
	Tip    Cents
}

// Total is amount + tip.
func (s Share) Total() Cents { return s.Amount + s.Tip }

// UnbalancedError carries the difference between the shares and the tab.
type UnbalancedError struct {
	Total  Cents
	Shares Cents
}

func (e *UnbalancedError) Error() string {
	return fmt.Sprintf("split amounts must equal tab total: shares %s, total %s", e.Shares, e.Total)
}

func (e *UnbalancedError) Unwrap() error { return ErrUnbalanced }

// MaxPeople bounds an even split; it is the largest party a table seats.
const MaxPeople = 20

// EvenSplit divides total into n shares, each at least one cent. The remainder cents go to the
// leading shares one each, so 45.67 / 3 is [15.23 15.22 15.22].
func EvenSplit(total Cents, n int) ([]Cents, error) {
	if n < 2 || n > MaxPeople {
		return nil, ErrInvalidPeople
	}
	if total < 0 {
		return nil, fmt.Errorf("billing: negative total %s", total)
	}
	if total < Cents(n) {
		return nil, ErrTotalTooSmall
	}
	base := total / Cents(n)
	rem := int(total % Cents(n))
	out := make([]Cents, n)
	for i := range out {
		out[i] = base
		if i < rem {
			out[i]++
		}
	}
	return out, nil
}

// ValidateCustom checks that every share is positive with a non-negative tip
// and that amount+tip over all shares equals total to the cent.
func ValidateCustom(total Cents, shares []Share) error {
	if len(shares) == 0 {
		return ErrNoShares
	}
	var sum Cents
	for i, s := range shares {
		if s.Amount <= 0 {
			return fmt.Errorf("split %d: %w", i, ErrInvalidShare)
		}
		if s.Tip < 0 {
			return fmt.Errorf("split %d: %w", i, ErrNegativeTip)
		}
		sum += s.Total()
	}
	if sum != total {
		return &UnbalancedError{Total: total, Shares: sum}
	}
	return nil
}
