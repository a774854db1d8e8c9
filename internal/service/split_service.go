package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/bartab/internal/billing"
	"github.com/iliyamo/bartab/internal/model"
	"github.com/iliyamo/bartab/internal/repository"
)

// SplitService divides an OPEN tab into payable shares.
type SplitService struct {
	Tabs   TabStore
	Splits SplitStore
}

func NewSplitService(tabs TabStore, splits SplitStore) *SplitService {
	return &SplitService{Tabs: tabs, Splits: splits}
}

// SplitLine is one requested custom share.
type SplitLine struct {
	UserID    *uint64       `json:"userId,omitempty"`
	GuestName *string       `json:"guestName,omitempty"`
	Amount    billing.Cents `json:"amount"`
	Tip       billing.Cents `json:"tip"`
}

// PreviewEven computes the even shares of an owned OPEN tab without
// persisting anything.
func (s *SplitService) PreviewEven(ctx context.Context, tabID, userID uint64, people int) ([]billing.Cents, error) {
	if err := checkPeople(people); err != nil {
		return nil, err
	}
	t, err := s.Tabs.GetForUser(ctx, tabID, userID)
	if err != nil {
		return nil, err
	}
	if !t.IsOpen() {
		return nil, repository.ErrTabNotFound
	}
	shares, err := billing.EvenSplit(t.Total, people)
	if err != nil {
		return nil, splitErr(err)
	}
	return shares, nil
}

// SplitEven replaces the tab's splits with people even shares, tip 0.
func (s *SplitService) SplitEven(ctx context.Context, tabID, userID uint64, people int) ([]model.TabSplit, error) {
	if err := checkPeople(people); err != nil {
		return nil, err
	}
	splits, err := s.Splits.Replace(ctx, tabID, userID, func(total billing.Cents) ([]model.TabSplit, error) {
		shares, err := billing.EvenSplit(total, people)
		if err != nil {
			return nil, err
		}
		out := make([]model.TabSplit, len(shares))
		for i, amt := range shares {
			out[i] = model.TabSplit{Amount: amt}
		}
		return out, nil
	})
	return splits, splitErr(err)
}

// SplitCustom replaces the tab's splits with the given lines, which must
// add up to the tab total to the cent.
func (s *SplitService) SplitCustom(ctx context.Context, tabID, userID uint64, lines []SplitLine) ([]model.TabSplit, error) {
	if len(lines) == 0 {
		return nil, invalid("splits", "at least one split is required")
	}
	v := validator{}
	for i, l := range lines {
		v.check(l.Amount > 0, fmt.Sprintf("splits[%d].amount", i), "must be greater than zero")
		v.check(l.Tip >= 0, fmt.Sprintf("splits[%d].tip", i), "must not be negative")
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	splits, err := s.Splits.Replace(ctx, tabID, userID, func(total billing.Cents) ([]model.TabSplit, error) {
		shares := make([]billing.Share, len(lines))
		for i, l := range lines {
			shares[i] = billing.Share{Amount: l.Amount, Tip: l.Tip}
		}
		if err := billing.ValidateCustom(total, shares); err != nil {
			return nil, err
		}
		out := make([]model.TabSplit, len(lines))
		for i, l := range lines {
			out[i] = model.TabSplit{UserID: l.UserID, GuestName: l.GuestName, Amount: l.Amount, Tip: l.Tip}
		}
		return out, nil
	})
	return splits, splitErr(err)
}

// List returns an owned tab's splits.
func (s *SplitService) List(ctx context.Context, tabID, userID uint64) ([]model.TabSplit, error) {
	if _, err := s.Tabs.GetForUser(ctx, tabID, userID); err != nil {
		return nil, err
	}
	return s.Splits.ListForTab(ctx, tabID)
}

func checkPeople(people int) error {
	if people < 2 || people > billing.MaxPeople {
		return invalid("people", fmt.Sprintf("must be between 2 and %d", billing.MaxPeople))
	}
	return nil
}

// splitErr turns billing input errors into validation errors. Unbalanced
// shares pass through so callers can report the difference.
func splitErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, billing.ErrInvalidPeople):
		return checkPeople(0)
	case errors.Is(err, billing.ErrTotalTooSmall):
		return invalid("people", "the tab total is too small to split that many ways")
	case errors.Is(err, billing.ErrNoShares):
		return invalid("splits", "at least one split is required")
	case errors.Is(err, billing.ErrInvalidShare), errors.Is(err, billing.ErrNegativeTip):
		return invalid("splits", err.Error())
	}
	return err
}
