package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/iliyamo/bartab/internal/model"
)

const applicationListLimit = 100

// ApplicationService handles venue sign-up leads.
type ApplicationService struct {
	Store ApplicationStore
	Now   func() time.Time
}

func NewApplicationService(store ApplicationStore) *ApplicationService {
	return &ApplicationService{Store: store, Now: func() time.Time { return time.Now().UTC().Truncate(time.Second) }}
}

// Submit validates and stores an application as PENDING.
func (s *ApplicationService) Submit(ctx context.Context, a *model.VenueApplication) error {
	for _, f := range []*string{&a.BusinessName, &a.ManagerName, &a.Email, &a.Phone, &a.Address,
		&a.City, &a.State, &a.ZipCode, &a.POSSystem} {
		*f = strings.TrimSpace(*f)
	}
	a.EstimatedVolume = trimmed(a.EstimatedVolume)
	a.Notes = trimmed(a.Notes)

	v := validator{}
	v.check(a.BusinessName != "", "businessName", "is required")
	v.check(a.ManagerName != "", "managerName", "is required")
	_, mailErr := mail.ParseAddress(a.Email)
	v.check(a.Email != "" && mailErr == nil, "email", "must be a valid email address")
	v.check(len(a.Phone) >= 10, "phone", "must have at least 10 characters")
	v.check(a.Address != "", "address", "is required")
	v.check(a.City != "", "city", "is required")
	v.check(a.State != "", "state", "is required")
	v.check(len(a.ZipCode) >= 5, "zipCode", "must have at least 5 characters")
	v.check(a.POSSystem != "", "posSystem", "is required")
	if err := v.err(); err != nil {
		return err
	}

	a.CreatedAt = s.Now()
	return s.Store.Create(ctx, a)
}

// List returns applications for the admin console.
func (s *ApplicationService) List(ctx context.Context, status string) ([]model.VenueApplication, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	switch status {
	case "", model.ApplicationPending, model.ApplicationApproved, model.ApplicationRejected:
	default:
		return nil, invalid("status", "must be PENDING, APPROVED or REJECTED")
	}
	return s.Store.List(ctx, status, applicationListLimit)
}
