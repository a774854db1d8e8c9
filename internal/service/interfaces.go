package service

import (
	"context"
	"time"

	"github.com/iliyamo/bartab/internal/billing"
	"github.com/iliyamo/bartab/internal/model"
	"github.com/iliyamo/bartab/internal/notify"
	"github.com/iliyamo/bartab/internal/repository"
)

// TabStore is the persistence the tab lifecycle needs.
type TabStore interface {
	Create(ctx context.Context, t *model.Tab) error
	FindOpen(ctx context.Context, userID, venueID uint64) (*model.Tab, error)
	GetForUser(ctx context.Context, tabID, userID uint64) (*model.Tab, error)
	Active(ctx context.Context, userID uint64) (*model.Tab, error)
	ListForUser(ctx context.Context, userID uint64, status string, limit int) ([]model.Tab, error)
	Orders(ctx context.Context, tabID uint64) ([]model.Order, error)
	AppendOrder(ctx context.Context, tabID, userID uint64, lines []model.OrderLine, instructions *string) (*model.Tab, *model.Order, error)
	UpdateTip(ctx context.Context, tabID, userID uint64, tip billing.Cents) (*model.Tab, error)
}

// CatalogStore is the read side of venues, tables and menus.
type CatalogStore interface {
	GetActive(ctx context.Context, id uint64) (*model.Venue, error)
	ListActiveWithRatings(ctx context.Context) ([]model.VenueSummary, error)
	Menu(ctx context.Context, venueID uint64) (*model.Menu, error)
	TableByID(ctx context.Context, venueID, tableID uint64) (*model.Table, error)
	TableByNumber(ctx context.Context, venueID uint64, number int) (*model.Table, error)
}

type SplitStore interface {
	ListForTab(ctx context.Context, tabID uint64) ([]model.TabSplit, error)
	Replace(ctx context.Context, tabID, userID uint64, build repository.SplitBuilder) ([]model.TabSplit, error)
}

type PaymentStore interface {
	Begin(ctx context.Context, userID, tabID uint64, splitID *uint64, methodID string) (*model.Payment, error)
	Complete(ctx context.Context, p *model.Payment, status, txnID string, closeTab bool) (*time.Time, error)
	ListForTab(ctx context.Context, tabID uint64) ([]model.Payment, error)
}

type VerificationStore interface {
	Create(ctx context.Context, v *model.PhoneVerification) error
	Attempt(ctx context.Context, phone string, fn func(v *model.PhoneVerification) error) error
}

type RatingStore interface {
	Create(ctx context.Context, r *model.Rating) error
	ListForVenue(ctx context.Context, venueID uint64, limit int) ([]model.Rating, error)
}

type ApplicationStore interface {
	Create(ctx context.Context, a *model.VenueApplication) error
	List(ctx context.Context, status string, limit int) ([]model.VenueApplication, error)
}

// EventPublisher accepts tab events for asynchronous fan-out. It must not
// block; a false return means the event was dropped.
type EventPublisher interface {
	Enqueue(ev notify.Event) bool
}

// RatingPublisher forwards new ratings to analytics.
type RatingPublisher interface {
	PublishRatingCreated(ctx context.Context, r *model.Rating) error
}

// ChargeRequest is what a payment processor needs to charge a card.
type ChargeRequest struct {
	PaymentID       uint64
	Amount          billing.Cents
	PaymentMethodID string
	Description     string
}

// PaymentProcessor charges a payment method and returns the processor's
// transaction id.
type PaymentProcessor interface {
	Charge(ctx context.Context, req ChargeRequest) (string, error)
}

type SMSSender interface {
	Send(ctx context.Context, phone, message string) error
}

// ResendThrottle reports whether key may act now, and if so starts its
// cooldown.
type ResendThrottle interface {
	Allow(ctx context.Context, key string) (bool, error)
}

var (
	_ TabStore          = (*repository.TabRepo)(nil)
	_ CatalogStore      = (*repository.VenueRepo)(nil)
	_ SplitStore        = (*repository.SplitRepo)(nil)
	_ PaymentStore      = (*repository.PaymentRepo)(nil)
	_ VerificationStore = (*repository.VerificationRepo)(nil)
	_ RatingStore       = (*repository.RatingRepo)(nil)
	_ ApplicationStore  = (*repository.ApplicationRepo)(nil)
	_ EventPublisher    = (*notify.Dispatcher)(nil)
	_ RatingPublisher   = (*notify.KafkaRatingPublisher)(nil)
)
