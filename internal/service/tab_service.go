package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/bartab/internal/billing"
	"github.com/iliyamo/bartab/internal/model"
	"github.com/iliyamo/bartab/internal/notify"
	"github.com/iliyamo/bartab/internal/repository"
)

// tabListLimit caps GET /v1/tabs.
const tabListLimit = 50

// maxItemQuantity bounds a single order line.
const maxItemQuantity = 99

// TabService runs the tab lifecycle: opening, ordering and tipping. Money
// never changes outside a repository transaction that holds the tab lock.
type TabService struct {
	Tabs    TabStore
	Catalog CatalogStore
	Splits  SplitStore
	Events  EventPublisher
}

func NewTabService(tabs TabStore, catalog CatalogStore, splits SplitStore, events EventPublisher) *TabService {
	if tabs == nil || catalog == nil || splits == nil {
		panic("nil store passed to NewTabService")
	}
	return &TabService{Tabs: tabs, Catalog: catalog, Splits: splits, Events: events}
}

// ItemAdded is the payload of a tab:item-added event.
type ItemAdded struct {
	TabID  uint64         `json:"tabId"`
	Order  *model.Order   `json:"order"`
	Totals billing.Totals `json:"totals"`
}

// Paid is the payload of a tab:paid event.
type Paid struct {
	TabID  uint64 `json:"tabId"`
	Status string `json:"status"`
}

func (s *TabService) checkVenue(ctx context.Context, venueID uint64, tableID *uint64) error {
	if venueID == 0 {
		return invalid("venueId", "is required")
	}
	if _, err := s.Catalog.GetActive(ctx, venueID); err != nil {
		return err
	}
	if tableID != nil {
		if _, err := s.Catalog.TableByID(ctx, venueID, *tableID); err != nil {
			return err
		}
	}
	return nil
}

// Open creates a tab for an explicit open request. An existing OPEN tab at
// the venue is reported as *TabAlreadyOpenError carrying its id.
func (s *TabService) Open(ctx context.Context, userID, venueID uint64, tableID *uint64) (*model.Tab, error) {
	if err := s.checkVenue(ctx, venueID, tableID); err != nil {
		return nil, err
	}
	t := &model.Tab{UserID: userID, VenueID: venueID, TableID: tableID}
	err := s.Tabs.Create(ctx, t)
	if errors.Is(err, repository.ErrDuplicateOpenTab) {
		existing, ferr := s.Tabs.FindOpen(ctx, userID, venueID)
		if ferr != nil {
			return nil, fmt.Errorf("find open tab after conflict: %w", ferr)
		}
		return nil, &TabAlreadyOpenError{TabID: existing.ID}
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// OpenOrReuse returns the caller's OPEN tab at the venue, creating it when
// none exists. Concurrent callers converge on one tab: the loser of the
// insert race reads the winner's row.
func (s *TabService) OpenOrReuse(ctx context.Context, userID, venueID uint64, tableID *uint64) (*model.Tab, error) {
	if err := s.checkVenue(ctx, venueID, tableID); err != nil {
		return nil, err
	}
	t, err := s.Tabs.FindOpen(ctx, userID, venueID)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, repository.ErrTabNotFound) {
		return nil, err
	}

	t = &model.Tab{UserID: userID, VenueID: venueID, TableID: tableID}
	err = s.Tabs.Create(ctx, t)
	if errors.Is(err, repository.ErrDuplicateOpenTab) {
		return s.Tabs.FindOpen(ctx, userID, venueID)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func validateLines(lines []model.OrderLine) error {
	if len(lines) == 0 {
		return invalid("items", "at least one item is required")
	}
	v := validator{}
	for i, l := range lines {
		v.check(l.MenuItemID > 0, fmt.Sprintf("items[%d].menuItemId", i), "is required")
		v.check(l.Quantity > 0 && l.Quantity <= maxItemQuantity, fmt.Sprintf("items[%d].quantity", i),
			fmt.Sprintf("must be between 1 and %d", maxItemQuantity))
	}
	return v.err()
}

// AddItems appends one order to an OPEN tab and publishes tab:item-added
// once the order is committed.
func (s *TabService) AddItems(ctx context.Context, tabID, userID uint64, lines []model.OrderLine, instructions *string) (*model.Tab, *model.Order, error) {
	if err := validateLines(lines); err != nil {
		return nil, nil, err
	}
	tab, order, err := s.Tabs.AppendOrder(ctx, tabID, userID, lines, instructions)
	if err != nil {
		return nil, nil, err
	}
	s.publish(notify.NewEvent(notify.EventItemAdded, tab.ID, ItemAdded{TabID: tab.ID, Order: order, Totals: tab.Totals}))
	return tab, order, nil
}

// OpenAndAddItems is the scan-and-order flow: reuse or open the tab at the
// venue, then append the items to it.
func (s *TabService) OpenAndAddItems(ctx context.Context, userID, venueID uint64, tableID *uint64, lines []model.OrderLine, instructions *string) (*model.Tab, *model.Order, error) {
	if err := validateLines(lines); err != nil {
		return nil, nil, err
	}
	tab, err := s.OpenOrReuse(ctx, userID, venueID, tableID)
	if err != nil {
		return nil, nil, err
	}
	return s.AddItems(ctx, tab.ID, userID, lines, instructions)
}

// SetTip replaces the tip of an OPEN tab.
func (s *TabService) SetTip(ctx context.Context, tabID, userID uint64, tip billing.Cents) (*model.Tab, error) {
	if tip < 0 {
		return nil, invalid("tip", "must not be negative")
	}
	return s.Tabs.UpdateTip(ctx, tabID, userID, tip)
}

// Get returns an owned tab in any status with its orders and splits.
func (s *TabService) Get(ctx context.Context, tabID, userID uint64) (*model.Tab, error) {
	t, err := s.Tabs.GetForUser(ctx, tabID, userID)
	if err != nil {
		return nil, err
	}
	if t.Orders, err = s.Tabs.Orders(ctx, t.ID); err != nil {
		return nil, err
	}
	if t.Splits, err = s.Splits.ListForTab(ctx, t.ID); err != nil {
		return nil, err
	}
	return t, nil
}

// Active returns the caller's newest OPEN tab with its venue and orders.
func (s *TabService) Active(ctx context.Context, userID uint64) (*model.Tab, error) {
	t, err := s.Tabs.Active(ctx, userID)
	if err != nil {
		return nil, err
	}
	if t.Orders, err = s.Tabs.Orders(ctx, t.ID); err != nil {
		return nil, err
	}
	v, err := s.Catalog.GetActive(ctx, t.VenueID)
	switch {
	case err == nil:
		t.Venue = v
	case !errors.Is(err, repository.ErrVenueNotFound):
		return nil, err
	}
	return t, nil
}

// List returns the caller's tabs newest first, optionally by status.
func (s *TabService) List(ctx context.Context, userID uint64, status string) ([]model.Tab, error) {
	switch status {
	case "", model.TabOpen, model.TabClosed:
	default:
		return nil, invalid("status", "must be OPEN or CLOSED")
	}
	return s.Tabs.ListForUser(ctx, userID, status, tabListLimit)
}

// Orders lists an owned tab's orders newest first.
func (s *TabService) Orders(ctx context.Context, tabID, userID uint64) ([]model.Order, error) {
	if _, err := s.Tabs.GetForUser(ctx, tabID, userID); err != nil {
		return nil, err
	}
	return s.Tabs.Orders(ctx, tabID)
}

func (s *TabService) publish(ev notify.Event) {
	if s.Events != nil {
		s.Events.Enqueue(ev)
	}
}
