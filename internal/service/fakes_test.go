package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/iliyamo/bartab/internal/billing"
	"github.com/iliyamo/bartab/internal/model"
	"github.com/iliyamo/bartab/internal/notify"
	"github.com/iliyamo/bartab/internal/repository"
)

const cozyPubRate billing.Rate = 875

// memTabStore is an in-memory TabStore with the same atomicity as the
// MySQL repository: one open tab per (user, venue) and serialized appends.
type memTabStore struct {
	mu      sync.Mutex
	nextID  uint64
	tabs    map[uint64]*model.Tab
	open    map[[2]uint64]uint64
	orders  map[uint64][]model.Order
	menu    map[uint64]model.MenuItem
	rates   map[uint64]billing.Rate
	creates int
}

func newMemTabStore() *memTabStore {
	return &memTabStore{
		tabs:   map[uint64]*model.Tab{},
		open:   map[[2]uint64]uint64{},
		orders: map[uint64][]model.Order{},
		menu: map[uint64]model.MenuItem{
			1: {ID: 1, Name: "Craft IPA", Price: 850, IsAvailable: true},
			2: {ID: 2, Name: "Truffle Fries", Price: 900, IsAvailable: true},
		},
		rates: map[uint64]billing.Rate{1: cozyPubRate},
	}
}

func (m *memTabStore) Create(_ context.Context, t *model.Tab) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]uint64{t.UserID, t.VenueID}
	if _, ok := m.open[key]; ok {
		return repository.ErrDuplicateOpenTab
	}
	m.nextID++
	m.creates++
	t.ID = m.nextID
	t.Status = model.TabOpen
	t.OpenedAt = time.Now().UTC()
	cp := *t
	m.tabs[t.ID] = &cp
	m.open[key] = t.ID
	return nil
}

func (m *memTabStore) FindOpen(_ context.Context, userID, venueID uint64) (*model.Tab, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.open[[2]uint64{userID, venueID}]
	if !ok {
		return nil, repository.ErrTabNotFound
	}
	cp := *m.tabs[id]
	return &cp, nil
}

func (m *memTabStore) GetForUser(_ context.Context, tabID, userID uint64) (*model.Tab, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tabs[tabID]
	if !ok || t.UserID != userID {
		return nil, repository.ErrTabNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTabStore) Active(_ context.Context, userID uint64) (*model.Tab, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *model.Tab
	for _, t := range m.tabs {
		if t.UserID == userID && t.IsOpen() && (best == nil || t.ID > best.ID) {
			best = t
		}
	}
	if best == nil {
		return nil, repository.ErrTabNotFound
	}
	cp := *best
	return &cp, nil
}

func (m *memTabStore) ListForUser(_ context.Context, userID uint64, status string, limit int) ([]model.Tab, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Tab{}
	for _, t := range m.tabs {
		if t.UserID == userID && (status == "" || t.Status == status) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memTabStore) Orders(_ context.Context, tabID uint64) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Order(nil), m.orders[tabID]...), nil
}

func (m *memTabStore) AppendOrder(_ context.Context, tabID, userID uint64, lines []model.OrderLine, instructions *string) (*model.Tab, *model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tabs[tabID]
	if !ok || t.UserID != userID || !t.IsOpen() {
		return nil, nil, repository.ErrTabNotFound
	}
	o := model.Order{ID: uint64(len(m.orders[tabID]) + 1), TabID: tabID, Status: model.OrderPending, SpecialInstructions: instructions}
	for _, l := range lines {
		mi, ok := m.menu[l.MenuItemID]
		if !ok || !mi.IsAvailable {
			return nil, nil, &repository.InvalidItemError{MenuItemID: l.MenuItemID}
		}
		o.Items = append(o.Items, model.OrderItem{MenuItemID: mi.ID, Name: mi.Name, Quantity: l.Quantity, UnitPrice: mi.Price, Notes: l.Notes})
	}
	t.Totals = billing.AddOrder(t.Totals, o.Subtotal(), m.rates[t.VenueID])
	m.orders[tabID] = append([]model.Order{o}, m.orders[tabID]...)
	cp := *t
	return &cp, &o, nil
}

func (m *memTabStore) UpdateTip(_ context.Context, tabID, userID uint64, tip billing.Cents) (*model.Tab, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tabs[tabID]
	if !ok || t.UserID != userID || !t.IsOpen() {
		return nil, repository.ErrTabNotFound
	}
	totals, err := billing.SetTip(t.Totals, tip, m.rates[t.VenueID])
	if err != nil {
		return nil, err
	}
	t.Totals = totals
	cp := *t
	return &cp, nil
}

func (m *memTabStore) close(tabID uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.tabs[tabID]
	t.Status = model.TabClosed
	delete(m.open, [2]uint64{t.UserID, t.VenueID})
}

// memCatalog serves one venue, The Cozy Pub, with two tables.
type memCatalog struct {
	venues []model.VenueSummary
	tables []model.Table
}

func newMemCatalog() *memCatalog {
	return &memCatalog{
		venues: []model.VenueSummary{
			{Venue: model.Venue{ID: 1, Name: "The Cozy Pub", Latitude: 37.7749, Longitude: -122.4194, TaxRate: cozyPubRate, IsActive: true}, AvgRating: 4.25, RatingCount: 4},
			{Venue: model.Venue{ID: 2, Name: "Harbor Lights", Latitude: 37.8044, Longitude: -122.2712, TaxRate: 900, IsActive: true}},
			{Venue: model.Venue{ID: 3, Name: "Desert Rose", Latitude: 36.1699, Longitude: -115.1398, TaxRate: 838, IsActive: true}},
		},
		tables: []model.Table{
			{ID: 10, VenueID: 1, Number: 1, Capacity: 2, QRCode: model.TableQRPayload(1, 1)},
			{ID: 11, VenueID: 1, Number: 2, Capacity: 4, QRCode: model.TableQRPayload(1, 2)},
		},
	}
}

func (c *memCatalog) GetActive(_ context.Context, id uint64) (*model.Venue, error) {
	for _, v := range c.venues {
		if v.ID == id {
			cp := v.Venue
			return &cp, nil
		}
	}
	return nil, repository.ErrVenueNotFound
}

func (c *memCatalog) ListActiveWithRatings(context.Context) ([]model.VenueSummary, error) {
	return append([]model.VenueSummary(nil), c.venues...), nil
}

func (c *memCatalog) Menu(ctx context.Context, venueID uint64) (*model.Menu, error) {
	v, err := c.GetActive(ctx, venueID)
	if err != nil {
		return nil, err
	}
	return &model.Menu{Venue: *v}, nil
}

func (c *memCatalog) TableByID(_ context.Context, venueID, tableID uint64) (*model.Table, error) {
	for _, t := range c.tables {
		if t.ID == tableID && t.VenueID == venueID {
			cp := t
			return &cp, nil
		}
	}
	return nil, repository.ErrTableNotFound
}

func (c *memCatalog) TableByNumber(_ context.Context, venueID uint64, number int) (*model.Table, error) {
	for _, t := range c.tables {
		if t.Number == number && t.VenueID == venueID {
			cp := t
			return &cp, nil
		}
	}
	return nil, repository.ErrTableNotFound
}

// fakeSplits runs the builder against a fixed tab total.
type fakeSplits struct {
	total billing.Cents
	paid  bool
	err   error
	saved []model.TabSplit
}

func (f *fakeSplits) ListForTab(context.Context, uint64) ([]model.TabSplit, error) {
	return f.saved, nil
}

func (f *fakeSplits) Replace(_ context.Context, tabID, _ uint64, build repository.SplitBuilder) ([]model.TabSplit, error) {
	if f.err != nil {
		return nil, f.err
	}
	splits, err := build(f.total)
	if err != nil {
		return nil, err
	}
	if f.paid {
		return nil, repository.ErrSplitPaid
	}
	for i := range splits {
		splits[i].ID = uint64(i + 1)
		splits[i].TabID = tabID
		splits[i].Total = splits[i].Amount + splits[i].Tip
	}
	f.saved = splits
	return splits, nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *eventRecorder) Enqueue(ev notify.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return true
}

func (r *eventRecorder) all() []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Event(nil), r.events...)
}

type mockPayments struct{ mock.Mock }

func (m *mockPayments) Begin(ctx context.Context, userID, tabID uint64, splitID *uint64, methodID string) (*model.Payment, error) {
	args := m.Called(ctx, userID, tabID, splitID, methodID)
	p, _ := args.Get(0).(*model.Payment)
	return p, args.Error(1)
}

func (m *mockPayments) Complete(ctx context.Context, p *model.Payment, status, txnID string, closeTab bool) (*time.Time, error) {
	args := m.Called(ctx, p, status, txnID, closeTab)
	ts, _ := args.Get(0).(*time.Time)
	if args.Error(1) == nil {
		p.Status = status
		p.ProcessorTxnID = txnID
	}
	return ts, args.Error(1)
}

func (m *mockPayments) ListForTab(ctx context.Context, tabID uint64) ([]model.Payment, error) {
	args := m.Called(ctx, tabID)
	ps, _ := args.Get(0).([]model.Payment)
	return ps, args.Error(1)
}

type mockProcessor struct{ mock.Mock }

func (m *mockProcessor) Charge(ctx context.Context, req ChargeRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type mockRatingPublisher struct{ mock.Mock }

func (m *mockRatingPublisher) PublishRatingCreated(ctx context.Context, r *model.Rating) error {
	return m.Called(ctx, r).Error(0)
}

// memRatings stores ratings in a slice.
type memRatings struct {
	list []model.Rating
}

func (m *memRatings) Create(_ context.Context, r *model.Rating) error {
	r.ID = uint64(len(m.list) + 1)
	m.list = append(m.list, *r)
	return nil
}

func (m *memRatings) ListForVenue(_ context.Context, venueID uint64, limit int) ([]model.Rating, error) {
	out := []model.Rating{}
	for i := len(m.list) - 1; i >= 0 && len(out) < limit; i-- {
		if m.list[i].VenueID == venueID {
			out = append(out, m.list[i])
		}
	}
	return out, nil
}

// memVerifications mirrors VerificationRepo.Attempt: changes made by fn
// are kept even when fn fails.
type memVerifications struct {
	mu   sync.Mutex
	rows []model.PhoneVerification
}

func (m *memVerifications) Create(_ context.Context, v *model.PhoneVerification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v.ID = uint64(len(m.rows) + 1)
	m.rows = append(m.rows, *v)
	return nil
}

func (m *memVerifications) Attempt(_ context.Context, phone string, fn func(v *model.PhoneVerification) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.rows) - 1; i >= 0; i-- {
		if m.rows[i].Phone == phone && !m.rows[i].Verified {
			return fn(&m.rows[i])
		}
	}
	return repository.ErrVerificationNotFound
}

type recordingSMS struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingSMS) Send(_ context.Context, phone, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, phone+": "+message)
	return nil
}

type memApplications struct {
	list []model.VenueApplication
}

func (m *memApplications) Create(_ context.Context, a *model.VenueApplication) error {
	for _, e := range m.list {
		if e.Email == a.Email {
			return repository.ErrApplicationExists
		}
	}
	a.ID = uint64(len(m.list) + 1)
	a.Status = model.ApplicationPending
	m.list = append(m.list, *a)
	return nil
}

func (m *memApplications) List(_ context.Context, status string, limit int) ([]model.VenueApplication, error) {
	out := []model.VenueApplication{}
	for _, a := range m.list {
		if status == "" || a.Status == status {
			out = append(out, a)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var (
	_ TabStore          = (*memTabStore)(nil)
	_ CatalogStore      = (*memCatalog)(nil)
	_ SplitStore        = (*fakeSplits)(nil)
	_ PaymentStore      = (*mockPayments)(nil)
	_ VerificationStore = (*memVerifications)(nil)
	_ RatingStore       = (*memRatings)(nil)
	_ ApplicationStore  = (*memApplications)(nil)
)
