package handler

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/iliyamo/bartab/internal/billing"
	"github.com/iliyamo/bartab/internal/model"
	"github.com/iliyamo/bartab/internal/repository"
)

// Every mock returns pointer/slice results through a typed getter so an
// unset return value stays nil instead of panicking.

func tabOf(args mock.Arguments, i int) *model.Tab {
	t, _ := args.Get(i).(*model.Tab)
	return t
}

type mockTabs struct{ mock.Mock }

func (m *mockTabs) Create(ctx context.Context, t *model.Tab) error {
	return m.Called(t).Error(0)
}

func (m *mockTabs) FindOpen(ctx context.Context, userID, venueID uint64) (*model.Tab, error) {
	args := m.Called(userID, venueID)
	return tabOf(args, 0), args.Error(1)
}

func (m *mockTabs) GetForUser(ctx context.Context, tabID, userID uint64) (*model.Tab, error) {
	args := m.Called(tabID, userID)
	return tabOf(args, 0), args.Error(1)
}

func (m *mockTabs) Active(ctx context.Context, userID uint64) (*model.Tab, error) {
	args := m.Called(userID)
	return tabOf(args, 0), args.Error(1)
}

func (m *mockTabs) ListForUser(ctx context.Context, userID uint64, status string, limit int) ([]model.Tab, error) {
	args := m.Called(userID, status, limit)
	tabs, _ := args.Get(0).([]model.Tab)
	return tabs, args.Error(1)
}

func (m *mockTabs) Orders(ctx context.Context, tabID uint64) ([]model.Order, error) {
	args := m.Called(tabID)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Error(1)
}

func (m *mockTabs) AppendOrder(ctx context.Context, tabID, userID uint64, lines []model.OrderLine, instructions *string) (*model.Tab, *model.Order, error) {
	args := m.Called(tabID, userID, lines, instructions)
	o, _ := args.Get(1).(*model.Order)
	return tabOf(args, 0), o, args.Error(2)
}

func (m *mockTabs) UpdateTip(ctx context.Context, tabID, userID uint64, tip billing.Cents) (*model.Tab, error) {
	args := m.Called(tabID, userID, tip)
	return tabOf(args, 0), args.Error(1)
}

type mockCatalog struct{ mock.Mock }

func (m *mockCatalog) GetActive(ctx context.Context, id uint64) (*model.Venue, error) {
	args := m.Called(id)
	v, _ := args.Get(0).(*model.Venue)
	return v, args.Error(1)
}

func (m *mockCatalog) ListActiveWithRatings(ctx context.Context) ([]model.VenueSummary, error) {
	args := m.Called()
	vs, _ := args.Get(0).([]model.VenueSummary)
	return vs, args.Error(1)
}

func (m *mockCatalog) Menu(ctx context.Context, venueID uint64) (*model.Menu, error) {
	args := m.Called(venueID)
	menu, _ := args.Get(0).(*model.Menu)
	return menu, args.Error(1)
}

func (m *mockCatalog) TableByID(ctx context.Context, venueID, tableID uint64) (*model.Table, error) {
	args := m.Called(venueID, tableID)
	t, _ := args.Get(0).(*model.Table)
	return t, args.Error(1)
}

func (m *mockCatalog) TableByNumber(ctx context.Context, venueID uint64, number int) (*model.Table, error) {
	args := m.Called(venueID, number)
	t, _ := args.Get(0).(*model.Table)
	return t, args.Error(1)
}

type mockSplits struct{ mock.Mock }

func (m *mockSplits) ListForTab(ctx context.Context, tabID uint64) ([]model.TabSplit, error) {
	args := m.Called(tabID)
	s, _ := args.Get(0).([]model.TabSplit)
	return s, args.Error(1)
}

func (m *mockSplits) Replace(ctx context.Context, tabID, userID uint64, build repository.SplitBuilder) ([]model.TabSplit, error) {
	args := m.Called(tabID, userID)
	total, _ := args.Get(0).(billing.Cents)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	return build(total)
}

type mockPayments struct{ mock.Mock }

func (m *mockPayments) Begin(ctx context.Context, userID, tabID uint64, splitID *uint64, methodID string) (*model.Payment, error) {
	args := m.Called(userID, tabID, splitID, methodID)
	p, _ := args.Get(0).(*model.Payment)
	return p, args.Error(1)
}

func (m *mockPayments) Complete(ctx context.Context, p *model.Payment, status, txnID string, closeTab bool) (*time.Time, error) {
	args := m.Called(p.ID, status, closeTab)
	p.Status = status
	p.ProcessorTxnID = txnID
	at, _ := args.Get(0).(*time.Time)
	return at, args.Error(1)
}

func (m *mockPayments) ListForTab(ctx context.Context, tabID uint64) ([]model.Payment, error) {
	args := m.Called(tabID)
	ps, _ := args.Get(0).([]model.Payment)
	return ps, args.Error(1)
}

type mockUsers struct{ mock.Mock }

func (m *mockUsers) Create(ctx context.Context, email, password, role string, cost int) (uint64, error) {
	args := m.Called(email, password, role)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockUsers) GetByEmail(ctx context.Context, email string) (model.User, error) {
	args := m.Called(email)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *mockUsers) GetByID(ctx context.Context, id uint64) (model.User, error) {
	args := m.Called(id)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *mockUsers) UpdateProfile(ctx context.Context, id uint64, upd model.ProfileUpdate) (model.User, error) {
	args := m.Called(id, upd)
	return args.Get(0).(model.User), args.Error(1)
}

type mockTokens struct{ mock.Mock }

func (m *mockTokens) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	return m.Called(userID, tokenHash).Error(0)
}

func (m *mockTokens) Rotate(ctx context.Context, oldHash, newHash string, exp time.Time) (uint64, error) {
	args := m.Called(oldHash, newHash)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockTokens) RevokeByHash(ctx context.Context, tokenHash string) error {
	return m.Called(tokenHash).Error(0)
}

func (m *mockTokens) RevokeAllForUser(ctx context.Context, userID uint64) error {
	return m.Called(userID).Error(0)
}

// blockThrottle refuses every resend.
type blockThrottle struct{}

func (blockThrottle) Allow(context.Context, string) (bool, error) { return false, nil }

type nopSMS struct{}

func (nopSMS) Send(context.Context, string, string) error { return nil }
