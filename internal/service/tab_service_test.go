package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bartab/internal/billing"
	"github.com/iliyamo/bartab/internal/model"
	"github.com/iliyamo/bartab/internal/notify"
	"github.com/iliyamo/bartab/internal/repository"
)

func newTabFixture() (*TabService, *memTabStore, *eventRecorder) {
	store := newMemTabStore()
	events := &eventRecorder{}
	return NewTabService(store, newMemCatalog(), &fakeSplits{}, events), store, events
}

func TestOpenOrReuse_ConcurrentCallersShareOneTab(t *testing.T) {
	svc, store, _ := newTabFixture()
	ctx := context.Background()

	const callers = 32
	ids := make([]uint64, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tab, err := svc.OpenOrReuse(ctx, 7, 1, nil)
			if assert.NoError(t, err) {
				ids[i] = tab.ID
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, store.creates)
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestOpenOrReuse_NewTabAfterClose(t *testing.T) {
	svc, store, _ := newTabFixture()
	ctx := context.Background()

	first, err := svc.OpenOrReuse(ctx, 7, 1, nil)
	require.NoError(t, err)
	store.close(first.ID)

	second, err := svc.OpenOrReuse(ctx, 7, 1, nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestOpenOrReuse_RejectsUnknownVenueAndForeignTable(t *testing.T) {
	svc, _, _ := newTabFixture()
	ctx := context.Background()

	_, err := svc.OpenOrReuse(ctx, 7, 99, nil)
	assert.ErrorIs(t, err, repository.ErrVenueNotFound)

	foreign := uint64(10)
	_, err = svc.OpenOrReuse(ctx, 7, 2, &foreign)
	assert.ErrorIs(t, err, repository.ErrTableNotFound)

	_, err = svc.OpenOrReuse(ctx, 7, 0, nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestOpen_ExistingTabCarriesItsID(t *testing.T) {
	svc, _, _ := newTabFixture()
	ctx := context.Background()

	table := uint64(11)
	tab, err := svc.Open(ctx, 7, 1, &table)
	require.NoError(t, err)
	assert.Equal(t, model.TabOpen, tab.Status)
	assert.Equal(t, &table, tab.TableID)

	_, err = svc.Open(ctx, 7, 1, nil)
	var open *TabAlreadyOpenError
	require.ErrorAs(t, err, &open)
	assert.Equal(t, tab.ID, open.TabID)
	assert.ErrorIs(t, err, repository.ErrDuplicateOpenTab)
}

func TestAddItems_ConcurrentOrdersLoseNoUpdate(t *testing.T) {
	svc, _, events := newTabFixture()
	ctx := context.Background()
	tab, err := svc.OpenOrReuse(ctx, 7, 1, nil)
	require.NoError(t, err)

	const orders = 40
	var wg sync.WaitGroup
	for i := 0; i < orders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.AddItems(ctx, tab.ID, 7, []model.OrderLine{{MenuItemID: 1, Quantity: 1}}, nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := svc.Get(ctx, tab.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, billing.Cents(orders*850), got.Subtotal)
	assert.Equal(t, billing.Tax(got.Subtotal, cozyPubRate), got.Tax)
	assert.True(t, billing.Consistent(got.Totals, cozyPubRate))
	assert.Len(t, got.Orders, orders)
	assert.Len(t, events.all(), orders)
}

func TestOpenAndAddItems_CozyPubScenario(t *testing.T) {
	svc, _, events := newTabFixture()
	ctx := context.Background()

	tab, order, err := svc.OpenAndAddItems(ctx, 7, 1, nil, []model.OrderLine{
		{MenuItemID: 1, Quantity: 2},
		{MenuItemID: 2, Quantity: 1},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, billing.Cents(2600), order.Subtotal())
	assert.Equal(t, billing.Cents(2600), tab.Subtotal)
	assert.Equal(t, billing.Cents(228), tab.Tax)

	tab, err = svc.SetTip(ctx, tab.ID, 7, billing.TipFromPercent(tab.Subtotal, 18))
	require.NoError(t, err)
	assert.Equal(t, billing.Totals{Subtotal: 2600, Tax: 228, Tip: 468, Total: 3296}, tab.Totals)

	evs := events.all()
	require.Len(t, evs, 1)
	assert.Equal(t, notify.EventItemAdded, evs[0].Type)
	assert.Equal(t, notify.TabTopic(tab.ID), evs[0].Topic())
	payload, ok := evs[0].Payload.(ItemAdded)
	require.True(t, ok)
	assert.Equal(t, order.ID, payload.Order.ID)
}

func TestAddItems_Rejections(t *testing.T) {
	svc, store, events := newTabFixture()
	ctx := context.Background()
	tab, err := svc.OpenOrReuse(ctx, 7, 1, nil)
	require.NoError(t, err)

	cases := map[string]struct {
		tabID, userID uint64
		lines         []model.OrderLine
		want          error
	}{
		"no items":       {tab.ID, 7, nil, ErrValidation},
		"zero quantity":  {tab.ID, 7, []model.OrderLine{{MenuItemID: 1, Quantity: 0}}, ErrValidation},
		"huge quantity":  {tab.ID, 7, []model.OrderLine{{MenuItemID: 1, Quantity: 1000}}, ErrValidation},
		"unknown item":   {tab.ID, 7, []model.OrderLine{{MenuItemID: 42, Quantity: 1}}, repository.ErrInvalidItem},
		"someone else's": {tab.ID, 8, []model.OrderLine{{MenuItemID: 1, Quantity: 1}}, repository.ErrTabNotFound},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := svc.AddItems(ctx, tc.tabID, tc.userID, tc.lines, nil)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	store.close(tab.ID)
	_, _, err = svc.AddItems(ctx, tab.ID, 7, []model.OrderLine{{MenuItemID: 1, Quantity: 1}}, nil)
	assert.ErrorIs(t, err, repository.ErrTabNotFound)

	assert.Empty(t, events.all(), "failed appends must not publish")
}

func TestSetTip_NegativeAndClosed(t *testing.T) {
	svc, store, _ := newTabFixture()
	ctx := context.Background()
	tab, err := svc.OpenOrReuse(ctx, 7, 1, nil)
	require.NoError(t, err)

	_, err = svc.SetTip(ctx, tab.ID, 7, -1)
	assert.ErrorIs(t, err, ErrValidation)

	store.close(tab.ID)
	_, err = svc.SetTip(ctx, tab.ID, 7, 100)
	assert.ErrorIs(t, err, repository.ErrTabNotFound)
}

func TestListAndActive(t *testing.T) {
	svc, store, _ := newTabFixture()
	ctx := context.Background()

	_, err := svc.Active(ctx, 7)
	assert.ErrorIs(t, err, repository.ErrTabNotFound)

	first, err := svc.OpenOrReuse(ctx, 7, 1, nil)
	require.NoError(t, err)
	store.close(first.ID)
	second, err := svc.OpenOrReuse(ctx, 7, 2, nil)
	require.NoError(t, err)

	active, err := svc.Active(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)
	require.NotNil(t, active.Venue)
	assert.Equal(t, "Harbor Lights", active.Venue.Name)

	closed, err := svc.List(ctx, 7, model.TabClosed)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, first.ID, closed[0].ID)

	all, err := svc.List(ctx, 7, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.List(ctx, 7, "PAID")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Orders(ctx, first.ID, 8)
	assert.ErrorIs(t, err, repository.ErrTabNotFound)
}
