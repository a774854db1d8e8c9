package service

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bartab/internal/billing"
	"github.com/iliyamo/bartab/internal/model"
	"github.com/iliyamo/bartab/internal/repository"
)

func TestSplitEven_RemainderGoesToLeadingShares(t *testing.T) {
	splits := &fakeSplits{total: 4567}
	svc := NewSplitService(newMemTabStore(), splits)

	got, err := svc.SplitEven(context.Background(), 1, 7, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)

	var sum billing.Cents
	for i, want := range []billing.Cents{1523, 1522, 1522} {
		assert.Equal(t, want, got[i].Amount)
		assert.Equal(t, billing.Cents(0), got[i].Tip)
		assert.Equal(t, want, got[i].Total)
		sum += got[i].Total
	}
	assert.Equal(t, billing.Cents(4567), sum)
}

func TestSplitEven_NeedsTwoPeople(t *testing.T) {
	svc := NewSplitService(newMemTabStore(), &fakeSplits{total: 1000})
	_, err := svc.SplitEven(context.Background(), 1, 7, 1)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSplitEven_RejectsUnpayableShares(t *testing.T) {
	splits := &fakeSplits{total: 2}
	svc := NewSplitService(newMemTabStore(), splits)

	_, err := svc.SplitEven(context.Background(), 1, 7, 3)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, splits.saved)

	splits.total = 0
	_, err = svc.SplitEven(context.Background(), 1, 7, 2)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.SplitEven(context.Background(), 1, 7, math.MaxInt)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, splits.saved)
}

func TestSplitCustom(t *testing.T) {
	guest := "Sam"
	lines := []SplitLine{
		{Amount: 2000, Tip: 360},
		{GuestName: &guest, Amount: 1800, Tip: 407},
	}

	t.Run("balanced", func(t *testing.T) {
		splits := &fakeSplits{total: 4567}
		got, err := NewSplitService(newMemTabStore(), splits).SplitCustom(context.Background(), 1, 7, lines)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, billing.Cents(2360), got[0].Total)
		assert.Equal(t, &guest, got[1].GuestName)
	})

	t.Run("unbalanced", func(t *testing.T) {
		splits := &fakeSplits{total: 4568}
		_, err := NewSplitService(newMemTabStore(), splits).SplitCustom(context.Background(), 1, 7, lines)
		var ub *billing.UnbalancedError
		require.ErrorAs(t, err, &ub)
		assert.Equal(t, billing.Cents(4568), ub.Total)
		assert.Equal(t, billing.Cents(4567), ub.Shares)
		assert.Nil(t, splits.saved)
	})

	t.Run("bad lines", func(t *testing.T) {
		svc := NewSplitService(newMemTabStore(), &fakeSplits{total: 4567})
		_, err := svc.SplitCustom(context.Background(), 1, 7, nil)
		assert.ErrorIs(t, err, ErrValidation)
		_, err = svc.SplitCustom(context.Background(), 1, 7, []SplitLine{{Amount: 0, Tip: 4567}})
		assert.ErrorIs(t, err, ErrValidation)
		_, err = svc.SplitCustom(context.Background(), 1, 7, []SplitLine{{Amount: 4600, Tip: -33}})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("already paid", func(t *testing.T) {
		svc := NewSplitService(newMemTabStore(), &fakeSplits{total: 4567, paid: true})
		_, err := svc.SplitCustom(context.Background(), 1, 7, lines)
		assert.ErrorIs(t, err, repository.ErrSplitPaid)
		assert.ErrorIs(t, err, repository.ErrConflict)
	})

	t.Run("tab closed", func(t *testing.T) {
		svc := NewSplitService(newMemTabStore(), &fakeSplits{err: repository.ErrTabNotFound})
		_, err := svc.SplitCustom(context.Background(), 1, 7, lines)
		assert.ErrorIs(t, err, repository.ErrTabNotFound)
	})
}

func TestPreviewEven(t *testing.T) {
	tabs := newMemTabStore()
	ctx := context.Background()
	tab := &model.Tab{UserID: 7, VenueID: 1}
	require.NoError(t, tabs.Create(ctx, tab))
	_, _, err := tabs.AppendOrder(ctx, tab.ID, 7, []model.OrderLine{{MenuItemID: 1, Quantity: 2}, {MenuItemID: 2, Quantity: 1}}, nil)
	require.NoError(t, err)

	svc := NewSplitService(tabs, &fakeSplits{})
	shares, err := svc.PreviewEven(ctx, tab.ID, 7, 4)
	require.NoError(t, err)
	// 26.00 + 2.28 tax = 28.28
	assert.Equal(t, []billing.Cents{707, 707, 707, 707}, shares)

	_, err = svc.PreviewEven(ctx, tab.ID, 7, 0)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.PreviewEven(ctx, tab.ID, 7, math.MaxInt)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "must be between 2 and 20", verr.Fields["people"])

	_, err = svc.PreviewEven(ctx, tab.ID, 7, 3000)
	assert.ErrorIs(t, err, ErrValidation)

	tabs.close(tab.ID)
	_, err = svc.PreviewEven(ctx, tab.ID, 7, 2)
	assert.ErrorIs(t, err, repository.ErrTabNotFound)
}
