package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/bartab/internal/billing"
	"github.com/iliyamo/bartab/internal/model"
)

// paidSplitExpr is true when a split has a payment that succeeded or is
// still being processed.
const paidSplitExpr = "EXISTS (SELECT 1 FROM payments p WHERE p.tab_split_id = s.id AND p.status IN ('PROCESSING','SUCCEEDED'))"

// SplitRepo persists tab splits.
type SplitRepo struct {
	db *sql.DB
}

func NewSplitRepo(db *sql.DB) *SplitRepo { return &SplitRepo{db: db} }

// SplitBuilder turns the locked tab's total into the splits to persist. It
// runs inside the transaction so the total cannot move underneath it.
type SplitBuilder func(total billing.Cents) ([]model.TabSplit, error)

func scanSplit(s rowScanner) (*model.TabSplit, error) {
	var (
		sp    model.TabSplit
		uid   sql.NullInt64
		guest sql.NullString
	)
	if err := s.Scan(&sp.ID, &sp.TabID, &uid, &guest, &sp.Amount, &sp.Tip, &sp.Total, &sp.CreatedAt, &sp.Paid); err != nil {
		return nil, err
	}
	sp.UserID = idPtr(uid)
	sp.GuestName = strPtr(guest)
	return &sp, nil
}

const splitSelect = "SELECT s.id, s.tab_id, s.user_id, s.guest_name, s.amount_cents, s.tip_cents, s.total_cents, s.created_at, " + paidSplitExpr + " FROM tab_splits s"

// ListForTab returns the splits of a tab in creation order.
func (r *SplitRepo) ListForTab(ctx context.Context, tabID uint64) ([]model.TabSplit, error) {
	rows, err := r.db.QueryContext(ctx, splitSelect+" WHERE s.tab_id=? ORDER BY s.id", tabID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.TabSplit{}
	for rows.Next() {
		sp, err := scanSplit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sp)
	}
	return out, rows.Err()
}

// Replace locks the OPEN tab, asks build for the new splits, and swaps them
// in for the existing ones. Splits that already carry a payment cannot be
// replaced; that case is reported as ErrSplitPaid.
func (r *SplitRepo) Replace(ctx context.Context, tabID, userID uint64, build SplitBuilder) ([]model.TabSplit, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	tab, err := lockOpenTabTx(ctx, tx, tabID, userID)
	if err != nil {
		return nil, err
	}
	splits, err := build(tab.Total)
	if err != nil {
		return nil, err
	}

	var paid bool
	if err := tx.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM tab_splits s WHERE s.tab_id=? AND "+paidSplitExpr+")", tab.ID).Scan(&paid); err != nil {
		return nil, err
	}
	if paid {
		return nil, ErrSplitPaid
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM tab_splits WHERE tab_id=?", tab.ID); err != nil {
		return nil, fmt.Errorf("delete splits: %w", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	for i := range splits {
		sp := &splits[i]
		sp.TabID = tab.ID
		sp.Total = sp.Amount + sp.Tip
		sp.CreatedAt = now
		sp.Paid = false
		res, err := tx.ExecContext(ctx,
			"INSERT INTO tab_splits (tab_id, user_id, guest_name, amount_cents, tip_cents, total_cents, created_at) VALUES (?,?,?,?,?,?,?)",
			sp.TabID, nullID(sp.UserID), nullStr(sp.GuestName), int64(sp.Amount), int64(sp.Tip), int64(sp.Total), sp.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("insert split: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		sp.ID = uint64(id)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return splits, nil
}
