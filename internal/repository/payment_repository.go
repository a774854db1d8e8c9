package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/bartab/internal/model"
)

const paymentColumns = "id, tab_id, tab_split_id, user_id, amount_cents, payment_method_id, processor_txn_id, status, created_at, updated_at"

// PaymentRepo persists payments and performs the tab close that a full
// payment triggers.
type PaymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

func scanPayment(s rowScanner) (*model.Payment, error) {
	var (
		p       model.Payment
		splitID sql.NullInt64
	)
	if err := s.Scan(&p.ID, &p.TabID, &splitID, &p.UserID, &p.Amount, &p.PaymentMethodID,
		&p.ProcessorTxnID, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.TabSplitID = idPtr(splitID)
	return &p, nil
}

// Begin validates the payment target under the tab lock and inserts a
// PROCESSING payment for it. The amount is the split total when a split is
// referenced, otherwise the tab total. A target that is already paid or
// has a payment in flight is rejected, which keeps two concurrent
// requests from charging the same amount twice.
func (r *PaymentRepo) Begin(ctx context.Context, userID, tabID uint64, splitID *uint64, methodID string) (*model.Payment, error) {
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

	p := &model.Payment{
		TabID:           tab.ID,
		TabSplitID:      splitID,
		UserID:          userID,
		PaymentMethodID: methodID,
		Status:          model.PaymentProcessing,
	}

	var busy bool
	if splitID != nil {
		sp, err := scanSplit(tx.QueryRowContext(ctx, splitSelect+" WHERE s.id=? AND s.tab_id=?", *splitID, tab.ID))
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSplitNotFound
		}
		if err != nil {
			return nil, err
		}
		if sp.Paid {
			return nil, ErrSplitPaid
		}
		p.Amount = sp.Total
	} else {
		if err := tx.QueryRowContext(ctx,
			"SELECT EXISTS (SELECT 1 FROM payments WHERE tab_id=? AND tab_split_id IS NULL AND status IN ('PROCESSING','SUCCEEDED'))",
			tab.ID).Scan(&busy); err != nil {
			return nil, err
		}
		if busy {
			return nil, fmt.Errorf("%w: a payment for this tab is already in progress", ErrConflict)
		}
		p.Amount = tab.Total
	}

	now := time.Now().UTC().Truncate(time.Second)
	p.CreatedAt, p.UpdatedAt = now, now
	res, err := tx.ExecContext(ctx,
		`INSERT INTO payments (tab_id, tab_split_id, user_id, amount_cents, payment_method_id, status, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		p.TabID, nullID(p.TabSplitID), p.UserID, int64(p.Amount), p.PaymentMethodID, p.Status, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	p.ID = uint64(id)

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return p, nil
}

// Complete records the processor outcome. When closeTab is set and the
// payment succeeded, the tab is closed in the same transaction; the close
// is conditional on the tab still being OPEN, so a second close is
// rejected with ErrTabClosed instead of moving closed_at.
func (r *PaymentRepo) Complete(ctx context.Context, p *model.Payment, status, txnID string, closeTab bool) (*time.Time, error) {
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

	now := time.Now().UTC().Truncate(time.Second)
	res, err := tx.ExecContext(ctx,
		"UPDATE payments SET status=?, processor_txn_id=?, updated_at=? WHERE id=? AND status='PROCESSING'",
		status, txnID, now, p.ID)
	if err != nil {
		return nil, fmt.Errorf("update payment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrPaymentNotFound
	}

	var closedAt *time.Time
	if closeTab && status == model.PaymentSucceeded {
		res, err := tx.ExecContext(ctx,
			"UPDATE tabs SET status='CLOSED', closed_at=? WHERE id=? AND status='OPEN'", now, p.TabID)
		if err != nil {
			return nil, fmt.Errorf("close tab: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, ErrTabClosed
		}
		closedAt = &now
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	p.Status = status
	p.ProcessorTxnID = txnID
	p.UpdatedAt = now
	return closedAt, nil
}

// ListForTab returns the tab's payments newest first.
func (r *PaymentRepo) ListForTab(ctx context.Context, tabID uint64) ([]model.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE tab_id=? ORDER BY created_at DESC, id DESC", tabID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
