package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/bartab/internal/billing"
	"github.com/iliyamo/bartab/internal/model"
)

const tabColumns = "id, user_id, venue_id, table_id, status, subtotal_cents, tax_cents, tip_cents, total_cents, opened_at, closed_at"

// TabRepo encapsulates queries over tabs, orders and order items. Every
// mutation that touches the money columns runs in a transaction holding
// the tab row lock, and recomputes the totals through the billing package.
type TabRepo struct {
	db *sql.DB
}

func NewTabRepo(db *sql.DB) *TabRepo { return &TabRepo{db: db} }

func scanTab(s rowScanner) (*model.Tab, error) {
	var (
		t        model.Tab
		tableID  sql.NullInt64
		closedAt sql.NullTime
	)
	if err := s.Scan(&t.ID, &t.UserID, &t.VenueID, &tableID, &t.Status,
		&t.Subtotal, &t.Tax, &t.Tip, &t.Total, &t.OpenedAt, &closedAt); err != nil {
		return nil, err
	}
	t.TableID = idPtr(tableID)
	t.ClosedAt = timePtr(closedAt)
	return &t, nil
}

// Create inserts a new OPEN tab with zero totals. A collision with the
// one-open-tab unique key yields ErrDuplicateOpenTab.
func (r *TabRepo) Create(ctx context.Context, t *model.Tab) error {
	t.Status = model.TabOpen
	t.Totals = billing.Totals{}
	t.OpenedAt = time.Now().UTC().Truncate(time.Second)
	t.ClosedAt = nil

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO tabs (user_id, venue_id, table_id, status, opened_at) VALUES (?,?,?,?,?)",
		t.UserID, t.VenueID, nullID(t.TableID), t.Status, t.OpenedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateOpenTab
		}
		return fmt.Errorf("insert tab: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// FindOpen returns the user's OPEN tab at a venue.
func (r *TabRepo) FindOpen(ctx context.Context, userID, venueID uint64) (*model.Tab, error) {
	t, err := scanTab(r.db.QueryRowContext(ctx,
		"SELECT "+tabColumns+" FROM tabs WHERE user_id=? AND venue_id=? AND status='OPEN' LIMIT 1",
		userID, venueID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTabNotFound
	}
	return t, err
}

// GetForUser returns a tab owned by userID in any status.
func (r *TabRepo) GetForUser(ctx context.Context, tabID, userID uint64) (*model.Tab, error) {
	t, err := scanTab(r.db.QueryRowContext(ctx,
		"SELECT "+tabColumns+" FROM tabs WHERE id=? AND user_id=? LIMIT 1", tabID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTabNotFound
	}
	return t, err
}

// Active returns the user's most recently opened OPEN tab.
func (r *TabRepo) Active(ctx context.Context, userID uint64) (*model.Tab, error) {
	t, err := scanTab(r.db.QueryRowContext(ctx,
		"SELECT "+tabColumns+" FROM tabs WHERE user_id=? AND status='OPEN' ORDER BY opened_at DESC, id DESC LIMIT 1",
		userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTabNotFound
	}
	return t, err
}

// ListForUser lists the user's tabs newest first. An empty status matches
// every status.
func (r *TabRepo) ListForUser(ctx context.Context, userID uint64, status string, limit int) ([]model.Tab, error) {
	q := "SELECT " + tabColumns + " FROM tabs WHERE user_id=?"
	args := []any{userID}
	if status != "" {
		q += " AND status=?"
		args = append(args, status)
	}
	q += " ORDER BY opened_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Tab{}
	for rows.Next() {
		t, err := scanTab(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// Orders returns a tab's orders newest first, each with its items.
func (r *TabRepo) Orders(ctx context.Context, tabID uint64) ([]model.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT o.id, o.tab_id, o.status, o.special_instructions, o.created_at,
		       oi.id, oi.menu_item_id, mi.name, oi.quantity, oi.unit_price_cents, oi.notes
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.id
		JOIN menu_items mi ON mi.id = oi.menu_item_id
		WHERE o.tab_id = ?
		ORDER BY o.created_at DESC, o.id DESC, oi.id ASC`, tabID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Order{}
	idx := map[uint64]int{}
	for rows.Next() {
		var (
			o     model.Order
			it    model.OrderItem
			instr sql.NullString
			notes sql.NullString
		)
		if err := rows.Scan(&o.ID, &o.TabID, &o.Status, &instr, &o.CreatedAt,
			&it.ID, &it.MenuItemID, &it.Name, &it.Quantity, &it.UnitPrice, &notes); err != nil {
			return nil, err
		}
		it.OrderID = o.ID
		it.Notes = strPtr(notes)
		i, ok := idx[o.ID]
		if !ok {
			o.SpecialInstructions = strPtr(instr)
			o.Items = []model.OrderItem{}
			out = append(out, o)
			i = len(out) - 1
			idx[o.ID] = i
		}
		out[i].Items = append(out[i].Items, it)
	}
	return out, rows.Err()
}

// AppendOrder adds one order to an OPEN tab owned by userID and recomputes
// the tab totals, all in one transaction. The tab row is locked first so
// concurrent appends serialize on it and none of them reads a stale
// subtotal. Prices are captured from menu_items inside the same
// transaction.
func (r *TabRepo) AppendOrder(ctx context.Context, tabID, userID uint64, lines []model.OrderLine, instructions *string) (*model.Tab, *model.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	tab, err := lockOpenTabTx(ctx, tx, tabID, userID)
	if err != nil {
		return nil, nil, err
	}
	rate, err := venueRateTx(ctx, tx, tab.VenueID)
	if err != nil {
		return nil, nil, err
	}
	priced, err := menuItemsTx(ctx, tx, tab.VenueID, lines)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC().Truncate(time.Second)
	res, err := tx.ExecContext(ctx,
		"INSERT INTO orders (tab_id, status, special_instructions, created_at) VALUES (?,?,?,?)",
		tab.ID, model.OrderPending, nullStr(instructions), now)
	if err != nil {
		return nil, nil, fmt.Errorf("insert order: %w", err)
	}
	oid, err := res.LastInsertId()
	if err != nil {
		return nil, nil, err
	}
	order := &model.Order{
		ID:                  uint64(oid),
		TabID:               tab.ID,
		Status:              model.OrderPending,
		SpecialInstructions: instructions,
		CreatedAt:           now,
	}

	query := "INSERT INTO order_items (order_id, menu_item_id, quantity, unit_price_cents, notes) VALUES "
	args := make([]any, 0, len(lines)*5)
	for i, l := range lines {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?)"
		p := priced[l.MenuItemID]
		args = append(args, order.ID, l.MenuItemID, l.Quantity, int64(p.Price), nullStr(l.Notes))
		order.Items = append(order.Items, model.OrderItem{
			OrderID:    order.ID,
			MenuItemID: l.MenuItemID,
			Name:       p.Name,
			Quantity:   l.Quantity,
			UnitPrice:  p.Price,
			Notes:      l.Notes,
		})
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, nil, fmt.Errorf("insert order items: %w", err)
	}
	if err := fillOrderItemIDsTx(ctx, tx, order); err != nil {
		return nil, nil, err
	}

	tab.Totals = billing.AddOrder(tab.Totals, order.Subtotal(), rate)
	if err := updateTotalsTx(ctx, tx, tab); err != nil {
		return nil, nil, err
	}
	if err := clearUnpaidSplitsTx(ctx, tx, tab.ID); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	committed = true
	return tab, order, nil
}

// UpdateTip overwrites the tip of an OPEN tab owned by userID and
// recomputes the total.
func (r *TabRepo) UpdateTip(ctx context.Context, tabID, userID uint64, tip billing.Cents) (*model.Tab, error) {
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
	rate, err := venueRateTx(ctx, tx, tab.VenueID)
	if err != nil {
		return nil, err
	}
	totals, err := billing.SetTip(tab.Totals, tip, rate)
	if err != nil {
		return nil, err
	}
	tab.Totals = totals
	if err := updateTotalsTx(ctx, tx, tab); err != nil {
		return nil, err
	}
	if err := clearUnpaidSplitsTx(ctx, tx, tab.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return tab, nil
}

// lockOpenTabTx loads and row-locks a tab owned by userID. A missing,
// foreign or CLOSED tab is reported as ErrTabNotFound.
func lockOpenTabTx(ctx context.Context, tx *sql.Tx, tabID, userID uint64) (*model.Tab, error) {
	t, err := scanTab(tx.QueryRowContext(ctx,
		"SELECT "+tabColumns+" FROM tabs WHERE id=? AND user_id=? FOR UPDATE", tabID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTabNotFound
	}
	if err != nil {
		return nil, err
	}
	if !t.IsOpen() {
		return nil, ErrTabNotFound
	}
	return t, nil
}

func venueRateTx(ctx context.Context, tx *sql.Tx, venueID uint64) (billing.Rate, error) {
	var rate billing.Rate
	err := tx.QueryRowContext(ctx, "SELECT tax_rate_bps FROM venues WHERE id=?", venueID).Scan(&rate)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrVenueNotFound
	}
	return rate, err
}

// menuItemsTx loads the current price of every referenced item that is
// available at the venue. The first unknown id is reported as an
// InvalidItemError.
func menuItemsTx(ctx context.Context, tx *sql.Tx, venueID uint64, lines []model.OrderLine) (map[uint64]model.MenuItem, error) {
	ids := make([]any, 0, len(lines)+1)
	ids = append(ids, venueID)
	seen := map[uint64]bool{}
	placeholders := make([]string, 0, len(lines))
	for _, l := range lines {
		if seen[l.MenuItemID] {
			continue
		}
		seen[l.MenuItemID] = true
		placeholders = append(placeholders, "?")
		ids = append(ids, l.MenuItemID)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT mi.id, mi.name, mi.price_cents
		FROM menu_items mi
		JOIN menu_categories mc ON mc.id = mi.category_id
		WHERE mc.venue_id = ? AND mi.is_available = 1
		  AND mi.id IN (`+strings.Join(placeholders, ",")+`)`, ids...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uint64]model.MenuItem, len(placeholders))
	for rows.Next() {
		var mi model.MenuItem
		if err := rows.Scan(&mi.ID, &mi.Name, &mi.Price); err != nil {
			return nil, err
		}
		out[mi.ID] = mi
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, l := range lines {
		if _, ok := out[l.MenuItemID]; !ok {
			return nil, &InvalidItemError{MenuItemID: l.MenuItemID}
		}
	}
	return out, nil
}

// fillOrderItemIDsTx reads back the generated ids of a freshly inserted
// order's items. Rows come back in insertion order.
func fillOrderItemIDsTx(ctx context.Context, tx *sql.Tx, o *model.Order) error {
	rows, err := tx.QueryContext(ctx, "SELECT id FROM order_items WHERE order_id=? ORDER BY id", o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	i := 0
	for rows.Next() {
		if i >= len(o.Items) {
			break
		}
		if err := rows.Scan(&o.Items[i].ID); err != nil {
			return err
		}
		i++
	}
	return rows.Err()
}

func updateTotalsTx(ctx context.Context, tx *sql.Tx, t *model.Tab) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE tabs SET subtotal_cents=?, tax_cents=?, tip_cents=?, total_cents=? WHERE id=?",
		int64(t.Subtotal), int64(t.Tax), int64(t.Tip), int64(t.Total), t.ID)
	if err != nil {
		return fmt.Errorf("update tab totals: %w", err)
	}
	return nil
}

// clearUnpaidSplitsTx drops the splits of a tab whose total just moved.
// Splits with a payment in flight or succeeded are kept.
func clearUnpaidSplitsTx(ctx context.Context, tx *sql.Tx, tabID uint64) error {
	_, err := tx.ExecContext(ctx,
		"DELETE FROM tab_splits WHERE tab_id=? AND NOT EXISTS (SELECT 1 FROM payments p WHERE p.tab_split_id = tab_splits.id AND p.status IN ('PROCESSING','SUCCEEDED'))",
		tabID)
	if err != nil {
		return fmt.Errorf("clear stale splits: %w", err)
	}
	return nil
}
