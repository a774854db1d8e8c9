package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/iliyamo/bartab/internal/model"
)

const venueColumns = "v.id, v.name, COALESCE(v.description, ''), v.address, v.city, v.state, v.zip_code, v.latitude, v.longitude, v.tax_rate_bps, v.opening_hours, v.is_active, v.created_at"

// VenueRepo is the read side of the catalog: venues, their tables and
// menus. Writes happen only through the seed command.
type VenueRepo struct {
	db *sql.DB
}

func NewVenueRepo(db *sql.DB) *VenueRepo { return &VenueRepo{db: db} }

func scanVenue(s rowScanner, extra ...any) (*model.Venue, error) {
	var (
		v     model.Venue
		hours []byte
	)
	dest := []any{&v.ID, &v.Name, &v.Description, &v.Address, &v.City, &v.State, &v.ZipCode,
		&v.Latitude, &v.Longitude, &v.TaxRate, &hours, &v.IsActive, &v.CreatedAt}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if len(hours) > 0 {
		v.OpeningHours = json.RawMessage(hours)
	}
	return &v, nil
}

// GetActive returns an active venue by id.
func (r *VenueRepo) GetActive(ctx context.Context, id uint64) (*model.Venue, error) {
	v, err := scanVenue(r.db.QueryRowContext(ctx,
		"SELECT "+venueColumns+" FROM venues v WHERE v.id=? AND v.is_active=1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVenueNotFound
	}
	return v, err
}

// ListActiveWithRatings returns every active venue with its mean overall
// rating and rating count. Distance filtering happens in the caller.
func (r *VenueRepo) ListActiveWithRatings(ctx context.Context) ([]model.VenueSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+venueColumns+`, COALESCE(AVG(rt.overall_rating), 0), COUNT(rt.id)
		FROM venues v
		LEFT JOIN ratings rt ON rt.venue_id = v.id
		WHERE v.is_active = 1
		GROUP BY v.id
		ORDER BY v.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.VenueSummary{}
	for rows.Next() {
		var s model.VenueSummary
		v, err := scanVenue(rows, &s.AvgRating, &s.RatingCount)
		if err != nil {
			return nil, err
		}
		s.Venue = *v
		out = append(out, s)
	}
	return out, rows.Err()
}

// Menu returns the venue with its active categories ordered by sort order,
// each holding its available items ordered by sort order. Categories with
// no available items are still listed.
func (r *VenueRepo) Menu(ctx context.Context, venueID uint64) (*model.Menu, error) {
	v, err := r.GetActive(ctx, venueID)
	if err != nil {
		return nil, err
	}

	crows, err := r.db.QueryContext(ctx,
		"SELECT id, venue_id, name, sort_order, is_active FROM menu_categories WHERE venue_id=? AND is_active=1 ORDER BY sort_order, id",
		venueID)
	if err != nil {
		return nil, err
	}
	defer crows.Close()
	menu := &model.Menu{Venue: *v, Categories: []model.MenuCategory{}}
	idx := map[uint64]int{}
	for crows.Next() {
		var c model.MenuCategory
		if err := crows.Scan(&c.ID, &c.VenueID, &c.Name, &c.SortOrder, &c.IsActive); err != nil {
			return nil, err
		}
		c.Items = []model.MenuItem{}
		idx[c.ID] = len(menu.Categories)
		menu.Categories = append(menu.Categories, c)
	}
	if err := crows.Err(); err != nil {
		return nil, err
	}

	irows, err := r.db.QueryContext(ctx, `
		SELECT mi.id, mi.category_id, mi.name, COALESCE(mi.description, ''), mi.price_cents,
		       mi.is_vegan, mi.is_vegetarian, mi.is_gluten_free, mi.allergens, mi.is_available, mi.sort_order
		FROM menu_items mi
		JOIN menu_categories mc ON mc.id = mi.category_id
		WHERE mc.venue_id = ? AND mc.is_active = 1 AND mi.is_available = 1
		ORDER BY mi.sort_order, mi.id`, venueID)
	if err != nil {
		return nil, err
	}
	defer irows.Close()
	for irows.Next() {
		var (
			mi        model.MenuItem
			allergens []byte
		)
		if err := irows.Scan(&mi.ID, &mi.CategoryID, &mi.Name, &mi.Description, &mi.Price,
			&mi.IsVegan, &mi.IsVegetarian, &mi.IsGlutenFree, &allergens, &mi.IsAvailable, &mi.SortOrder); err != nil {
			return nil, err
		}
		mi.Allergens = []string{}
		if len(allergens) > 0 {
			_ = json.Unmarshal(allergens, &mi.Allergens)
		}
		if i, ok := idx[mi.CategoryID]; ok {
			menu.Categories[i].Items = append(menu.Categories[i].Items, mi)
		}
	}
	return menu, irows.Err()
}

const tableColumns = "id, venue_id, table_number, capacity, qr_code"

func scanTable(s rowScanner) (*model.Table, error) {
	var t model.Table
	if err := s.Scan(&t.ID, &t.VenueID, &t.Number, &t.Capacity, &t.QRCode); err != nil {
		return nil, err
	}
	return &t, nil
}

// TableByID returns a table only if it belongs to venueID.
func (r *VenueRepo) TableByID(ctx context.Context, venueID, tableID uint64) (*model.Table, error) {
	t, err := scanTable(r.db.QueryRowContext(ctx,
		"SELECT "+tableColumns+" FROM venue_tables WHERE id=? AND venue_id=?", tableID, venueID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTableNotFound
	}
	return t, err
}

// TableByNumber looks a table up by its printed number.
func (r *VenueRepo) TableByNumber(ctx context.Context, venueID uint64, number int) (*model.Table, error) {
	t, err := scanTable(r.db.QueryRowContext(ctx,
		"SELECT "+tableColumns+" FROM venue_tables WHERE venue_id=? AND table_number=?", venueID, number))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTableNotFound
	}
	return t, err
}
