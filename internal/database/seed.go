package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/iliyamo/bartab/internal/billing"
	"github.com/iliyamo/bartab/internal/model"
	"github.com/iliyamo/bartab/internal/utils"
)

type seedItem struct {
	name, desc                    string
	price                         float64
	allergens                     []string
	vegan, vegetarian, glutenFree bool
}

type seedCategory struct {
	name  string
	items []seedItem
}

var seedMenu = []seedCategory{
	{"Drinks", []seedItem{
		{name: "Craft IPA", desc: "Local craft IPA with citrus notes", price: 8.50, allergens: []string{"gluten"}},
		{name: "House Red Wine", desc: "Smooth Cabernet Sauvignon", price: 10.00, allergens: []string{"sulfites"}},
		{name: "Classic Margarita", desc: "Tequila, lime, triple sec", price: 12.00},
	}},
	{"Starters", []seedItem{
		{name: "Truffle Fries", desc: "Crispy fries with truffle oil and parmesan", price: 9.00, allergens: []string{"dairy"}, vegetarian: true},
		{name: "Buffalo Wings", desc: "8 pieces with celery and ranch", price: 13.00, allergens: []string{"dairy"}},
		{name: "Hummus Plate", desc: "House-made hummus with pita bread", price: 8.00, allergens: []string{"gluten", "sesame"}, vegan: true, vegetarian: true},
	}},
	{"Mains", []seedItem{
		{name: "Classic Burger", desc: "Angus beef, lettuce, tomato, onion, pickles", price: 16.00, allergens: []string{"gluten", "dairy"}},
		{name: "Fish & Chips", desc: "Beer-battered cod with fries", price: 18.00, allergens: []string{"gluten", "fish"}},
		{name: "Veggie Buddha Bowl", desc: "Quinoa, roasted vegetables, tahini dressing", price: 14.00, allergens: []string{"sesame"}, vegan: true, vegetarian: true, glutenFree: true},
	}},
	{"Desserts", []seedItem{
		{name: "Chocolate Lava Cake", desc: "Warm chocolate cake with molten center", price: 9.00, allergens: []string{"gluten", "dairy", "eggs"}, vegetarian: true},
		{name: "Tiramisu", desc: "Classic Italian dessert", price: 8.00, allergens: []string{"gluten", "dairy", "eggs"}, vegetarian: true},
	}},
}

var seedHours = map[string]string{
	"monday": "16:00-02:00", "tuesday": "16:00-02:00", "wednesday": "16:00-02:00",
	"thursday": "16:00-02:00", "friday": "14:00-02:00", "saturday": "12:00-02:00",
	"sunday": "12:00-00:00",
}

// SeedResult reports what Seed created.
type SeedResult struct {
	VenueID uint64
	UserID  uint64
	Tables  int
	Items   int
}

// Seed inserts the sample venue "The Cozy Pub" with ten tables and a
// four-category menu, plus the test@bartab.com user. Everything runs in one
// transaction.
func Seed(ctx context.Context, db *sql.DB, bcryptCost int) (res SeedResult, err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return res, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	hours, _ := json.Marshal(seedHours)
	r, err := tx.ExecContext(ctx, `INSERT INTO venues
		(name, description, address, city, state, zip_code, latitude, longitude, tax_rate_bps, opening_hours, is_active)
		VALUES (?,?,?,?,?,?,?,?,?,?,1)`,
		"The Cozy Pub", "A friendly neighborhood pub with craft beers and great food",
		"123 Main Street", "San Francisco", "CA", "94102", 37.7749, -122.4194,
		int64(billing.RateFromFraction(0.0875)), string(hours))
	if err != nil {
		return res, fmt.Errorf("insert venue: %w", err)
	}
	vid, err := r.LastInsertId()
	if err != nil {
		return res, err
	}
	res.VenueID = uint64(vid)

	capacities := []int{2, 4, 6}
	for n := 1; n <= 10; n++ {
		if _, err = tx.ExecContext(ctx,
			"INSERT INTO venue_tables (venue_id, table_number, capacity, qr_code) VALUES (?,?,?,?)",
			res.VenueID, n, capacities[(n-1)%len(capacities)], model.TableQRPayload(res.VenueID, n)); err != nil {
			return res, fmt.Errorf("insert table %d: %w", n, err)
		}
		res.Tables++
	}

	for ci, cat := range seedMenu {
		r, err = tx.ExecContext(ctx,
			"INSERT INTO menu_categories (venue_id, name, sort_order, is_active) VALUES (?,?,?,1)",
			res.VenueID, cat.name, ci+1)
		if err != nil {
			return res, fmt.Errorf("insert category %s: %w", cat.name, err)
		}
		cid, _ := r.LastInsertId()
		for ii, it := range cat.items {
			allergens := it.allergens
			if allergens == nil {
				allergens = []string{}
			}
			aj, _ := json.Marshal(allergens)
			if _, err = tx.ExecContext(ctx, `INSERT INTO menu_items
				(category_id, name, description, price_cents, is_vegan, is_vegetarian, is_gluten_free, allergens, is_available, sort_order)
				VALUES (?,?,?,?,?,?,?,?,1,?)`,
				cid, it.name, it.desc, int64(billing.FromFloat(it.price)),
				it.vegan, it.vegetarian, it.glutenFree, string(aj), ii+1); err != nil {
				return res, fmt.Errorf("insert item %s: %w", it.name, err)
			}
			res.Items++
		}
	}

	hash, err := utils.HashPassword("password123", bcryptCost)
	if err != nil {
		return res, err
	}
	r, err = tx.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, role, first_name, last_name, phone, phone_verified)
		 VALUES (?,?,?,?,?,?,1)`,
		"test@bartab.com", hash, model.RoleCustomer, "Test", "User", "+15555551234")
	if err != nil {
		return res, fmt.Errorf("insert user: %w", err)
	}
	uid, _ := r.LastInsertId()
	res.UserID = uint64(uid)
	return res, nil
}
