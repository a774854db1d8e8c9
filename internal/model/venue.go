package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/iliyamo/bartab/internal/billing"
)

// Venue is a bar or restaurant where patrons open tabs. It owns its
// tables and menu categories. The tax rate is stored in basis points and
// serialized as a fraction (0.0875).
//
// Fields:
//
//	ID           – primary key identifier.
//	Name         – display name.
//	Address..Zip – postal address.
//	Latitude     – WGS84 latitude used for nearby search.
//	Longitude    – WGS84 longitude used for nearby search.
//	TaxRate      – sales tax applied to every tab at this venue.
//	OpeningHours – free-form JSON object keyed by weekday.
//	IsActive     – inactive venues are hidden from search and menus.
type Venue struct {
	ID           uint64          `json:"id"`                     // venues.id
	Name         string          `json:"name"`                   // venues.name
	Description  string          `json:"description,omitempty"`  // venues.description
	Address      string          `json:"address"`                // venues.address
	City         string          `json:"city"`                   // venues.city
	State        string          `json:"state"`                  // venues.state
	ZipCode      string          `json:"zipCode"`                // venues.zip_code
	Latitude     float64         `json:"latitude"`               // venues.latitude
	Longitude    float64         `json:"longitude"`              // venues.longitude
	TaxRate      billing.Rate    `json:"taxRate"`                // venues.tax_rate_bps
	OpeningHours json.RawMessage `json:"openingHours,omitempty"` // venues.opening_hours
	IsActive     bool            `json:"isActive"`               // venues.is_active
	CreatedAt    time.Time       `json:"createdAt"`              // venues.created_at
}

// VenueSummary is a venue as returned by search, with its rating average
// and, when the caller supplied coordinates, its distance in miles.
type VenueSummary struct {
	Venue
	AvgRating   float64  `json:"avgRating"`
	RatingCount int      `json:"ratingCount"`
	Distance    *float64 `json:"distance,omitempty"`
}

// Table is a physical table at a venue. QRCode is the payload printed on
// the table card.
type Table struct {
	ID       uint64 `json:"id"`          // venue_tables.id
	VenueID  uint64 `json:"venueId"`     // venue_tables.venue_id
	Number   int    `json:"tableNumber"` // venue_tables.table_number
	Capacity int    `json:"capacity"`    // venue_tables.capacity
	QRCode   string `json:"qrCode"`      // venue_tables.qr_code
}

// TableQRPayload is the string encoded in a table's QR code.
func TableQRPayload(venueID uint64, number int) string {
	return fmt.Sprintf("bartab://venue/%d/table/%d", venueID, number)
}

// ParseTableQRPayload reverses TableQRPayload.
func ParseTableQRPayload(s string) (venueID uint64, number int, err error) {
	if _, err = fmt.Sscanf(s, "bartab://venue/%d/table/%d", &venueID, &number); err != nil {
		return 0, 0, fmt.Errorf("invalid table code %q", s)
	}
	if venueID == 0 || number <= 0 {
		return 0, 0, fmt.Errorf("invalid table code %q", s)
	}
	return venueID, number, nil
}

// MenuCategory groups menu items. Items is filled only when the full menu
// is loaded.
type MenuCategory struct {
	ID        uint64     `json:"id"`        // menu_categories.id
	VenueID   uint64     `json:"venueId"`   // menu_categories.venue_id
	Name      string     `json:"name"`      // menu_categories.name
	SortOrder int        `json:"sortOrder"` // menu_categories.sort_order
	IsActive  bool       `json:"isActive"`  // menu_categories.is_active
	Items     []MenuItem `json:"items"`
}

// MenuItem is an orderable item. Price is the current list price; orders
// capture their own copy.
type MenuItem struct {
	ID           uint64        `json:"id"`                    // menu_items.id
	CategoryID   uint64        `json:"categoryId"`            // menu_items.category_id
	Name         string        `json:"name"`                  // menu_items.name
	Description  string        `json:"description,omitempty"` // menu_items.description
	Price        billing.Cents `json:"price"`                 // menu_items.price_cents
	IsVegan      bool          `json:"isVegan"`               // menu_items.is_vegan
	IsVegetarian bool          `json:"isVegetarian"`          // menu_items.is_vegetarian
	IsGlutenFree bool          `json:"isGlutenFree"`          // menu_items.is_gluten_free
	Allergens    []string      `json:"allergens"`             // menu_items.allergens (JSON array)
	IsAvailable  bool          `json:"isAvailable"`           // menu_items.is_available
	SortOrder    int           `json:"sortOrder"`             // menu_items.sort_order
}

// Menu is a venue with its active categories and available items.
type Menu struct {
	Venue      Venue          `json:"venue"`
	Categories []MenuCategory `json:"categories"`
}
