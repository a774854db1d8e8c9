package model

import (
	"time"

	"github.com/iliyamo/bartab/internal/billing"
)

// Tab statuses.
const (
	TabOpen   = "OPEN"
	TabClosed = "CLOSED"
)

// Order statuses. They are kitchen-facing and not otherwise managed here.
const (
	OrderPending   = "PENDING"
	OrderPreparing = "PREPARING"
	OrderDelivered = "DELIVERED"
)

// Tab is a patron's running bill at a venue. At most one OPEN tab exists per
// (user, venue); the database enforces it through the generated open_key
// column. The money fields are derived by the billing package and always
// satisfy Total == Subtotal + Tax + Tip.
//
// Fields:
//
//	ID       – primary key identifier.
//	UserID   – patron owning the tab.
//	VenueID  – venue the tab is open at.
//	TableID  – optional table the tab was opened from.
//	Status   – OPEN or CLOSED; CLOSED is terminal.
//	Totals   – subtotal, tax, tip and total.
//	OpenedAt – creation timestamp.
//	ClosedAt – set once, when a full payment succeeds.
type Tab struct {
	ID      uint64  `json:"id"`                // tabs.id
	UserID  uint64  `json:"userId"`            // tabs.user_id
	VenueID uint64  `json:"venueId"`           // tabs.venue_id
	TableID *uint64 `json:"tableId,omitempty"` // tabs.table_id (nullable)
	Status  string  `json:"status"`            // tabs.status
	billing.Totals
	OpenedAt time.Time  `json:"openedAt"`           // tabs.opened_at
	ClosedAt *time.Time `json:"closedAt,omitempty"` // tabs.closed_at (nullable)

	Venue  *Venue     `json:"venue,omitempty"`
	Orders []Order    `json:"orders,omitempty"`
	Splits []TabSplit `json:"splits,omitempty"`
}

// IsOpen reports whether the tab still accepts orders and payments.
func (t *Tab) IsOpen() bool { return t.Status == TabOpen }

// Order is one batch of items appended to a tab. Orders are never merged;
// the tab's history is the concatenation of its orders.
type Order struct {
	ID                  uint64      `json:"id"`                            // orders.id
	TabID               uint64      `json:"tabId"`                         // orders.tab_id
	Status              string      `json:"status"`                        // orders.status
	SpecialInstructions *string     `json:"specialInstructions,omitempty"` // orders.special_instructions
	CreatedAt           time.Time   `json:"createdAt"`                     // orders.created_at
	Items               []OrderItem `json:"items"`
}

// Subtotal sums the captured prices of the order's items.
func (o *Order) Subtotal() billing.Cents {
	lines := make([]billing.Line, len(o.Items))
	for i, it := range o.Items {
		lines[i] = billing.Line{UnitPrice: it.UnitPrice, Quantity: it.Quantity}
	}
	return billing.OrderSubtotal(lines)
}

// OrderItem is a line of an order. UnitPrice is a snapshot of the menu
// price at order time.
type OrderItem struct {
	ID         uint64        `json:"id"`              // order_items.id
	OrderID    uint64        `json:"orderId"`         // order_items.order_id
	MenuItemID uint64        `json:"menuItemId"`      // order_items.menu_item_id
	Name       string        `json:"name,omitempty"`  // menu_items.name (joined)
	Quantity   int           `json:"quantity"`        // order_items.quantity
	UnitPrice  billing.Cents `json:"price"`           // order_items.unit_price_cents
	Notes      *string       `json:"notes,omitempty"` // order_items.notes
}

// OrderLine is a requested item before prices are captured.
type OrderLine struct {
	MenuItemID uint64  `json:"menuItemId"`
	Quantity   int     `json:"quantity"`
	Notes      *string `json:"notes,omitempty"`
}
