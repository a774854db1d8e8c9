package model

import "time"

// Application statuses.
const (
	ApplicationPending  = "PENDING"
	ApplicationApproved = "APPROVED"
	ApplicationRejected = "REJECTED"
)

// VenueApplication is a lead submitted by a venue manager through the
// public sign-up form. Email is unique across applications.
type VenueApplication struct {
	ID              uint64    `json:"id"`                        // venue_applications.id
	BusinessName    string    `json:"businessName"`              // venue_applications.business_name
	ManagerName     string    `json:"managerName"`               // venue_applications.manager_name
	Email           string    `json:"email"`                     // venue_applications.email
	Phone           string    `json:"phone"`                     // venue_applications.phone
	Address         string    `json:"address"`                   // venue_applications.address
	City            string    `json:"city"`                      // venue_applications.city
	State           string    `json:"state"`                     // venue_applications.state
	ZipCode         string    `json:"zipCode"`                   // venue_applications.zip_code
	POSSystem       string    `json:"posSystem"`                 // venue_applications.pos_system
	EstimatedVolume *string   `json:"estimatedVolume,omitempty"` // venue_applications.estimated_volume
	Notes           *string   `json:"notes,omitempty"`           // venue_applications.notes
	Status          string    `json:"status"`                    // venue_applications.status
	CreatedAt       time.Time `json:"createdAt"`                 // venue_applications.created_at
}
