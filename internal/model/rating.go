package model

import "time"

// Allowed values for the categorical rating fields.
var (
	ServiceSpeeds = []string{"Fast", "Moderate", "Slow"}
	CrowdLevels   = []string{"Busy", "Moderate", "Empty"}
)

// Rating is a patron's review of a venue visit. Only OverallRating is
// required; the sub-ratings are 1-5 when present.
type Rating struct {
	ID            uint64    `json:"id"`                     // ratings.id
	VenueID       uint64    `json:"venueId"`                // ratings.venue_id
	TabID         *uint64   `json:"tabId,omitempty"`        // ratings.tab_id
	UserID        uint64    `json:"userId"`                 // ratings.user_id
	OverallRating int       `json:"overallRating"`          // ratings.overall_rating
	DrinksRating  *int      `json:"drinksRating,omitempty"` // ratings.drinks_rating
	VibeRating    *int      `json:"vibeRating,omitempty"`   // ratings.vibe_rating
	ServerRating  *int      `json:"serverRating,omitempty"` // ratings.server_rating
	ServiceSpeed  *string   `json:"serviceSpeed,omitempty"` // ratings.service_speed
	CrowdLevel    *string   `json:"crowdLevel,omitempty"`   // ratings.crowd_level
	ServerName    *string   `json:"serverName,omitempty"`   // ratings.server_name
	Review        *string   `json:"review,omitempty"`       // ratings.review
	CreatedAt     time.Time `json:"createdAt"`              // ratings.created_at
}

// RatingAverages are means over the ratings that carry each field, rounded
// to one decimal.
type RatingAverages struct {
	Overall float64 `json:"overall"`
	Drinks  float64 `json:"drinks"`
	Vibe    float64 `json:"vibe"`
	Server  float64 `json:"server"`
}

// RatingSummary is the response of a venue rating listing.
type RatingSummary struct {
	Ratings  []Rating       `json:"ratings"`
	Averages RatingAverages `json:"averages"`
	Total    int            `json:"total"`
}
