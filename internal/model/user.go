package model

import "time"

// Roles carried in the access token's role claim.
const (
	RoleCustomer = "CUSTOMER"
	RoleAdmin    = "ADMIN"
)

// User represents an application user record as stored in the
// `users` table. PasswordHash never leaves the repository and
// handler layers; profile responses are built from the other fields.
//
// Fields:
//
//	ID                 – primary key identifier of the user.
//	Email              – unique, lower-cased email address.
//	PasswordHash       – bcrypt hashed password.
//	Role               – CUSTOMER or ADMIN.
//	FirstName/LastName – optional display name.
//	Phone              – optional phone number in normalized form.
//	PhoneVerified      – set once a verification code for Phone matched.
//	DefaultTipPercent  – tip preselected on the pay screen (0-100).
//	PushNotifications  – opt-in for push updates.
//	EmailNotifications – opt-in for receipts by email.
//	IsActive           – whether the account is active.
type User struct {
	ID                 uint64    `json:"id"`                  // users.id
	Email              string    `json:"email"`               // users.email
	PasswordHash       string    `json:"-"`                   // users.password_hash
	Role               string    `json:"role"`                // users.role
	FirstName          *string   `json:"firstName,omitempty"` // users.first_name
	LastName           *string   `json:"lastName,omitempty"`  // users.last_name
	Phone              *string   `json:"phone,omitempty"`     // users.phone
	PhoneVerified      bool      `json:"phoneVerified"`       // users.phone_verified
	DefaultTipPercent  int       `json:"defaultTipPercent"`   // users.default_tip_percent
	PushNotifications  bool      `json:"pushNotifications"`   // users.push_notifications
	EmailNotifications bool      `json:"emailNotifications"`  // users.email_notifications
	IsActive           bool      `json:"isActive"`            // users.is_active
	CreatedAt          time.Time `json:"createdAt"`           // users.created_at
	UpdatedAt          time.Time `json:"updatedAt"`           // users.updated_at
}

// ProfileUpdate holds the user-editable profile fields. Nil means
// unchanged.
type ProfileUpdate struct {
	FirstName          *string `json:"firstName"`
	LastName           *string `json:"lastName"`
	Phone              *string `json:"phone"`
	DefaultTipPercent  *int    `json:"defaultTipPercent"`
	PushNotifications  *bool   `json:"pushNotifications"`
	EmailNotifications *bool   `json:"emailNotifications"`
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and contains metadata for expiry
// and revocation.  The plain token is not stored; only its
// SHA-256 hash.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
