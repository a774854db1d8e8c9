package model

import "time"

// PhoneVerification is an issued one-time code. Rows are never deleted; a
// resend inserts a newer row and verification always works on the newest
// unverified one.
type PhoneVerification struct {
	ID        uint64    // phone_verifications.id
	Phone     string    // phone_verifications.phone
	Code      string    // phone_verifications.code
	ExpiresAt time.Time // phone_verifications.expires_at
	Verified  bool      // phone_verifications.verified
	Attempts  int       // phone_verifications.attempts
	CreatedAt time.Time // phone_verifications.created_at
}
