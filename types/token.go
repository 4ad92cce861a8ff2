package types

import "time"

// Token is an opaque, revocable QR credential belonging to a resident.
// A resident may hold many; the newest by CreatedAt is the current one.
type Token struct {
	// ID is the row identifier (uuid).
	ID string `json:"id" db:"id"`

	// ResidentID references the owning resident.
	ResidentID string `json:"resident_id" db:"resident_id"`

	// Token is the opaque value embedded in the QR payload.
	Token string `json:"token" db:"token"`

	// TokenVersion starts at 1.
	TokenVersion int `json:"token_version" db:"token_version"`

	// ExpiresAt is when the token stops being valid. Nil means no expiry.
	ExpiresAt *time.Time `json:"expires_at" db:"expires_at"`

	// Revoked marks the token as no longer valid regardless of expiry.
	Revoked bool `json:"revoked" db:"revoked"`

	// CreatedAt is the issuance time.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Valid reports whether the token is usable at now.
func (t Token) Valid(now time.Time) bool {
	if t.Revoked {
		return false
	}
	return t.ExpiresAt == nil || t.ExpiresAt.After(now)
}
