package types

import "time"

// Admin roles.
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleMember     = "member"
	RoleGuest      = "guest"
)

// Account is a login identity.
type Account struct {
	// ID is the account identifier (uuid).
	ID string `json:"id" db:"id"`

	// Email is unique across accounts.
	Email string `json:"email" db:"email"`

	// PasswordHash is the bcrypt hash. Never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Admin grants an account an administrative role.
type Admin struct {
	UserID    string    `json:"user_id" db:"user_id"`
	Role      string    `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
