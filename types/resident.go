package types

import "time"

// Resident statuses.
const (
	ResidentPending  = "pending"
	ResidentActive   = "active"
	ResidentInactive = "inactive"
)

// Vehicle types.
const (
	VehicleICE = "ice"
	VehicleEV  = "ev"
)

// Resident is a person living in the complex who may hold QR tokens.
type Resident struct {
	// ID is the resident identifier. Self-registered residents share
	// the ID of their login account.
	ID string `json:"id" db:"id"`

	// Name is the resident's display name.
	Name string `json:"name" db:"name"`

	// Phone is the contact number encoded into the resident's QR payload.
	Phone string `json:"phone" db:"phone"`

	// Email is the optional contact address used for QR delivery.
	Email *string `json:"email" db:"email"`

	// Unit is the free-text dwelling unit, e.g. "101동 1203호".
	// The first space-separated word is treated as the building.
	Unit string `json:"unit" db:"unit"`

	// VehiclePlate is the registered vehicle plate, if any.
	VehiclePlate *string `json:"vehicle_plate" db:"vehicle_plate"`

	// VehicleType is "ice" or "ev" when known.
	VehicleType *string `json:"vehicle_type" db:"vehicle_type"`

	// Status is one of pending, active or inactive.
	Status string `json:"status" db:"status"`

	// CreatedAt is when the resident row was first inserted.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ResidentUpdate carries the admin-editable resident fields.
// Nil pointers leave the stored value unchanged.
type ResidentUpdate struct {
	Name         *string `json:"name"`
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
	Unit         *string `json:"unit"`
	VehiclePlate *string `json:"vehicle_plate"`
	VehicleType  *string `json:"vehicle_type"`
}

// ChangeRequest is the payload of a resident_change notification.
type ChangeRequest struct {
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
	Unit         *string `json:"unit"`
	VehiclePlate *string `json:"vehicle_plate"`
	VehicleType  *string `json:"vehicle_type"`
}

// HistoryRow is a resident joined with its most recent token, if any.
type HistoryRow struct {
	Resident
	Token *Token `json:"token"`
}
