package types

import "time"

// GasReading is a meter reading submitted by or for a resident.
type GasReading struct {
	// ID is the row identifier.
	ID int64 `json:"id" db:"id"`

	// UserID is the resident the reading belongs to.
	UserID string `json:"user_id" db:"user_id"`

	// ReadingValue is the meter value; nil when an upload yielded no digits.
	ReadingValue *float64 `json:"reading_value" db:"reading_value"`

	// ReadAt is when the meter was read.
	ReadAt time.Time `json:"read_at" db:"read_at"`

	Note *string `json:"note" db:"note"`

	// ImageURL is a signed link to the uploaded meter photo.
	ImageURL *string `json:"image_url" db:"image_url"`

	// OCRValue is the value extracted from the upload.
	OCRValue *float64 `json:"ocr_value" db:"ocr_value"`

	// ExpiresAt is when ImageURL stops working.
	ExpiresAt *time.Time `json:"expires_at" db:"expires_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// GasReadingView is a reading joined with its resident's name and unit.
type GasReadingView struct {
	GasReading
	ResidentName *string `json:"resident_name"`
	ResidentUnit *string `json:"resident_unit"`
}
