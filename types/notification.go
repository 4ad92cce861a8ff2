package types

import (
	"encoding/json"
	"time"
)

// NotificationResidentChange is the type of a resident change request.
const NotificationResidentChange = "resident_change"

// Notification is an inbox item for admins. Done only moves false -> true.
type Notification struct {
	ID        int64           `json:"id" db:"id"`
	Type      string          `json:"type" db:"type"`
	Recipient string          `json:"recipient" db:"recipient"`
	Payload   json.RawMessage `json:"payload" db:"payload"`
	Done      bool            `json:"done" db:"done"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}
