package types

// MenuItem is a navigation entry and the roles it is offered to.
type MenuItem struct {
	ID    string   `json:"id" yaml:"id"`
	Label string   `json:"label" yaml:"label"`
	Href  string   `json:"href" yaml:"href"`
	Roles []string `json:"roles" yaml:"roles"`
}

// MenuVisibility is the stored on/off flag for one (role, menu) pair.
type MenuVisibility struct {
	Role    string `json:"role" db:"role"`
	MenuID  string `json:"menu_id" db:"menu_id"`
	Visible bool   `json:"visible" db:"visible"`
}
