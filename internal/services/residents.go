package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/qrgate/portal/internal/logging"
	"github.com/qrgate/portal/internal/store"
	"github.com/qrgate/portal/types"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// ResidentRepository defines persistence operations for residents.
type ResidentRepository interface {
	Create(ctx context.Context, res types.Resident) (types.Resident, error)
	GetByID(ctx context.Context, id string) (types.Resident, error)
	Update(ctx context.Context, id string, upd types.ResidentUpdate) (types.Resident, error)
	Delete(ctx context.Context, id string) error
	Page(ctx context.Context, limit, offset int) ([]types.HistoryRow, int, error)
	ListAll(ctx context.Context) ([]types.Resident, error)
}

// AccountRepository defines persistence operations for login accounts.
type AccountRepository interface {
	Create(ctx context.Context, a types.Account) (types.Account, error)
	GetByID(ctx context.Context, id string) (types.Account, error)
	GetByEmail(ctx context.Context, email string) (types.Account, error)
	Delete(ctx context.Context, id string) error
	GetAdmin(ctx context.Context, userID string) (types.Admin, error)
	GrantAdmin(ctx context.Context, userID, role string) error
}

// NotificationRepository defines persistence operations for notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n types.Notification) (types.Notification, error)
	MarkDone(ctx context.Context, id int64) error
	List(ctx context.Context, limit int) ([]types.Notification, error)
	ListOpen(ctx context.Context, limit int) ([]types.Notification, error)
}

// RegisterRequest is a resident self-registration.
type RegisterRequest struct {
	Name            string  `json:"name"`
	Phone           string  `json:"phone"`
	Unit            string  `json:"unit"`
	VehiclePlate    *string `json:"vehicle_plate"`
	Email           string  `json:"email"`
	Password        string  `json:"password"`
	PasswordConfirm string  `json:"passwordConfirm"`
}

// ResidentService covers registration, change requests and admin edits.
type ResidentService struct {
	residents     ResidentRepository
	accounts      AccountRepository
	notifications NotificationRepository
	events        *Publisher
	log           logging.Logger
	now           func() time.Time
	newID         func() string
}

func NewResidentService(
	residents ResidentRepository,
	accounts AccountRepository,
	notifications NotificationRepository,
	events *Publisher,
	log logging.Logger,
) *ResidentService {
	if log == nil {
		log = logging.Nop()
	}
	return &ResidentService{
		residents:     residents,
		accounts:      accounts,
		notifications: notifications,
		events:        events,
		log:           log,
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// Register creates a login account and a pending resident sharing its id.
// When the resident insert fails the account is removed again.
func (s *ResidentService) Register(ctx context.Context, req RegisterRequest) (string, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Unit = strings.TrimSpace(req.Unit)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Phone == "" || req.Unit == "" || req.Email == "" || req.Password == "" {
		return "", invalid("name, phone, unit, email and password are required")
	}
	if req.Password != req.PasswordConfirm {
		return "", invalid("passwords do not match")
	}
	if len(req.Password) < minPasswordLength {
		return "", invalid("password must be at least %d characters", minPasswordLength)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	now := s.now().UTC()
	account, err := s.accounts.Create(ctx, types.Account{
		ID:           s.newID(),
		Email:        req.Email,
		PasswordHash: string(hashed),
		CreatedAt:    now,
	})
	if err != nil {
		return "", err
	}

	plate := ""
	if req.VehiclePlate != nil {
		plate = strings.TrimSpace(*req.VehiclePlate)
	}
	email := req.Email
	_, err = s.residents.Create(ctx, types.Resident{
		ID:           account.ID,
		Name:         req.Name,
		Phone:        req.Phone,
		Email:        &email,
		Unit:         req.Unit,
		VehiclePlate: &plate,
		Status:       types.ResidentPending,
		CreatedAt:    now,
	})
	if err != nil {
		if delErr := s.accounts.Delete(ctx, account.ID); delErr != nil {
			s.log.Warn(ctx, "remove account after failed registration", "account_id", account.ID, "error", delErr)
		}
		return "", err
	}

	return account.ID, nil
}

// RequestChange records a resident_change notification for admins. Nothing
// is applied to the resident row.
func (s *ResidentService) RequestChange(ctx context.Context, accountID string, req types.ChangeRequest) (types.Notification, error) {
	if req.VehicleType != nil && !validVehicleType(*req.VehicleType) {
		return types.Notification{}, invalid("vehicle_type must be ice or ev")
	}

	recipient := accountID
	account, err := s.accounts.GetByID(ctx, accountID)
	switch {
	case err == nil && account.Email != "":
		recipient = account.Email
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return types.Notification{}, err
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return types.Notification{}, err
	}
	n, err := s.notifications.Create(ctx, types.Notification{
		Type:      types.NotificationResidentChange,
		Recipient: recipient,
		Payload:   payload,
	})
	if err != nil {
		return types.Notification{}, err
	}

	s.events.Publish(ctx, Event{
		Type:       EventChangeRequested,
		ResidentID: accountID,
		Recipient:  recipient,
		Data:       payload,
	})
	return n, nil
}

func (s *ResidentService) Get(ctx context.Context, id string) (types.Resident, error) {
	return s.residents.GetByID(ctx, id)
}

// Update applies an admin edit. Empty names are rejected.
func (s *ResidentService) Update(ctx context.Context, id string, upd types.ResidentUpdate) (types.Resident, error) {
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return types.Resident{}, invalid("name cannot be empty")
	}
	if upd.Phone != nil && strings.TrimSpace(*upd.Phone) == "" {
		return types.Resident{}, invalid("phone cannot be empty")
	}
	if upd.VehicleType != nil && *upd.VehicleType != "" && !validVehicleType(*upd.VehicleType) {
		return types.Resident{}, invalid("vehicle_type must be ice or ev")
	}
	if upd.VehicleType != nil && *upd.VehicleType == "" {
		upd.VehicleType = nil
	}
	return s.residents.Update(ctx, id, upd)
}

// Delete removes the resident and, through the foreign key, its tokens.
func (s *ResidentService) Delete(ctx context.Context, id string) error {
	return s.residents.Delete(ctx, id)
}

func validVehicleType(v string) bool {
	return v == types.VehicleICE || v == types.VehicleEV
}
