package services

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/qrgate/portal/internal/store"
	"github.com/qrgate/portal/types"
	"golang.org/x/crypto/bcrypt"
)

var adminRoles = []string{types.RoleSuperAdmin, types.RoleAdmin, types.RoleManager}

// Session describes a signed-in account.
type Session struct {
	Account types.Account `json:"user"`
	Role    string        `json:"role"`
	IsAdmin bool          `json:"isAdmin"`
}

// AuthService checks credentials and resolves roles.
type AuthService struct {
	accounts AccountRepository
	now      func() time.Time
}

func NewAuthService(accounts AccountRepository) *AuthService {
	return &AuthService{accounts: accounts, now: time.Now}
}

// Login verifies email and password. Unknown emails and wrong passwords
// both yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return Session{}, invalid("missing credentials")
	}
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	return s.sessionFor(ctx, account)
}

// Session loads the account behind a token subject.
func (s *AuthService) Session(ctx context.Context, accountID string) (Session, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return Session{}, err
	}
	return s.sessionFor(ctx, account)
}

func (s *AuthService) sessionFor(ctx context.Context, account types.Account) (Session, error) {
	admin, err := s.accounts.GetAdmin(ctx, account.ID)
	switch {
	case err == nil:
		return Session{Account: account, Role: admin.Role, IsAdmin: true}, nil
	case errors.Is(err, store.ErrNotFound):
		return Session{Account: account, Role: types.RoleMember}, nil
	default:
		return Session{}, err
	}
}

// GrantAdmin gives the account with email an admin role.
func (s *AuthService) GrantAdmin(ctx context.Context, email, role string) error {
	if !slices.Contains(adminRoles, role) {
		return invalid("role must be one of %s", strings.Join(adminRoles, ", "))
	}
	account, err := s.accounts.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return err
	}
	return s.accounts.GrantAdmin(ctx, account.ID, role)
}
