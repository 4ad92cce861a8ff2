package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/qrgate/portal/internal/db"
	"github.com/qrgate/portal/types"
)

// AccountRepository handles persistence for login accounts and admin grants.
type AccountRepository struct {
	db db.DBTX
}

func NewAccountRepository(conn db.DBTX) *AccountRepository {
	return &AccountRepository{db: conn}
}

func (r *AccountRepository) Create(ctx context.Context, a types.Account) (types.Account, error) {
	const query = `
		INSERT INTO accounts (id, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING created_at`
	if err := r.db.QueryRowContext(ctx, query, a.ID, a.Email, a.PasswordHash).Scan(&a.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return types.Account{}, ErrAlreadyExists
		}
		return types.Account{}, err
	}
	return a, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (types.Account, error) {
	const query = `SELECT id, email, password_hash, created_at FROM accounts WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (types.Account, error) {
	const query = `SELECT id, email, password_hash, created_at FROM accounts WHERE lower(email) = lower($1)`
	return r.getOne(ctx, query, email)
}

func (r *AccountRepository) getOne(ctx context.Context, query string, arg string) (types.Account, error) {
	var a types.Account
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Account{}, ErrNotFound
		}
		return types.Account{}, err
	}
	return a, nil
}

func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	return execAffectingOne(ctx, r.db, `DELETE FROM accounts WHERE id = $1`, id)
}

// GetAdmin returns the admin grant for the account, or ErrNotFound.
func (r *AccountRepository) GetAdmin(ctx context.Context, userID string) (types.Admin, error) {
	const query = `SELECT user_id, role, created_at FROM admins WHERE user_id = $1`
	var a types.Admin
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&a.UserID, &a.Role, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Admin{}, ErrNotFound
		}
		return types.Admin{}, err
	}
	return a, nil
}

// GrantAdmin creates or replaces the account's admin role.
func (r *AccountRepository) GrantAdmin(ctx context.Context, userID, role string) error {
	const query = `
		INSERT INTO admins (user_id, role)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET role = EXCLUDED.role`
	_, err := r.db.ExecContext(ctx, query, userID, role)
	return err
}
