package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/qrgate/portal/internal/db"
	"github.com/qrgate/portal/types"
)

const tokenColumns = `id, resident_id, token, token_version, expires_at, revoked, created_at`

// TokenRepository handles persistence for QR tokens.
type TokenRepository struct {
	db db.DBTX
}

func NewTokenRepository(conn db.DBTX) *TokenRepository {
	return &TokenRepository{db: conn}
}

// ResidentTokenCount is the number of tokens issued to one resident.
type ResidentTokenCount struct {
	ResidentID string `json:"resident_id"`
	Name       string `json:"name"`
	Count      int    `json:"count"`
}

func scanToken(row rowScanner) (types.Token, error) {
	var t types.Token
	err := row.Scan(
		&t.ID,
		&t.ResidentID,
		&t.Token,
		&t.TokenVersion,
		&t.ExpiresAt,
		&t.Revoked,
		&t.CreatedAt,
	)
	return t, err
}

func (r *TokenRepository) Insert(ctx context.Context, t types.Token) (types.Token, error) {
	const query = `
		INSERT INTO qr_tokens (id, resident_id, token, token_version, expires_at, revoked, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query,
		t.ID,
		t.ResidentID,
		t.Token,
		t.TokenVersion,
		t.ExpiresAt,
		t.Revoked,
		t.CreatedAt,
	); err != nil {
		return types.Token{}, err
	}
	return t, nil
}

func (r *TokenRepository) GetByID(ctx context.Context, id string) (types.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM qr_tokens WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByToken returns the newest row carrying the given token value.
func (r *TokenRepository) GetByToken(ctx context.Context, token string) (types.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM qr_tokens WHERE token = $1 ORDER BY created_at DESC LIMIT 1`
	return r.getOne(ctx, query, token)
}

// Latest returns the resident's current token.
func (r *TokenRepository) Latest(ctx context.Context, residentID string) (types.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM qr_tokens WHERE resident_id = $1 ORDER BY created_at DESC LIMIT 1`
	return r.getOne(ctx, query, residentID)
}

func (r *TokenRepository) getOne(ctx context.Context, query string, arg any) (types.Token, error) {
	t, err := scanToken(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Token{}, ErrNotFound
		}
		return types.Token{}, err
	}
	return t, nil
}

func (r *TokenRepository) ListByResident(ctx context.Context, residentID string) ([]types.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM qr_tokens WHERE resident_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, residentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []types.Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (r *TokenRepository) Revoke(ctx context.Context, id string) error {
	return r.execOne(ctx, `UPDATE qr_tokens SET revoked = TRUE WHERE id = $1`, id)
}

// Delete removes a single token row; the resident is kept.
func (r *TokenRepository) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, `DELETE FROM qr_tokens WHERE id = $1`, id)
}

func (r *TokenRepository) execOne(ctx context.Context, query string, id string) error {
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TokenRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM qr_tokens`).Scan(&n)
	return n, err
}

// CountByResident returns issuance counts, busiest residents first.
func (r *TokenRepository) CountByResident(ctx context.Context, limit int) ([]ResidentTokenCount, error) {
	const query = `
		SELECT t.resident_id, COALESCE(r.name, ''), COUNT(*)
		FROM qr_tokens t
		LEFT JOIN resident r ON r.id = t.resident_id
		GROUP BY t.resident_id, r.name
		ORDER BY COUNT(*) DESC, t.resident_id
		LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ResidentTokenCount
	for rows.Next() {
		var c ResidentTokenCount
		if err := rows.Scan(&c.ResidentID, &c.Name, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
