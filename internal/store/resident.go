package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/qrgate/portal/internal/db"
	"github.com/qrgate/portal/types"
)

const residentColumns = `id, name, phone, email, unit, vehicle_plate, vehicle_type, status, created_at`

// ResidentRepository handles persistence for residents.
type ResidentRepository struct {
	db db.DBTX
}

func NewResidentRepository(conn db.DBTX) *ResidentRepository {
	return &ResidentRepository{db: conn}
}

func scanResident(row rowScanner) (types.Resident, error) {
	var r types.Resident
	err := row.Scan(
		&r.ID,
		&r.Name,
		&r.Phone,
		&r.Email,
		&r.Unit,
		&r.VehiclePlate,
		&r.VehicleType,
		&r.Status,
		&r.CreatedAt,
	)
	return r, err
}

// Upsert inserts the resident or, when the id exists, refreshes only its
// name, phone and vehicle plate. Status, unit, email and vehicle type of an
// existing row are never touched.
func (r *ResidentRepository) Upsert(ctx context.Context, res types.Resident) error {
	const query = `
		INSERT INTO resident (id, name, phone, unit, vehicle_plate, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			phone = EXCLUDED.phone,
			vehicle_plate = EXCLUDED.vehicle_plate`
	_, err := r.db.ExecContext(ctx, query,
		res.ID,
		res.Name,
		res.Phone,
		res.Unit,
		res.VehiclePlate,
		res.Status,
		res.CreatedAt,
	)
	return err
}

func (r *ResidentRepository) Create(ctx context.Context, res types.Resident) (types.Resident, error) {
	const query = `
		INSERT INTO resident (id, name, phone, email, unit, vehicle_plate, vehicle_type, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query,
		res.ID,
		res.Name,
		res.Phone,
		res.Email,
		res.Unit,
		res.VehiclePlate,
		res.VehicleType,
		res.Status,
		res.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.Resident{}, ErrAlreadyExists
		}
		return types.Resident{}, err
	}
	return res, nil
}

func (r *ResidentRepository) GetByID(ctx context.Context, id string) (types.Resident, error) {
	query := `SELECT ` + residentColumns + ` FROM resident WHERE id = $1`
	res, err := scanResident(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Resident{}, ErrNotFound
		}
		return types.Resident{}, err
	}
	return res, nil
}

// Update applies the non-nil fields of upd and returns the stored row.
func (r *ResidentRepository) Update(ctx context.Context, id string, upd types.ResidentUpdate) (types.Resident, error) {
	query := `
		UPDATE resident
		SET name = COALESCE($1, name),
			email = COALESCE($2, email),
			phone = COALESCE($3, phone),
			unit = COALESCE($4, unit),
			vehicle_plate = COALESCE($5, vehicle_plate),
			vehicle_type = COALESCE($6, vehicle_type)
		WHERE id = $7
		RETURNING ` + residentColumns
	res, err := scanResident(r.db.QueryRowContext(ctx, query,
		upd.Name,
		upd.Email,
		upd.Phone,
		upd.Unit,
		upd.VehiclePlate,
		upd.VehicleType,
		id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Resident{}, ErrNotFound
		}
		return types.Resident{}, err
	}
	return res, nil
}

// Delete removes the resident; its tokens go with it through the foreign key.
func (r *ResidentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM resident WHERE id = $1`
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

// ListAll returns every resident, newest first.
func (r *ResidentRepository) ListAll(ctx context.Context) ([]types.Resident, error) {
	query := `SELECT ` + residentColumns + ` FROM resident ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var residents []types.Resident
	for rows.Next() {
		res, err := scanResident(rows)
		if err != nil {
			return nil, err
		}
		residents = append(residents, res)
	}
	return residents, rows.Err()
}

// Page returns residents ordered newest first, each joined with its most
// recent token, together with the total resident count.
func (r *ResidentRepository) Page(ctx context.Context, limit, offset int) ([]types.HistoryRow, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM resident`).Scan(&total); err != nil {
		return nil, 0, err
	}

	const query = `
		SELECT r.id, r.name, r.phone, r.email, r.unit, r.vehicle_plate, r.vehicle_type, r.status, r.created_at,
			t.id, t.token, t.token_version, t.expires_at, t.revoked, t.created_at
		FROM resident r
		LEFT JOIN LATERAL (
			SELECT id, token, token_version, expires_at, revoked, created_at
			FROM qr_tokens
			WHERE resident_id = r.id
			ORDER BY created_at DESC
			LIMIT 1
		) t ON TRUE
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []types.HistoryRow
	for rows.Next() {
		var (
			row          types.HistoryRow
			tokenID      sql.NullString
			tokenValue   sql.NullString
			tokenVersion sql.NullInt64
			expiresAt    sql.NullTime
			revoked      sql.NullBool
			tokenCreated sql.NullTime
		)
		if err := rows.Scan(
			&row.ID,
			&row.Name,
			&row.Phone,
			&row.Email,
			&row.Unit,
			&row.VehiclePlate,
			&row.VehicleType,
			&row.Status,
			&row.CreatedAt,
			&tokenID,
			&tokenValue,
			&tokenVersion,
			&expiresAt,
			&revoked,
			&tokenCreated,
		); err != nil {
			return nil, 0, err
		}
		if tokenID.Valid {
			tok := &types.Token{
				ID:           tokenID.String,
				ResidentID:   row.ID,
				Token:        tokenValue.String,
				TokenVersion: int(tokenVersion.Int64),
				Revoked:      revoked.Bool,
				CreatedAt:    tokenCreated.Time,
			}
			if expiresAt.Valid {
				exp := expiresAt.Time
				tok.ExpiresAt = &exp
			}
			row.Token = tok
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
