package store

import (
	"context"
	"time"

	"github.com/qrgate/portal/internal/db"
	"github.com/qrgate/portal/types"
)

const gasColumns = `id, user_id, reading_value, read_at, note, image_url, ocr_value, expires_at, created_at`

// GasRepository handles persistence for gas-meter readings.
type GasRepository struct {
	db db.DBTX
}

func NewGasRepository(conn db.DBTX) *GasRepository {
	return &GasRepository{db: conn}
}

// GasSummary aggregates one resident's readings.
type GasSummary struct {
	UserID       string
	Count        int
	LatestReadAt time.Time
}

func (r *GasRepository) Create(ctx context.Context, g types.GasReading) (types.GasReading, error) {
	query := `
		INSERT INTO gas_readings (user_id, reading_value, read_at, note, image_url, ocr_value, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + gasColumns
	var out types.GasReading
	err := r.db.QueryRowContext(ctx, query,
		g.UserID,
		g.ReadingValue,
		g.ReadAt,
		g.Note,
		g.ImageURL,
		g.OCRValue,
		g.ExpiresAt,
	).Scan(
		&out.ID,
		&out.UserID,
		&out.ReadingValue,
		&out.ReadAt,
		&out.Note,
		&out.ImageURL,
		&out.OCRValue,
		&out.ExpiresAt,
		&out.CreatedAt,
	)
	if err != nil {
		return types.GasReading{}, err
	}
	return out, nil
}

// ListByUser returns a resident's readings, most recently read first.
func (r *GasRepository) ListByUser(ctx context.Context, userID string, limit int) ([]types.GasReading, error) {
	query := `SELECT ` + gasColumns + ` FROM gas_readings WHERE user_id = $1 ORDER BY read_at DESC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.GasReading
	for rows.Next() {
		var g types.GasReading
		if err := rows.Scan(
			&g.ID,
			&g.UserID,
			&g.ReadingValue,
			&g.ReadAt,
			&g.Note,
			&g.ImageURL,
			&g.OCRValue,
			&g.ExpiresAt,
			&g.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// ListRecent returns the latest readings joined with resident name and unit.
func (r *GasRepository) ListRecent(ctx context.Context, limit int) ([]types.GasReadingView, error) {
	const query = `
		SELECT g.id, g.user_id, g.reading_value, g.read_at, g.note, g.image_url, g.ocr_value, g.expires_at, g.created_at,
			r.name, r.unit
		FROM gas_readings g
		LEFT JOIN resident r ON r.id = g.user_id
		ORDER BY g.read_at DESC
		LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.GasReadingView
	for rows.Next() {
		var g types.GasReadingView
		if err := rows.Scan(
			&g.ID,
			&g.UserID,
			&g.ReadingValue,
			&g.ReadAt,
			&g.Note,
			&g.ImageURL,
			&g.OCRValue,
			&g.ExpiresAt,
			&g.CreatedAt,
			&g.ResidentName,
			&g.ResidentUnit,
		); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *GasRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM gas_readings`).Scan(&n)
	return n, err
}

// Summaries returns per-resident reading counts and latest read time.
func (r *GasRepository) Summaries(ctx context.Context) ([]GasSummary, error) {
	const query = `
		SELECT user_id, COUNT(*), MAX(read_at)
		FROM gas_readings
		GROUP BY user_id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GasSummary
	for rows.Next() {
		var s GasSummary
		if err := rows.Scan(&s.UserID, &s.Count, &s.LatestReadAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
