package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/qrgate/portal/internal/db"
	"github.com/qrgate/portal/types"
)

const adColumns = `id, title, link, image_url, image_key, show_marquee, created_at`

// AdRepository handles persistence for banner ads.
type AdRepository struct {
	db db.DBTX
}

func NewAdRepository(conn db.DBTX) *AdRepository {
	return &AdRepository{db: conn}
}

func scanAd(row rowScanner) (types.BannerAd, error) {
	var ad types.BannerAd
	err := row.Scan(&ad.ID, &ad.Title, &ad.Link, &ad.ImageURL, &ad.ImageKey, &ad.ShowMarquee, &ad.CreatedAt)
	return ad, err
}

func (r *AdRepository) Create(ctx context.Context, ad types.BannerAd) (types.BannerAd, error) {
	query := `
		INSERT INTO banner_ads (title, link, image_url, image_key, show_marquee)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + adColumns
	return scanAd(r.db.QueryRowContext(ctx, query, ad.Title, ad.Link, ad.ImageURL, ad.ImageKey, ad.ShowMarquee))
}

func (r *AdRepository) List(ctx context.Context) ([]types.BannerAd, error) {
	return r.list(ctx, `SELECT `+adColumns+` FROM banner_ads ORDER BY created_at DESC, id DESC`)
}

// ListMarquee returns ads whose show_marquee is true or unset.
func (r *AdRepository) ListMarquee(ctx context.Context, limit int) ([]types.BannerAd, error) {
	query := `
		SELECT ` + adColumns + `
		FROM banner_ads
		WHERE show_marquee IS NULL OR show_marquee = TRUE
		ORDER BY created_at DESC, id DESC
		LIMIT $1`
	return r.list(ctx, query, limit)
}

func (r *AdRepository) list(ctx context.Context, query string, args ...any) ([]types.BannerAd, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ads []types.BannerAd
	for rows.Next() {
		ad, err := scanAd(rows)
		if err != nil {
			return nil, err
		}
		ads = append(ads, ad)
	}
	return ads, rows.Err()
}

func (r *AdRepository) SetMarquee(ctx context.Context, id int64, show bool) error {
	return execAffectingOne(ctx, r.db, `UPDATE banner_ads SET show_marquee = $1 WHERE id = $2`, show, id)
}

// Delete removes the ad and returns the deleted row.
func (r *AdRepository) Delete(ctx context.Context, id int64) (types.BannerAd, error) {
	query := `DELETE FROM banner_ads WHERE id = $1 RETURNING ` + adColumns
	ad, err := scanAd(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.BannerAd{}, ErrNotFound
	}
	return ad, err
}

func execAffectingOne(ctx context.Context, conn db.DBTX, query string, args ...any) error {
	result, err := conn.ExecContext(ctx, query, args...)
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
