package store

import (
	"context"

	"github.com/qrgate/portal/internal/db"
	"github.com/qrgate/portal/types"
)

// MenuRepository persists per-role menu visibility flags.
type MenuRepository struct {
	db db.DBTX
}

func NewMenuRepository(conn db.DBTX) *MenuRepository {
	return &MenuRepository{db: conn}
}

func (r *MenuRepository) List(ctx context.Context) ([]types.MenuVisibility, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT role, menu_id, visible FROM menu_visibility ORDER BY role, menu_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.MenuVisibility
	for rows.Next() {
		var v types.MenuVisibility
		if err := rows.Scan(&v.Role, &v.MenuID, &v.Visible); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *MenuRepository) Set(ctx context.Context, v types.MenuVisibility) error {
	const query = `
		INSERT INTO menu_visibility (role, menu_id, visible, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (role, menu_id) DO UPDATE
		SET visible = EXCLUDED.visible,
			updated_at = NOW()`
	_, err := r.db.ExecContext(ctx, query, v.Role, v.MenuID, v.Visible)
	return err
}
