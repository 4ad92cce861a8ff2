package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/qrgate/portal/internal/db"
	"github.com/qrgate/portal/types"
)

const notificationColumns = `id, type, recipient, payload, done, created_at`

// NotificationRepository handles persistence for admin notifications.
type NotificationRepository struct {
	db db.DBTX
}

func NewNotificationRepository(conn db.DBTX) *NotificationRepository {
	return &NotificationRepository{db: conn}
}

func scanNotification(row rowScanner) (types.Notification, error) {
	var (
		n       types.Notification
		payload []byte
	)
	if err := row.Scan(&n.ID, &n.Type, &n.Recipient, &payload, &n.Done, &n.CreatedAt); err != nil {
		return types.Notification{}, err
	}
	n.Payload = json.RawMessage(payload)
	return n, nil
}

func (r *NotificationRepository) Create(ctx context.Context, n types.Notification) (types.Notification, error) {
	payload := []byte(n.Payload)
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	query := `
		INSERT INTO notifications (type, recipient, payload, done)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + notificationColumns
	return scanNotification(r.db.QueryRowContext(ctx, query, n.Type, n.Recipient, string(payload), n.Done))
}

func (r *NotificationRepository) GetByID(ctx context.Context, id int64) (types.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`
	n, err := scanNotification(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Notification{}, ErrNotFound
		}
		return types.Notification{}, err
	}
	return n, nil
}

// MarkDone sets done; repeating it on a done row succeeds.
func (r *NotificationRepository) MarkDone(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `UPDATE notifications SET done = TRUE WHERE id = $1`, id)
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

// List returns open items first, newest first within each group.
func (r *NotificationRepository) List(ctx context.Context, limit int) ([]types.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications ORDER BY done ASC, created_at DESC LIMIT $1`
	return r.list(ctx, query, limit)
}

func (r *NotificationRepository) ListOpen(ctx context.Context, limit int) ([]types.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE done = FALSE ORDER BY created_at DESC LIMIT $1`
	return r.list(ctx, query, limit)
}

func (r *NotificationRepository) list(ctx context.Context, query string, limit int) ([]types.Notification, error) {
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
