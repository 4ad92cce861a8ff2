package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/qrgate/portal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var residentCols = []string{"id", "name", "phone", "email", "unit", "vehicle_plate", "vehicle_type", "status", "created_at"}

func TestResidentRepository_UpsertOnlyRefreshesIdentityFields(t *testing.T) {
	conn, mock := newMock(t)
	repo := NewResidentRepository(conn)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO resident .* ON CONFLICT \(id\) DO UPDATE\s+SET name = EXCLUDED.name,\s+phone = EXCLUDED.phone,\s+vehicle_plate = EXCLUDED.vehicle_plate$`).
		WithArgs("r1", "Kim", "010-1234-5678", "", "12가3456", types.ResidentActive, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(context.Background(), types.Resident{
		ID:           "r1",
		Name:         "Kim",
		Phone:        "010-1234-5678",
		VehiclePlate: strPtr("12가3456"),
		Status:       types.ResidentActive,
		CreatedAt:    now,
	})
	require.NoError(t, err)
}

func TestResidentRepository_CreateDuplicate(t *testing.T) {
	conn, mock := newMock(t)
	repo := NewResidentRepository(conn)

	mock.ExpectExec(`INSERT INTO resident`).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := repo.Create(context.Background(), types.Resident{ID: "r1", Name: "Kim", Phone: "1", Status: types.ResidentPending})
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestResidentRepository_GetByIDNotFound(t *testing.T) {
	conn, mock := newMock(t)
	repo := NewResidentRepository(conn)

	mock.ExpectQuery(`SELECT .* FROM resident WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(residentCols))

	_, err := repo.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestResidentRepository_Update(t *testing.T) {
	conn, mock := newMock(t)
	repo := NewResidentRepository(conn)
	created := time.Now().UTC()

	mock.ExpectQuery(`UPDATE resident\s+SET name = COALESCE\(\$1, name\)`).
		WithArgs(nil, nil, nil, "101 1203", nil, "ev", "r1").
		WillReturnRows(sqlmock.NewRows(residentCols).
			AddRow("r1", "Kim", "010", nil, "101 1203", "12가3456", "ev", "active", created))

	res, err := repo.Update(context.Background(), "r1", types.ResidentUpdate{
		Unit:        strPtr("101 1203"),
		VehicleType: strPtr("ev"),
	})
	require.NoError(t, err)
	assert.Equal(t, "101 1203", res.Unit)
	assert.Nil(t, res.Email)
	require.NotNil(t, res.VehicleType)
	assert.Equal(t, "ev", *res.VehicleType)
}

func TestResidentRepository_DeleteNotFound(t *testing.T) {
	conn, mock := newMock(t)
	repo := NewResidentRepository(conn)

	mock.ExpectExec(`DELETE FROM resident WHERE id = \$1`).
		WithArgs("r1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.ErrorIs(t, repo.Delete(context.Background(), "r1"), ErrNotFound)
}

func TestResidentRepository_Page(t *testing.T) {
	conn, mock := newMock(t)
	repo := NewResidentRepository(conn)
	created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	expires := created.AddDate(1, 0, 0)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM resident`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(21))
	mock.ExpectQuery(`LEFT JOIN LATERAL`).
		WithArgs(20, 20).
		WillReturnRows(sqlmock.NewRows(append(residentCols,
			"t_id", "token", "token_version", "expires_at", "revoked", "t_created_at")).
			AddRow("r2", "Lee", "011", "lee@example.com", "102 301", nil, nil, "active", created,
				"t1", "tok-1", 1, expires, false, created).
			AddRow("r1", "Kim", "010", nil, "", nil, nil, "pending", created,
				nil, nil, nil, nil, nil, nil))

	rows, total, err := repo.Page(context.Background(), 20, 20)
	require.NoError(t, err)
	assert.Equal(t, 21, total)
	require.Len(t, rows, 2)

	require.NotNil(t, rows[0].Token)
	assert.Equal(t, "tok-1", rows[0].Token.Token)
	assert.Equal(t, "r2", rows[0].Token.ResidentID)
	require.NotNil(t, rows[0].Token.ExpiresAt)
	assert.True(t, rows[0].Token.ExpiresAt.Equal(expires))

	assert.Nil(t, rows[1].Token)
}
