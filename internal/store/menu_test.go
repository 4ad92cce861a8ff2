package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/qrgate/portal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMenuRepository_SetAndList(t *testing.T) {
	conn, mock := newMock(t)
	repo := NewMenuRepository(conn)

	mock.ExpectExec(`INSERT INTO menu_visibility .* ON CONFLICT \(role, menu_id\) DO UPDATE`).
		WithArgs("member", "ads", false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT role, menu_id, visible FROM menu_visibility`).
		WillReturnRows(sqlmock.NewRows([]string{"role", "menu_id", "visible"}).AddRow("member", "ads", false))

	require.NoError(t, repo.Set(context.Background(), types.MenuVisibility{Role: "member", MenuID: "ads", Visible: false}))

	flags, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []types.MenuVisibility{{Role: "member", MenuID: "ads", Visible: false}}, flags)
}
