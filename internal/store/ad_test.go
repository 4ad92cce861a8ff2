package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/qrgate/portal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var adCols = []string{"id", "title", "link", "image_url", "image_key", "show_marquee", "created_at"}

func TestAdRepository_ListMarqueeIncludesUnset(t *testing.T) {
	conn, mock := newMock(t)
	repo := NewAdRepository(conn)
	now := time.Now().UTC()

	mock.ExpectQuery(`WHERE show_marquee IS NULL OR show_marquee = TRUE`).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows(adCols).
			AddRow(2, "Sale", "https://shop.example", nil, nil, nil, now).
			AddRow(1, "Gym", nil, nil, nil, true, now.Add(-time.Hour)))

	ads, err := repo.ListMarquee(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, ads, 2)
	assert.Nil(t, ads[0].ShowMarquee)
	require.NotNil(t, ads[1].ShowMarquee)
	assert.True(t, *ads[1].ShowMarquee)
}

func TestAdRepository_CreateAndToggle(t *testing.T) {
	conn, mock := newMock(t)
	repo := NewAdRepository(conn)
	now := time.Now().UTC()
	show := true

	mock.ExpectQuery(`INSERT INTO banner_ads`).
		WithArgs("Sale", nil, nil, nil, true).
		WillReturnRows(sqlmock.NewRows(adCols).AddRow(5, "Sale", nil, nil, nil, true, now))
	mock.ExpectExec(`UPDATE banner_ads SET show_marquee = \$1 WHERE id = \$2`).
		WithArgs(false, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`DELETE FROM banner_ads WHERE id = \$1 RETURNING`).
		WithArgs(int64(6)).
		WillReturnRows(sqlmock.NewRows(adCols))

	ad, err := repo.Create(context.Background(), types.BannerAd{Title: "Sale", ShowMarquee: &show})
	require.NoError(t, err)
	assert.Equal(t, int64(5), ad.ID)

	require.NoError(t, repo.SetMarquee(context.Background(), 5, false))
	_, err = repo.Delete(context.Background(), 6)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAdRepository_DeleteReturnsImageKey(t *testing.T) {
	conn, mock := newMock(t)
	repo := NewAdRepository(conn)
	now := time.Now().UTC()

	mock.ExpectQuery(`DELETE FROM banner_ads WHERE id = \$1 RETURNING`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(adCols).
			AddRow(3, "Gym", nil, "https://cdn.example/ads/1-gym.png", "ads/1-gym.png", true, now))

	ad, err := repo.Delete(context.Background(), 3)
	require.NoError(t, err)
	require.NotNil(t, ad.ImageKey)
	assert.Equal(t, "ads/1-gym.png", *ad.ImageKey)
}
