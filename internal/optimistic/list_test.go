package optimistic

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ad struct {
	ID      int
	Marquee bool
}

func TestList_RemoveCommits(t *testing.T) {
	l := NewList([]ad{{ID: 1}, {ID: 2}, {ID: 3}})

	var seenDuringRemote []ad
	err := l.Remove(context.Background(), func(a ad) bool { return a.ID == 2 }, func(context.Context) error {
		seenDuringRemote = l.Items()
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []ad{{ID: 1}, {ID: 3}}, seenDuringRemote, "local change is visible before the remote call returns")
	assert.Equal(t, []ad{{ID: 1}, {ID: 3}}, l.Items())
}

func TestList_RemoveRollsBack(t *testing.T) {
	l := NewList([]ad{{ID: 1}, {ID: 2}})
	boom := errors.New("boom")

	err := l.Remove(context.Background(), func(a ad) bool { return a.ID == 1 }, func(context.Context) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []ad{{ID: 1}, {ID: 2}}, l.Items())
}

func TestList_UpdateRollsBack(t *testing.T) {
	l := NewList([]ad{{ID: 1, Marquee: true}})

	err := l.Update(context.Background(),
		func(a ad) bool { return a.ID == 1 },
		func(a ad) ad { a.Marquee = false; return a },
		func(context.Context) error { return errors.New("offline") },
	)
	require.Error(t, err)
	assert.Equal(t, []ad{{ID: 1, Marquee: true}}, l.Items())

	err = l.Update(context.Background(),
		func(a ad) bool { return a.ID == 1 },
		func(a ad) ad { a.Marquee = false; return a },
		func(context.Context) error { return nil },
	)
	require.NoError(t, err)
	assert.Equal(t, []ad{{ID: 1, Marquee: false}}, l.Items())
}

func TestList_ItemsIsACopy(t *testing.T) {
	src := []ad{{ID: 1}}
	l := NewList(src)
	src[0].ID = 9

	items := l.Items()
	items[0].ID = 7
	assert.Equal(t, []ad{{ID: 1}}, l.Items())
}
