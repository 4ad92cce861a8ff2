package client

import (
	"context"
	"fmt"

	"github.com/qrgate/portal/internal/optimistic"
	"github.com/qrgate/portal/types"
)

// AdBoard is the admin ad list. Deletes and marquee toggles show up locally
// at once and are rolled back when the server rejects them.
type AdBoard struct {
	client *Client
	list   *optimistic.List[types.BannerAd]
}

func NewAdBoard(c *Client) *AdBoard {
	return &AdBoard{client: c, list: optimistic.NewList[types.BannerAd](nil)}
}

// Load replaces the local list with the server's.
func (b *AdBoard) Load(ctx context.Context) error {
	ads, err := b.client.ListAds(ctx)
	if err != nil {
		return err
	}
	b.list.Replace(ads)
	return nil
}

func (b *AdBoard) Items() []types.BannerAd {
	return b.list.Items()
}

func (b *AdBoard) Delete(ctx context.Context, id int64) error {
	return b.list.Remove(ctx,
		func(ad types.BannerAd) bool { return ad.ID == id },
		func(ctx context.Context) error { return b.client.DeleteAd(ctx, id) },
	)
}

// ToggleMarquee flips the ad's marquee flag and returns the new value. A
// null flag counts as shown.
func (b *AdBoard) ToggleMarquee(ctx context.Context, id int64) (bool, error) {
	current, ok := b.find(id)
	if !ok {
		return false, fmt.Errorf("ad %d is not loaded", id)
	}
	show := !Shown(current)

	err := b.list.Update(ctx,
		func(ad types.BannerAd) bool { return ad.ID == id },
		func(ad types.BannerAd) types.BannerAd {
			ad.ShowMarquee = &show
			return ad
		},
		func(ctx context.Context) error { return b.client.SetMarquee(ctx, id, show) },
	)
	if err != nil {
		return false, err
	}
	return show, nil
}

func (b *AdBoard) find(id int64) (types.BannerAd, bool) {
	for _, ad := range b.list.Items() {
		if ad.ID == id {
			return ad, true
		}
	}
	return types.BannerAd{}, false
}

// Shown reports whether the ad appears in the marquee.
func Shown(ad types.BannerAd) bool {
	return ad.ShowMarquee == nil || *ad.ShowMarquee
}
