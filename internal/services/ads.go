package services

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/qrgate/portal/internal/logging"
	"github.com/qrgate/portal/types"
)

// MarqueeLimit caps the public marquee feed.
const MarqueeLimit = 10

const adImagePrefix = "ads"

// AdRepository defines persistence operations for banner ads.
type AdRepository interface {
	Create(ctx context.Context, ad types.BannerAd) (types.BannerAd, error)
	List(ctx context.Context) ([]types.BannerAd, error)
	ListMarquee(ctx context.Context, limit int) ([]types.BannerAd, error)
	SetMarquee(ctx context.Context, id int64, show bool) error
	Delete(ctx context.Context, id int64) (types.BannerAd, error)
}

// CreateAdRequest is a new banner ad with an optional image.
type CreateAdRequest struct {
	Title       string
	Link        string
	ImageURL    string
	ShowMarquee *bool
	Image       *Upload
}

// AdService manages banner ads.
type AdService struct {
	repo    AdRepository
	objects ObjectStore
	log     logging.Logger
	now     func() time.Time
}

// NewAdService accepts a nil objects store; image uploads then fail with
// ErrStorageDisabled.
func NewAdService(repo AdRepository, objects ObjectStore, log logging.Logger) *AdService {
	if log == nil {
		log = logging.Nop()
	}
	return &AdService{repo: repo, objects: objects, log: log, now: time.Now}
}

func (s *AdService) List(ctx context.Context) ([]types.BannerAd, error) {
	return s.repo.List(ctx)
}

// Marquee returns the ads shown in the scrolling banner.
func (s *AdService) Marquee(ctx context.Context) ([]types.BannerAd, error) {
	return s.repo.ListMarquee(ctx, MarqueeLimit)
}

// Create stores the ad. An uploaded image is referenced by its public URL
// and takes precedence over req.ImageURL.
func (s *AdService) Create(ctx context.Context, req CreateAdRequest) (types.BannerAd, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return types.BannerAd{}, invalid("title is required")
	}

	ad := types.BannerAd{Title: title, ShowMarquee: req.ShowMarquee}
	if ad.ShowMarquee == nil {
		show := true
		ad.ShowMarquee = &show
	}
	if link := strings.TrimSpace(req.Link); link != "" {
		ad.Link = &link
	}
	if imageURL := strings.TrimSpace(req.ImageURL); imageURL != "" {
		ad.ImageURL = &imageURL
	}

	if req.Image != nil && len(req.Image.Data) > 0 {
		if s.objects == nil {
			return types.BannerAd{}, ErrStorageDisabled
		}
		key := objectKey(adImagePrefix, req.Image.Filename, s.now())
		if err := s.objects.Put(ctx, key, bytes.NewReader(req.Image.Data), int64(len(req.Image.Data)), req.Image.ContentType); err != nil {
			return types.BannerAd{}, err
		}
		url := s.objects.PublicURL(key)
		ad.ImageURL = &url
		ad.ImageKey = &key
	}

	return s.repo.Create(ctx, ad)
}

func (s *AdService) SetMarquee(ctx context.Context, id int64, show bool) error {
	return s.repo.SetMarquee(ctx, id, show)
}

// Delete removes the ad and then its uploaded image, if any. A failed
// image removal is logged and leaves the ad deleted.
func (s *AdService) Delete(ctx context.Context, id int64) error {
	ad, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if ad.ImageKey == nil || s.objects == nil {
		return nil
	}
	if err := s.objects.Delete(ctx, *ad.ImageKey); err != nil {
		s.log.Warn(ctx, "delete ad image", "ad_id", id, "key", *ad.ImageKey, "error", err)
	}
	return nil
}
