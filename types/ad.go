package types

import "time"

// BannerAd is an advertisement shown in the banner list and, when
// ShowMarquee is not false, in the scrolling marquee.
type BannerAd struct {
	ID          int64     `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Link        *string   `json:"link" db:"link"`
	ImageURL    *string   `json:"image_url" db:"image_url"`
	ImageKey    *string   `json:"-" db:"image_key"`
	ShowMarquee *bool     `json:"show_marquee" db:"show_marquee"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
