// Package mail sends transactional email, mainly QR code deliveries.
package mail

import (
	"context"
	"encoding/base64"
	"errors"
	"regexp"
)

// Defaults for QR delivery emails when the caller gives no subject or body.
const (
	DefaultQRSubject  = "Your resident QR code"
	DefaultQRHTML     = "<p>Your QR code is attached.</p>"
	QRAttachmentName  = "qr.png"
	pngDataURLPattern = `^data:image/png;base64,(.+)$`
)

var (
	// ErrDisabled is returned when no provider key or sender address is configured.
	ErrDisabled = errors.New("email provider is not configured")
	// ErrMalformedDataURL is returned for anything other than a base64 PNG data URL.
	ErrMalformedDataURL = errors.New("pngDataUrl must be a data:image/png;base64 URL")
)

var pngDataURL = regexp.MustCompile(pngDataURLPattern)

type Attachment struct {
	Filename string
	Content  []byte
}

type Email struct {
	To          []string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Sender delivers an email.
type Sender interface {
	Send(ctx context.Context, email Email) error
}

// ParsePNGDataURL returns the PNG bytes of a data:image/png;base64 URL.
func ParsePNGDataURL(dataURL string) ([]byte, error) {
	m := pngDataURL.FindStringSubmatch(dataURL)
	if m == nil {
		return nil, ErrMalformedDataURL
	}
	raw, err := base64.StdEncoding.DecodeString(m[1])
	if err != nil {
		return nil, ErrMalformedDataURL
	}
	return raw, nil
}

// Disabled rejects every send with ErrDisabled.
type Disabled struct{}

func (Disabled) Send(context.Context, Email) error { return ErrDisabled }
