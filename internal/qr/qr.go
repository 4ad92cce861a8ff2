// Package qr encodes resident payloads into QR images and parses scanned text.
package qr

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strconv"
	"strings"

	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"
	"github.com/skip2/go-qrcode"
)

const (
	PayloadVersion = 1
	// ImageSize is the edge length in pixels of rendered codes.
	ImageSize = 256
)

// ErrNotJSON is returned when scanned text is not a JSON value (or is null).
var ErrNotJSON = errors.New("QR content was read but is not JSON")

// ErrNoCode is returned when an image holds no readable QR code.
var ErrNoCode = errors.New("no QR code found in image")

// Payload is the JSON document embedded in a resident QR code.
type Payload struct {
	V     int    `json:"v"`
	Phone string `json:"phone"`
	Token string `json:"token"`
}

func NewPayload(phone, token string) Payload {
	return Payload{V: PayloadVersion, Phone: phone, Token: token}
}

// String returns the compact JSON form that is encoded into the image.
func (p Payload) String() string {
	raw, _ := json.Marshal(p)
	return string(raw)
}

// EncodePNG renders text as a PNG QR code with medium error correction.
func EncodePNG(text string) ([]byte, error) {
	png, err := qrcode.Encode(text, qrcode.Medium, ImageSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

// DataURL wraps PNG bytes as a data:image/png;base64 URL.
func DataURL(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}

// PayloadDataURL renders p and returns it as a PNG data URL.
func PayloadDataURL(p Payload) (string, error) {
	png, err := EncodePNG(p.String())
	if err != nil {
		return "", err
	}
	return DataURL(png), nil
}

// DecodeImage returns the text of the first QR code found in img.
func DecodeImage(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("prepare bitmap: %w", err)
	}
	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	result, err := zxqr.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		return "", ErrNoCode
	}
	return result.GetText(), nil
}

// DecodeReader decodes a PNG or JPEG stream and reads its QR code.
func DecodeReader(r io.Reader) (string, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	return DecodeImage(img)
}

// DecodeBytes is DecodeReader over an in-memory image.
func DecodeBytes(b []byte) (string, error) {
	return DecodeReader(bytes.NewReader(b))
}

// Scan is what a scanner shows for decoded text. Resident only reflects that
// a phone-like field was present; nothing is checked against stored tokens.
type Scan struct {
	Phone    string `json:"phone"`
	Token    string `json:"token"`
	Resident bool   `json:"resident"`
}

// ParseScan interprets scanned text. The phone is taken from the first
// non-null of "phone", "tel" and "contact". JSON that is not an object
// yields an empty Scan.
func ParseScan(text string) (Scan, error) {
	trimmed := strings.TrimSpace(text)
	if !json.Valid([]byte(trimmed)) || trimmed == "null" {
		return Scan{}, ErrNotJSON
	}
	if !strings.HasPrefix(trimmed, "{") {
		return Scan{}, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return Scan{}, ErrNotJSON
	}

	phone := firstPresent(obj, "phone", "tel", "contact")
	token := firstPresent(obj, "token")
	return Scan{
		Phone:    display(phone),
		Token:    display(token),
		Resident: truthy(phone),
	}, nil
}

func firstPresent(obj map[string]json.RawMessage, keys ...string) json.RawMessage {
	for _, k := range keys {
		if v, ok := obj[k]; ok && string(v) != "null" {
			return v
		}
	}
	return nil
}

func display(v json.RawMessage) string {
	if v == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return string(v)
}

func truthy(v json.RawMessage) bool {
	if v == nil {
		return false
	}
	switch raw := string(v); {
	case raw == "true":
		return true
	case raw == "false":
		return false
	case strings.HasPrefix(raw, `"`):
		return display(v) != ""
	case strings.HasPrefix(raw, "{"), strings.HasPrefix(raw, "["):
		return true
	default:
		f, err := strconv.ParseFloat(raw, 64)
		return err == nil && f != 0
	}
}
