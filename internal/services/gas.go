package services

import (
	"bytes"
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/qrgate/portal/types"
)

const (
	gasImagePrefix     = "gas-readings"
	gasImageTTL        = 7 * 24 * time.Hour
	gasDefaultMimeType = "image/png"
	// UserReadingsLimit is how many readings the user dashboard shows.
	UserReadingsLimit = 12
	// RecentReadingsLimit is how many readings the admin dashboard shows.
	RecentReadingsLimit = 30
)

var digitRun = regexp.MustCompile(`\d+`)

// GasRepository defines persistence operations for gas readings.
type GasRepository interface {
	Create(ctx context.Context, g types.GasReading) (types.GasReading, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]types.GasReading, error)
	ListRecent(ctx context.Context, limit int) ([]types.GasReadingView, error)
}

// SubmitReading is a manually typed meter reading.
type SubmitReading struct {
	UserID  string
	Reading *float64
	ReadAt  time.Time
	Note    string
}

// UploadReading is a meter photo upload.
type UploadReading struct {
	UserID string
	ReadAt time.Time
	Note   string
	File   Upload
}

// UploadResult is returned after a photo upload.
type UploadResult struct {
	ImageURL string   `json:"imageUrl"`
	OCRValue *float64 `json:"ocrValue"`
}

// GasService records gas meter readings.
type GasService struct {
	repo    GasRepository
	objects ObjectStore
	now     func() time.Time
}

func NewGasService(repo GasRepository, objects ObjectStore) *GasService {
	return &GasService{repo: repo, objects: objects, now: time.Now}
}

// Submit records a typed reading.
func (s *GasService) Submit(ctx context.Context, req SubmitReading) (types.GasReading, error) {
	if strings.TrimSpace(req.UserID) == "" || req.Reading == nil || req.ReadAt.IsZero() {
		return types.GasReading{}, invalid("reading, readAt and userId are required")
	}
	if math.IsNaN(*req.Reading) || math.IsInf(*req.Reading, 0) {
		return types.GasReading{}, invalid("reading must be a number")
	}
	return s.repo.Create(ctx, types.GasReading{
		UserID:       strings.TrimSpace(req.UserID),
		ReadingValue: req.Reading,
		ReadAt:       req.ReadAt.UTC(),
		Note:         optionalString(req.Note),
	})
}

// Upload stores the meter photo, links it through a seven day signed URL
// and records a reading whose value is guessed from the file name.
func (s *GasService) Upload(ctx context.Context, req UploadReading) (UploadResult, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" || req.ReadAt.IsZero() || len(req.File.Data) == 0 {
		return UploadResult{}, invalid("file, userId and readAt are required")
	}
	if s.objects == nil {
		return UploadResult{}, ErrStorageDisabled
	}

	now := s.now()
	contentType := req.File.ContentType
	if contentType == "" {
		contentType = gasDefaultMimeType
	}
	key := objectKey(gasImagePrefix+"/"+userID, req.File.Filename, now)
	if err := s.objects.Put(ctx, key, bytes.NewReader(req.File.Data), int64(len(req.File.Data)), contentType); err != nil {
		return UploadResult{}, err
	}
	imageURL, err := s.objects.SignedURL(ctx, key, gasImageTTL)
	if err != nil {
		return UploadResult{}, err
	}

	ocr := OCRFromFilename(req.File.Filename)
	expiresAt := now.Add(gasImageTTL).UTC()
	if _, err := s.repo.Create(ctx, types.GasReading{
		UserID:       userID,
		ReadingValue: ocr,
		ReadAt:       req.ReadAt.UTC(),
		Note:         optionalString(req.Note),
		ImageURL:     &imageURL,
		OCRValue:     ocr,
		ExpiresAt:    &expiresAt,
	}); err != nil {
		return UploadResult{}, err
	}

	return UploadResult{ImageURL: imageURL, OCRValue: ocr}, nil
}

func (s *GasService) ListForUser(ctx context.Context, userID string) ([]types.GasReading, error) {
	return s.repo.ListByUser(ctx, userID, UserReadingsLimit)
}

func (s *GasService) Recent(ctx context.Context) ([]types.GasReadingView, error) {
	return s.repo.ListRecent(ctx, RecentReadingsLimit)
}

// OCRFromFilename joins every digit run in name and parses the result.
// It stands in for real OCR and returns nil when name has no digits.
func OCRFromFilename(name string) *float64 {
	runs := digitRun.FindAllString(name, -1)
	if len(runs) == 0 {
		return nil
	}
	v, err := strconv.ParseFloat(strings.Join(runs, ""), 64)
	if err != nil {
		return nil
	}
	return &v
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
