package services

import (
	"context"
	"errors"
	"strings"

	"github.com/qrgate/portal/internal/mail"
	"github.com/qrgate/portal/types"
)

const (
	notificationListLimit = 100
	notificationOpenLimit = 10
)

// SendEmailRequest delivers an already rendered QR image.
type SendEmailRequest struct {
	To         string `json:"to"`
	Subject    string `json:"subject"`
	HTML       string `json:"html"`
	PNGDataURL string `json:"pngDataUrl"`
}

// NotificationService serves the admin inbox and QR email delivery.
type NotificationService struct {
	repo   NotificationRepository
	mailer mail.Sender
}

func NewNotificationService(repo NotificationRepository, mailer mail.Sender) *NotificationService {
	if mailer == nil {
		mailer = mail.Disabled{}
	}
	return &NotificationService{repo: repo, mailer: mailer}
}

// List returns open notifications first, newest first within each group.
func (s *NotificationService) List(ctx context.Context) ([]types.Notification, error) {
	return s.repo.List(ctx, notificationListLimit)
}

func (s *NotificationService) ListOpen(ctx context.Context) ([]types.Notification, error) {
	return s.repo.ListOpen(ctx, notificationOpenLimit)
}

// MarkDone flips done to true. Repeating it is a no-op.
func (s *NotificationService) MarkDone(ctx context.Context, id int64) error {
	if id < 1 {
		return invalid("id is required")
	}
	return s.repo.MarkDone(ctx, id)
}

// SendQREmail emails the PNG carried in req.PNGDataURL as an attachment.
func (s *NotificationService) SendQREmail(ctx context.Context, req SendEmailRequest) error {
	to := strings.TrimSpace(req.To)
	if to == "" {
		return invalid("to is required")
	}
	png, err := mail.ParsePNGDataURL(strings.TrimSpace(req.PNGDataURL))
	if err != nil {
		return invalid("%v", err)
	}

	subject := req.Subject
	if strings.TrimSpace(subject) == "" {
		subject = mail.DefaultQRSubject
	}
	body := req.HTML
	if strings.TrimSpace(body) == "" {
		body = mail.DefaultQRHTML
	}

	err = s.mailer.Send(ctx, mail.Email{
		To:          []string{to},
		Subject:     subject,
		HTML:        body,
		Attachments: []mail.Attachment{{Filename: mail.QRAttachmentName, Content: png}},
	})
	if errors.Is(err, mail.ErrDisabled) {
		return ErrMailerDisabled
	}
	return err
}
