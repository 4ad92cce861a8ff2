package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/qrgate/portal/internal/logging"
	"github.com/qrgate/portal/internal/mail"
	"github.com/qrgate/portal/internal/qr"
	"github.com/qrgate/portal/internal/store"
	"github.com/qrgate/portal/types"
)

// Verification reasons.
const (
	ReasonOK      = "ok"
	ReasonUnknown = "unknown"
	ReasonRevoked = "revoked"
	ReasonExpired = "expired"
	// ReasonSuperseded marks a token replaced by a newer issuance.
	ReasonSuperseded = "superseded"
)

// TokenRepository defines persistence operations for QR tokens.
type TokenRepository interface {
	GetByID(ctx context.Context, id string) (types.Token, error)
	GetByToken(ctx context.Context, token string) (types.Token, error)
	Latest(ctx context.Context, residentID string) (types.Token, error)
	ListByResident(ctx context.Context, residentID string) ([]types.Token, error)
	Revoke(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	CountByResident(ctx context.Context, limit int) ([]store.ResidentTokenCount, error)
}

// ResidentReader loads a resident by id.
type ResidentReader interface {
	GetByID(ctx context.Context, id string) (types.Resident, error)
}

// Verification is the outcome of checking a scanned token.
type Verification struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason"`
	Phone  string `json:"phone,omitempty"`
}

// IssueOutcome reports a reissue together with the delivery attempt.
type IssueOutcome struct {
	IssueResult
	Emailed    bool   `json:"emailed"`
	EmailError string `json:"emailError,omitempty"`
}

// TokenService manages tokens of existing residents.
type TokenService struct {
	tokens    TokenRepository
	residents ResidentReader
	issuance  *IssuanceService
	mailer    mail.Sender
	log       logging.Logger
	now       func() time.Time
}

func NewTokenService(
	tokens TokenRepository,
	residents ResidentReader,
	issuance *IssuanceService,
	mailer mail.Sender,
	log logging.Logger,
) *TokenService {
	if mailer == nil {
		mailer = mail.Disabled{}
	}
	if log == nil {
		log = logging.Nop()
	}
	return &TokenService{
		tokens:    tokens,
		residents: residents,
		issuance:  issuance,
		mailer:    mailer,
		log:       log,
		now:       time.Now,
	}
}

// Verify checks a token value against storage.
func (s *TokenService) Verify(ctx context.Context, value string) (Verification, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Verification{}, invalid("token is required")
	}
	tok, err := s.tokens.GetByToken(ctx, value)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Verification{Reason: ReasonUnknown}, nil
		}
		return Verification{}, err
	}

	switch {
	case tok.Revoked:
		return Verification{Reason: ReasonRevoked}, nil
	case !tok.Valid(s.now()):
		return Verification{Reason: ReasonExpired}, nil
	}

	// Only the resident's newest token is active.
	latest, err := s.tokens.Latest(ctx, tok.ResidentID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return Verification{}, err
	}
	if err == nil && latest.ID != tok.ID {
		return Verification{Reason: ReasonSuperseded}, nil
	}

	v := Verification{Valid: true, Reason: ReasonOK}
	if res, err := s.residents.GetByID(ctx, tok.ResidentID); err == nil {
		v.Phone = res.Phone
	} else if !errors.Is(err, store.ErrNotFound) {
		return Verification{}, err
	}
	return v, nil
}

func (s *TokenService) Revoke(ctx context.Context, id string) error {
	return s.tokens.Revoke(ctx, id)
}

// Delete removes one token row and leaves the resident in place.
func (s *TokenService) Delete(ctx context.Context, id string) error {
	return s.tokens.Delete(ctx, id)
}

func (s *TokenService) ListByResident(ctx context.Context, residentID string) ([]types.Token, error) {
	if _, err := s.residents.GetByID(ctx, residentID); err != nil {
		return nil, err
	}
	return s.tokens.ListByResident(ctx, residentID)
}

// Current returns the resident's newest token.
func (s *TokenService) Current(ctx context.Context, residentID string) (types.Token, error) {
	tok, err := s.tokens.Latest(ctx, residentID)
	if errors.Is(err, store.ErrNotFound) {
		return types.Token{}, ErrNoToken
	}
	return tok, err
}

// IssueForResident mints a one-year token for a stored resident lacking a
// usable one and then tries to email it. A failed delivery does not undo
// the issuance.
func (s *TokenService) IssueForResident(ctx context.Context, residentID string) (IssueOutcome, error) {
	res, err := s.residents.GetByID(ctx, residentID)
	if err != nil {
		return IssueOutcome{}, err
	}
	current, err := s.tokens.Latest(ctx, res.ID)
	switch {
	case err == nil && current.Valid(s.now()):
		return IssueOutcome{}, ErrTokenActive
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return IssueOutcome{}, err
	}

	plate := ""
	if res.VehiclePlate != nil {
		plate = *res.VehiclePlate
	}
	result, err := s.issuance.Issue(ctx, IssueRequest{
		ResidentID:   res.ID,
		Name:         res.Name,
		VehiclePlate: plate,
		Phone:        res.Phone,
		ExpiresAt:    s.now().AddDate(1, 0, 0),
	})
	if err != nil {
		return IssueOutcome{}, err
	}

	outcome := IssueOutcome{IssueResult: result}
	if err := s.sendQR(ctx, res, result.QRPayload); err != nil {
		s.log.Warn(ctx, "qr email after issue", "resident_id", res.ID, "error", err)
		outcome.EmailError = err.Error()
		return outcome, nil
	}
	outcome.Emailed = true
	return outcome, nil
}

// EmailCurrent sends the resident's current QR code to their email address.
func (s *TokenService) EmailCurrent(ctx context.Context, residentID string) error {
	res, err := s.residents.GetByID(ctx, residentID)
	if err != nil {
		return err
	}
	tok, err := s.Current(ctx, residentID)
	if err != nil {
		return err
	}
	return s.sendQR(ctx, res, qr.NewPayload(res.Phone, tok.Token))
}

// QRCode renders the PNG for a stored token.
func (s *TokenService) QRCode(ctx context.Context, tokenID string) ([]byte, error) {
	tok, err := s.tokens.GetByID(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	res, err := s.residents.GetByID(ctx, tok.ResidentID)
	if err != nil {
		return nil, err
	}
	return qr.EncodePNG(qr.NewPayload(res.Phone, tok.Token).String())
}

func (s *TokenService) sendQR(ctx context.Context, res types.Resident, payload qr.Payload) error {
	if res.Email == nil || strings.TrimSpace(*res.Email) == "" {
		return ErrNoEmail
	}
	png, err := qr.EncodePNG(payload.String())
	if err != nil {
		return err
	}
	err = s.mailer.Send(ctx, mail.Email{
		To:          []string{strings.TrimSpace(*res.Email)},
		Subject:     mail.DefaultQRSubject,
		HTML:        mail.DefaultQRHTML,
		Attachments: []mail.Attachment{{Filename: mail.QRAttachmentName, Content: png}},
	})
	if errors.Is(err, mail.ErrDisabled) {
		return ErrMailerDisabled
	}
	return err
}
