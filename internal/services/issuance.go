package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/qrgate/portal/internal/qr"
	"github.com/qrgate/portal/types"
)

// IssuanceRepository persists a resident upsert and a new token atomically.
type IssuanceRepository interface {
	Issue(ctx context.Context, res types.Resident, tok types.Token) (types.Token, error)
}

// IssueRequest identifies the resident a token is minted for.
type IssueRequest struct {
	ResidentID   string
	Name         string
	VehiclePlate string
	Phone        string
	ExpiresAt    time.Time
}

// IssueResult is returned to callers of the generate endpoint.
type IssueResult struct {
	QRPayload  qr.Payload  `json:"qrPayload"`
	QRString   string      `json:"qrString"`
	QRTokenRow types.Token `json:"qrTokenRow"`
}

// IssuanceService mints QR tokens for residents.
type IssuanceService struct {
	repo   IssuanceRepository
	events *Publisher
	now    func() time.Time
	newID  func() string
}

func NewIssuanceService(repo IssuanceRepository, events *Publisher) *IssuanceService {
	return &IssuanceService{
		repo:   repo,
		events: events,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Issue upserts the resident and records a fresh token. A resident created
// here starts active with an empty unit; an existing resident only has its
// name, phone and plate refreshed.
func (s *IssuanceService) Issue(ctx context.Context, req IssueRequest) (IssueResult, error) {
	req.ResidentID = strings.TrimSpace(req.ResidentID)
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	req.VehiclePlate = strings.TrimSpace(req.VehiclePlate)
	switch {
	case req.ResidentID == "":
		return IssueResult{}, invalid("residentId is required")
	case req.Name == "":
		return IssueResult{}, invalid("name is required")
	case req.Phone == "":
		return IssueResult{}, invalid("phone is required")
	case req.ExpiresAt.IsZero():
		return IssueResult{}, invalid("exp is required")
	}

	now := s.now().UTC()
	res := types.Resident{
		ID:        req.ResidentID,
		Name:      req.Name,
		Phone:     req.Phone,
		Status:    types.ResidentActive,
		CreatedAt: now,
	}
	if req.VehiclePlate != "" {
		res.VehiclePlate = &req.VehiclePlate
	}

	expiresAt := req.ExpiresAt.UTC()
	tok := types.Token{
		ID:           s.newID(),
		ResidentID:   req.ResidentID,
		Token:        s.newID(),
		TokenVersion: 1,
		ExpiresAt:    &expiresAt,
		CreatedAt:    now,
	}

	stored, err := s.repo.Issue(ctx, res, tok)
	if err != nil {
		return IssueResult{}, err
	}

	payload := qr.NewPayload(req.Phone, stored.Token)
	s.events.Publish(ctx, Event{
		Type:       EventTokenIssued,
		ResidentID: req.ResidentID,
		Data:       mustJSON(map[string]string{"token_id": stored.ID}),
		OccurredAt: now,
	})

	return IssueResult{
		QRPayload:  payload,
		QRString:   payload.String(),
		QRTokenRow: stored,
	}, nil
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
