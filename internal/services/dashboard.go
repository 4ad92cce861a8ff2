package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/qrgate/portal/internal/qr"
	"github.com/qrgate/portal/internal/store"
	"github.com/qrgate/portal/types"
)

const (
	otherBuilding = "other"
	issuanceLimit = 100
)

// GasStats provides aggregate reading figures.
type GasStats interface {
	Count(ctx context.Context) (int, error)
	Summaries(ctx context.Context) ([]store.GasSummary, error)
}

// DashboardCounts are the headline numbers of the admin dashboard.
type DashboardCounts struct {
	Residents   int            `json:"residents"`
	GasReadings int            `json:"gas_readings"`
	WithVehicle int            `json:"with_vehicle"`
	Tokens      int            `json:"qr_tokens"`
	ByStatus    map[string]int `json:"by_status"`
}

// BuildingStat aggregates residents and readings for one building.
type BuildingStat struct {
	Building     string     `json:"building"`
	Residents    int        `json:"residents"`
	GasReadings  int        `json:"gas_readings"`
	LatestReadAt *time.Time `json:"latest_read_at"`
}

type AdminDashboard struct {
	Counts            DashboardCounts            `json:"counts"`
	Buildings         []BuildingStat             `json:"buildings"`
	Issuance          []store.ResidentTokenCount `json:"issuance"`
	RecentGas         []types.GasReadingView     `json:"recent_gas"`
	OpenNotifications []types.Notification       `json:"open_notifications"`
}

type UserDashboard struct {
	Resident  *types.Resident    `json:"resident"`
	Token     *types.Token       `json:"token"`
	QRDataURL string             `json:"qr_data_url,omitempty"`
	Readings  []types.GasReading `json:"readings"`
}

// DashboardService assembles the admin and resident dashboards.
type DashboardService struct {
	residents     ResidentRepository
	tokens        TokenRepository
	gas           GasRepository
	gasStats      GasStats
	notifications NotificationRepository
}

func NewDashboardService(
	residents ResidentRepository,
	tokens TokenRepository,
	gas GasRepository,
	gasStats GasStats,
	notifications NotificationRepository,
) *DashboardService {
	return &DashboardService{
		residents:     residents,
		tokens:        tokens,
		gas:           gas,
		gasStats:      gasStats,
		notifications: notifications,
	}
}

// BuildingOf returns the first space-separated word of unit, or "other".
func BuildingOf(unit string) string {
	fields := strings.Fields(unit)
	if len(fields) == 0 {
		return otherBuilding
	}
	return fields[0]
}

func (s *DashboardService) Admin(ctx context.Context) (AdminDashboard, error) {
	residents, err := s.residents.ListAll(ctx)
	if err != nil {
		return AdminDashboard{}, err
	}
	gasCount, err := s.gasStats.Count(ctx)
	if err != nil {
		return AdminDashboard{}, err
	}
	summaries, err := s.gasStats.Summaries(ctx)
	if err != nil {
		return AdminDashboard{}, err
	}
	tokenCount, err := s.tokens.Count(ctx)
	if err != nil {
		return AdminDashboard{}, err
	}
	issuance, err := s.tokens.CountByResident(ctx, issuanceLimit)
	if err != nil {
		return AdminDashboard{}, err
	}
	recent, err := s.gas.ListRecent(ctx, RecentReadingsLimit)
	if err != nil {
		return AdminDashboard{}, err
	}
	open, err := s.notifications.ListOpen(ctx, notificationOpenLimit)
	if err != nil {
		return AdminDashboard{}, err
	}

	counts := DashboardCounts{
		Residents:   len(residents),
		GasReadings: gasCount,
		Tokens:      tokenCount,
		ByStatus:    map[string]int{},
	}
	for _, r := range residents {
		counts.ByStatus[r.Status]++
		if r.VehiclePlate != nil && strings.TrimSpace(*r.VehiclePlate) != "" {
			counts.WithVehicle++
		}
	}

	return AdminDashboard{
		Counts:            counts,
		Buildings:         BuildingStats(residents, summaries),
		Issuance:          issuance,
		RecentGas:         recent,
		OpenNotifications: open,
	}, nil
}

// BuildingStats groups residents by building and attributes each reading
// summary to its resident's building. Readings of unknown residents go to
// "other".
func BuildingStats(residents []types.Resident, summaries []store.GasSummary) []BuildingStat {
	byBuilding := map[string]*BuildingStat{}
	get := func(name string) *BuildingStat {
		b, ok := byBuilding[name]
		if !ok {
			b = &BuildingStat{Building: name}
			byBuilding[name] = b
		}
		return b
	}

	buildingOf := make(map[string]string, len(residents))
	for _, r := range residents {
		name := BuildingOf(r.Unit)
		buildingOf[r.ID] = name
		get(name).Residents++
	}
	for _, sum := range summaries {
		name, ok := buildingOf[sum.UserID]
		if !ok {
			name = otherBuilding
		}
		b := get(name)
		b.GasReadings += sum.Count
		if b.LatestReadAt == nil || sum.LatestReadAt.After(*b.LatestReadAt) {
			latest := sum.LatestReadAt
			b.LatestReadAt = &latest
		}
	}

	out := make([]BuildingStat, 0, len(byBuilding))
	for _, b := range byBuilding {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Building < out[j].Building })
	return out
}

// User builds the signed-in resident's view. A caller without a resident
// row gets an empty dashboard.
func (s *DashboardService) User(ctx context.Context, accountID string) (UserDashboard, error) {
	view := UserDashboard{}
	res, err := s.residents.GetByID(ctx, accountID)
	switch {
	case err == nil:
		view.Resident = &res
	case errors.Is(err, store.ErrNotFound):
	default:
		return UserDashboard{}, err
	}

	if view.Resident != nil {
		tok, err := s.tokens.Latest(ctx, accountID)
		switch {
		case err == nil:
			view.Token = &tok
			dataURL, err := qr.PayloadDataURL(qr.NewPayload(res.Phone, tok.Token))
			if err != nil {
				return UserDashboard{}, err
			}
			view.QRDataURL = dataURL
		case !errors.Is(err, store.ErrNotFound):
			return UserDashboard{}, err
		}
	}

	readings, err := s.gas.ListByUser(ctx, accountID, UserReadingsLimit)
	if err != nil {
		return UserDashboard{}, err
	}
	view.Readings = readings
	return view, nil
}
