package services

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/qrgate/portal/types"
)

// HistoryPageSize is the fixed number of residents per history page.
const HistoryPageSize = 20

// ExpiryFilter selects history rows by days until their token expires.
type ExpiryFilter string

const (
	ExpiryAll    ExpiryFilter = "all"
	ExpiryLT30   ExpiryFilter = "lt30"
	Expiry30To90 ExpiryFilter = "30to90"
	ExpiryGT90   ExpiryFilter = "gt90"
)

// ParseExpiryFilter maps unknown values to ExpiryAll.
func ParseExpiryFilter(raw string) ExpiryFilter {
	switch f := ExpiryFilter(strings.ToLower(strings.TrimSpace(raw))); f {
	case ExpiryLT30, Expiry30To90, ExpiryGT90:
		return f
	default:
		return ExpiryAll
	}
}

// DaysUntil is the whole number of days from now to exp, rounded down.
func DaysUntil(exp, now time.Time) int {
	return int(math.Floor(exp.Sub(now).Hours() / 24))
}

// Match reports whether row belongs to the bucket. Rows without a token
// expiry pass every filter.
func (f ExpiryFilter) Match(row types.HistoryRow, now time.Time) bool {
	if row.Token == nil || row.Token.ExpiresAt == nil {
		return true
	}
	days := DaysUntil(*row.Token.ExpiresAt, now)
	switch f {
	case ExpiryLT30:
		return days < 30
	case Expiry30To90:
		return days >= 30 && days <= 90
	case ExpiryGT90:
		return days > 90
	default:
		return true
	}
}

// FilterRows keeps rows whose name, unit or email contains keyword
// (case-insensitive) and that match the expiry bucket.
func FilterRows(rows []types.HistoryRow, keyword string, filter ExpiryFilter, now time.Time) []types.HistoryRow {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	out := make([]types.HistoryRow, 0, len(rows))
	for _, row := range rows {
		if kw != "" && !matchesKeyword(row.Resident, kw) {
			continue
		}
		if !filter.Match(row, now) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func matchesKeyword(r types.Resident, kw string) bool {
	email := ""
	if r.Email != nil {
		email = *r.Email
	}
	for _, field := range []string{r.Name, r.Unit, email} {
		if strings.Contains(strings.ToLower(field), kw) {
			return true
		}
	}
	return false
}

// PageCount is ceil(total/size), never less than 1.
func PageCount(total, size int) int {
	if size <= 0 || total <= 0 {
		return 1
	}
	return (total + size - 1) / size
}

// HistoryPage is one page of the admin history view.
type HistoryPage struct {
	Rows     []types.HistoryRow `json:"rows"`
	Page     int                `json:"page"`
	Pages    int                `json:"pages"`
	Total    int                `json:"total"`
	PageSize int                `json:"page_size"`
	Keyword  string             `json:"q"`
	Expiry   ExpiryFilter       `json:"expiry"`
}

// HistoryService serves the resident history listing.
type HistoryService struct {
	residents ResidentRepository
	now       func() time.Time
}

func NewHistoryService(residents ResidentRepository) *HistoryService {
	return &HistoryService{residents: residents, now: time.Now}
}

// Page loads one page of residents with their latest token. Filters apply
// to the rows of that page only; Total and Pages count all residents.
func (s *HistoryService) Page(ctx context.Context, page int, keyword string, filter ExpiryFilter) (HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	rows, total, err := s.residents.Page(ctx, HistoryPageSize, (page-1)*HistoryPageSize)
	if err != nil {
		return HistoryPage{}, err
	}
	return HistoryPage{
		Rows:     FilterRows(rows, keyword, filter, s.now()),
		Page:     page,
		Pages:    PageCount(total, HistoryPageSize),
		Total:    total,
		PageSize: HistoryPageSize,
		Keyword:  strings.TrimSpace(keyword),
		Expiry:   filter,
	}, nil
}
