package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/qrgate/portal/internal/mail"
	"github.com/qrgate/portal/internal/store"
	"github.com/qrgate/portal/types"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sequence(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

// memoryDB backs the resident, token and issuance fakes with shared maps.
type memoryDB struct {
	mu        sync.Mutex
	residents map[string]types.Resident
	tokens    []types.Token
	issueErr  error
}

func newMemoryDB() *memoryDB {
	return &memoryDB{residents: map[string]types.Resident{}}
}

func (m *memoryDB) Issue(_ context.Context, res types.Resident, tok types.Token) (types.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.issueErr != nil {
		return types.Token{}, m.issueErr
	}
	if existing, ok := m.residents[res.ID]; ok {
		existing.Name = res.Name
		existing.Phone = res.Phone
		existing.VehiclePlate = res.VehiclePlate
		m.residents[res.ID] = existing
	} else {
		m.residents[res.ID] = res
	}
	m.tokens = append(m.tokens, tok)
	return tok, nil
}

type fakeResidents struct {
	db        *memoryDB
	createErr error
}

func (f *fakeResidents) Create(_ context.Context, res types.Resident) (types.Resident, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.createErr != nil {
		return types.Resident{}, f.createErr
	}
	if _, ok := f.db.residents[res.ID]; ok {
		return types.Resident{}, store.ErrAlreadyExists
	}
	f.db.residents[res.ID] = res
	return res, nil
}

func (f *fakeResidents) GetByID(_ context.Context, id string) (types.Resident, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	res, ok := f.db.residents[id]
	if !ok {
		return types.Resident{}, store.ErrNotFound
	}
	return res, nil
}

func (f *fakeResidents) Update(_ context.Context, id string, upd types.ResidentUpdate) (types.Resident, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	res, ok := f.db.residents[id]
	if !ok {
		return types.Resident{}, store.ErrNotFound
	}
	if upd.Name != nil {
		res.Name = *upd.Name
	}
	if upd.Email != nil {
		res.Email = upd.Email
	}
	if upd.Phone != nil {
		res.Phone = *upd.Phone
	}
	if upd.Unit != nil {
		res.Unit = *upd.Unit
	}
	if upd.VehiclePlate != nil {
		res.VehiclePlate = upd.VehiclePlate
	}
	if upd.VehicleType != nil {
		res.VehicleType = upd.VehicleType
	}
	f.db.residents[id] = res
	return res, nil
}

func (f *fakeResidents) Delete(_ context.Context, id string) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.residents[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.db.residents, id)
	kept := f.db.tokens[:0]
	for _, t := range f.db.tokens {
		if t.ResidentID != id {
			kept = append(kept, t)
		}
	}
	f.db.tokens = kept
	return nil
}

func (f *fakeResidents) sorted() []types.Resident {
	out := make([]types.Resident, 0, len(f.db.residents))
	for _, r := range f.db.residents {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (f *fakeResidents) ListAll(_ context.Context) ([]types.Resident, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return f.sorted(), nil
}

func (f *fakeResidents) Page(_ context.Context, limit, offset int) ([]types.HistoryRow, int, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	all := f.sorted()
	var rows []types.HistoryRow
	for i := offset; i < len(all) && i < offset+limit; i++ {
		row := types.HistoryRow{Resident: all[i]}
		if tok, ok := f.db.latestLocked(all[i].ID); ok {
			row.Token = &tok
		}
		rows = append(rows, row)
	}
	return rows, len(all), nil
}

func (m *memoryDB) latestLocked(residentID string) (types.Token, bool) {
	var (
		latest types.Token
		found  bool
	)
	for _, t := range m.tokens {
		if t.ResidentID == residentID && (!found || !t.CreatedAt.Before(latest.CreatedAt)) {
			latest, found = t, true
		}
	}
	return latest, found
}

type fakeTokens struct {
	db *memoryDB
}

func (f *fakeTokens) find(match func(types.Token) bool) (types.Token, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for i := len(f.db.tokens) - 1; i >= 0; i-- {
		if match(f.db.tokens[i]) {
			return f.db.tokens[i], nil
		}
	}
	return types.Token{}, store.ErrNotFound
}

func (f *fakeTokens) GetByID(_ context.Context, id string) (types.Token, error) {
	return f.find(func(t types.Token) bool { return t.ID == id })
}

func (f *fakeTokens) GetByToken(_ context.Context, token string) (types.Token, error) {
	return f.find(func(t types.Token) bool { return t.Token == token })
}

func (f *fakeTokens) Latest(_ context.Context, residentID string) (types.Token, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	tok, ok := f.db.latestLocked(residentID)
	if !ok {
		return types.Token{}, store.ErrNotFound
	}
	return tok, nil
}

func (f *fakeTokens) ListByResident(_ context.Context, residentID string) ([]types.Token, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []types.Token
	for i := len(f.db.tokens) - 1; i >= 0; i-- {
		if f.db.tokens[i].ResidentID == residentID {
			out = append(out, f.db.tokens[i])
		}
	}
	return out, nil
}

func (f *fakeTokens) update(id string, fn func(*types.Token)) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for i := range f.db.tokens {
		if f.db.tokens[i].ID == id {
			fn(&f.db.tokens[i])
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeTokens) Revoke(_ context.Context, id string) error {
	return f.update(id, func(t *types.Token) { t.Revoked = true })
}

func (f *fakeTokens) Delete(_ context.Context, id string) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for i, t := range f.db.tokens {
		if t.ID == id {
			f.db.tokens = append(f.db.tokens[:i], f.db.tokens[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeTokens) Count(_ context.Context) (int, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return len(f.db.tokens), nil
}

func (f *fakeTokens) CountByResident(_ context.Context, limit int) ([]store.ResidentTokenCount, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	counts := map[string]int{}
	for _, t := range f.db.tokens {
		counts[t.ResidentID]++
	}
	var out []store.ResidentTokenCount
	for id, n := range counts {
		out = append(out, store.ResidentTokenCount{ResidentID: id, Name: f.db.residents[id].Name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].ResidentID < out[j].ResidentID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeAccounts struct {
	mu        sync.Mutex
	accounts  map[string]types.Account
	admins    map[string]types.Admin
	deleted   []string
	deleteErr error
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{accounts: map[string]types.Account{}, admins: map[string]types.Admin{}}
}

func (f *fakeAccounts) Create(_ context.Context, a types.Account) (types.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.accounts {
		if strings.EqualFold(existing.Email, a.Email) {
			return types.Account{}, store.ErrAlreadyExists
		}
	}
	f.accounts[a.ID] = a
	return a, nil
}

func (f *fakeAccounts) GetByID(_ context.Context, id string) (types.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return types.Account{}, store.ErrNotFound
	}
	return a, nil
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (types.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if strings.EqualFold(a.Email, email) {
			return a, nil
		}
	}
	return types.Account{}, store.ErrNotFound
}

func (f *fakeAccounts) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.accounts, id)
	return nil
}

func (f *fakeAccounts) GetAdmin(_ context.Context, userID string) (types.Admin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.admins[userID]
	if !ok {
		return types.Admin{}, store.ErrNotFound
	}
	return a, nil
}

func (f *fakeAccounts) GrantAdmin(_ context.Context, userID, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.admins[userID] = types.Admin{UserID: userID, Role: role}
	return nil
}

type fakeNotifications struct {
	mu    sync.Mutex
	items []types.Notification
}

func (f *fakeNotifications) Create(_ context.Context, n types.Notification) (types.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n.ID = int64(len(f.items) + 1)
	n.CreatedAt = time.Date(2026, 1, 1, 0, 0, len(f.items), 0, time.UTC)
	f.items = append(f.items, n)
	return n, nil
}

func (f *fakeNotifications) MarkDone(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].Done = true
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeNotifications) List(_ context.Context, limit int) ([]types.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]types.Notification(nil), f.items...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Done != out[j].Done {
			return !out[i].Done
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeNotifications) ListOpen(ctx context.Context, limit int) ([]types.Notification, error) {
	all, _ := f.List(ctx, len(f.items))
	var out []types.Notification
	for _, n := range all {
		if !n.Done && len(out) < limit {
			out = append(out, n)
		}
	}
	return out, nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mail.Email
	err  error
}

func (f *fakeMailer) Send(_ context.Context, email mail.Email) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, email)
	return nil
}

type fakeObjects struct {
	objects map[string][]byte
	types   map[string]string
	expiry  time.Duration
	deleted []string

	failDelete error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeObjects) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	f.objects[key] = buf.Bytes()
	f.types[key] = contentType
	return nil
}

func (f *fakeObjects) Delete(_ context.Context, key string) error {
	if f.failDelete != nil {
		return f.failDelete
	}
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeObjects) SignedURL(_ context.Context, key string, expiry time.Duration) (string, error) {
	f.expiry = expiry
	return "https://signed.example/" + key + "?sig=1", nil
}

func (f *fakeObjects) PublicURL(key string) string {
	return "https://cdn.example/" + key
}
