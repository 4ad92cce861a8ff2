package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/qrgate/portal/config"
	"github.com/qrgate/portal/internal/logging"
	"github.com/qrgate/portal/internal/services"
	"github.com/qrgate/portal/internal/store"
	"github.com/qrgate/portal/types"
)

const (
	testSecret = "test-secret"

	adminID  = "admin-1"
	superID  = "super-1"
	memberID = "member-1"
)

var testAuth = config.AuthConfig{
	JWTSecret:  testSecret,
	JWTIssuer:  "qrgate",
	SessionTTL: time.Hour,
	CookieName: "qrgate_session",
}

// fakeAccounts serves three fixed accounts: an admin, a super admin and a
// plain member.
type fakeAccounts struct {
	services.AccountRepository
	accounts map[string]types.Account
	roles    map[string]string
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{
		accounts: map[string]types.Account{
			adminID:  {ID: adminID, Email: "admin@example.com"},
			superID:  {ID: superID, Email: "super@example.com"},
			memberID: {ID: memberID, Email: "member@example.com"},
		},
		roles: map[string]string{
			adminID: types.RoleAdmin,
			superID: types.RoleSuperAdmin,
		},
	}
}

func (f *fakeAccounts) GetByID(_ context.Context, id string) (types.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return types.Account{}, store.ErrNotFound
	}
	return a, nil
}

func (f *fakeAccounts) GetAdmin(_ context.Context, userID string) (types.Admin, error) {
	role, ok := f.roles[userID]
	if !ok {
		return types.Admin{}, store.ErrNotFound
	}
	return types.Admin{UserID: userID, Role: role}, nil
}

func newTestGuard() *Guard {
	return NewGuard(testAuth, services.NewAuthService(newFakeAccounts()), logging.Nop())
}

func bearerFor(t *testing.T, subject string) string {
	t.Helper()
	tok, err := issueToken(subject, testAuth.JWTIssuer, []byte(testSecret), time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func doJSON(t *testing.T, h http.Handler, method, path, auth string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest))
}

type fakeNotifications struct {
	services.NotificationRepository
	mu   sync.Mutex
	done map[int64]bool
}

func (f *fakeNotifications) MarkDone(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.done[id]; !ok {
		return store.ErrNotFound
	}
	f.done[id] = true
	return nil
}

func (f *fakeNotifications) List(context.Context, int) ([]types.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.Notification
	for id, done := range f.done {
		out = append(out, types.Notification{ID: id, Type: types.NotificationResidentChange, Done: done})
	}
	return out, nil
}

type fakeIssuance struct {
	mu        sync.Mutex
	residents map[string]types.Resident
	tokens    []types.Token
}

func (f *fakeIssuance) Issue(_ context.Context, res types.Resident, tok types.Token) (types.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.residents[res.ID] = res
	f.tokens = append(f.tokens, tok)
	return tok, nil
}

type fakeTokens struct {
	services.TokenRepository
	byValue map[string]types.Token
}

func (f *fakeTokens) GetByToken(_ context.Context, value string) (types.Token, error) {
	tok, ok := f.byValue[value]
	if !ok {
		return types.Token{}, store.ErrNotFound
	}
	return tok, nil
}

func (f *fakeTokens) Latest(_ context.Context, residentID string) (types.Token, error) {
	var (
		latest types.Token
		found  bool
	)
	for _, tok := range f.byValue {
		if tok.ResidentID == residentID && (!found || tok.CreatedAt.After(latest.CreatedAt)) {
			latest, found = tok, true
		}
	}
	if !found {
		return types.Token{}, store.ErrNotFound
	}
	return latest, nil
}

type fakeResidentReader map[string]types.Resident

func (f fakeResidentReader) GetByID(_ context.Context, id string) (types.Resident, error) {
	res, ok := f[id]
	if !ok {
		return types.Resident{}, store.ErrNotFound
	}
	return res, nil
}

type fakeGas struct {
	services.GasRepository
	mu      sync.Mutex
	created []types.GasReading
}

func (f *fakeGas) Create(_ context.Context, g types.GasReading) (types.GasReading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g.ID = int64(len(f.created) + 1)
	f.created = append(f.created, g)
	return g, nil
}
