package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrgate/portal/internal/logging"
	"github.com/qrgate/portal/internal/services"
)

func gasRouter(repo *fakeGas) http.Handler {
	h := NewGasHandler(services.NewGasService(repo, nil), newTestGuard(), logging.Nop())
	r := chi.NewRouter()
	r.Route("/api/gas", func(r chi.Router) {
		GasRouter(r, h)
	})
	return r
}

func TestSubmitReading(t *testing.T) {
	repo := &fakeGas{}
	router := gasRouter(repo)

	rec := doJSON(t, router, http.MethodPost, "/api/gas/submit", bearerFor(t, memberID), map[string]any{
		"reading": 1234.5,
		"readAt":  "2026-05-01T08:30",
		"note":    "morning",
		"userId":  memberID,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, repo.created, 1)
	assert.Equal(t, memberID, repo.created[0].UserID)
	require.NotNil(t, repo.created[0].ReadingValue)
	assert.InDelta(t, 1234.5, *repo.created[0].ReadingValue, 1e-9)

	rec = doJSON(t, router, http.MethodPost, "/api/gas/submit", bearerFor(t, adminID), map[string]any{
		"reading": "88",
		"readAt":  "2026-05-01",
		"userId":  memberID,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, repo.created, 2)
	assert.InDelta(t, 88.0, *repo.created[1].ReadingValue, 1e-9)
}

func TestSubmitReadingForSomeoneElse(t *testing.T) {
	repo := &fakeGas{}

	rec := doJSON(t, gasRouter(repo), http.MethodPost, "/api/gas/submit", bearerFor(t, memberID), map[string]any{
		"reading": 1,
		"readAt":  "2026-05-01",
		"userId":  adminID,
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, repo.created)
}

func TestSubmitReadingValidation(t *testing.T) {
	repo := &fakeGas{}
	router := gasRouter(repo)
	auth := bearerFor(t, memberID)

	tests := map[string]map[string]any{
		"missing reading":   {"readAt": "2026-05-01", "userId": memberID},
		"bad reading":       {"reading": "lots", "readAt": "2026-05-01", "userId": memberID},
		"NaN reading":       {"reading": "NaN", "readAt": "2026-05-01", "userId": memberID},
		"infinite reading":  {"reading": "Inf", "readAt": "2026-05-01", "userId": memberID},
		"-infinity reading": {"reading": "-infinity", "readAt": "2026-05-01", "userId": memberID},
		"missing readAt":    {"reading": 1, "userId": memberID},
		"bad readAt":        {"reading": 1, "readAt": "soon", "userId": memberID},
		"missing userId":    {"reading": 1, "readAt": "2026-05-01"},
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/api/gas/submit", auth, body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Empty(t, repo.created)

	rec := doJSON(t, router, http.MethodPost, "/api/gas/submit", "", tests["missing reading"])
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUploadWithoutStorage(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "meter-01234.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte("not really a png"))
	require.NoError(t, mw.WriteField("userId", memberID))
	require.NoError(t, mw.WriteField("readAt", "2026-05-01T10:00"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/gas/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", bearerFor(t, memberID))
	rec := httptest.NewRecorder()
	gasRouter(&fakeGas{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestParseReading(t *testing.T) {
	v, err := parseReading([]byte(`" 12.25 "`))
	require.NoError(t, err)
	assert.InDelta(t, 12.25, *v, 1e-9)

	v, err = parseReading([]byte(`null`))
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = parseReading([]byte(`true`))
	assert.Error(t, err)

	for _, raw := range []string{`"NaN"`, `"nan"`, `"Inf"`, `"+Inf"`, `"-infinity"`} {
		_, err = parseReading([]byte(raw))
		assert.Error(t, err, raw)
	}
}
