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
	"github.com/qrgate/portal/internal/qr"
	"github.com/qrgate/portal/internal/scan"
)

func scanRouter() http.Handler {
	r := chi.NewRouter()
	r.Route("/api/scan", func(r chi.Router) {
		ScanRouter(r, NewScanHandler(logging.Nop()))
	})
	return r
}

func TestDecodeText(t *testing.T) {
	router := scanRouter()

	rec := doJSON(t, router, http.MethodPost, "/api/scan/decode", "", DecodeRequest{Text: `{"v":1,"phone":"010","token":"abc"}`})
	require.Equal(t, http.StatusOK, rec.Code)
	var snap scan.Snapshot
	decodeBody(t, rec, &snap)
	assert.Equal(t, scan.StateParsed, snap.State)
	require.NotNil(t, snap.Scan)
	assert.Equal(t, qr.Scan{Phone: "010", Token: "abc", Resident: true}, *snap.Scan)

	rec = doJSON(t, router, http.MethodPost, "/api/scan/decode", "", DecodeRequest{Text: `{"token":"abc"}`})
	require.Equal(t, http.StatusOK, rec.Code)
	snap = scan.Snapshot{}
	decodeBody(t, rec, &snap)
	require.NotNil(t, snap.Scan)
	assert.False(t, snap.Scan.Resident)
}

func TestDecodeTextNotJSON(t *testing.T) {
	rec := doJSON(t, scanRouter(), http.MethodPost, "/api/scan/decode", "", DecodeRequest{Text: "hello gate"})

	require.Equal(t, http.StatusOK, rec.Code)
	var snap scan.Snapshot
	decodeBody(t, rec, &snap)
	assert.Equal(t, scan.StateUnparsed, snap.State)
	assert.Nil(t, snap.Scan)
	assert.Equal(t, qr.ErrNotJSON.Error(), snap.Message)
	assert.Equal(t, "hello gate", snap.Raw)
}

func TestDecodeTextRequired(t *testing.T) {
	rec := doJSON(t, scanRouter(), http.MethodPost, "/api/scan/decode", "", DecodeRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecodeImage(t *testing.T) {
	payload := qr.NewPayload("010-9999", "tok-9")
	png, err := qr.EncodePNG(payload.String())
	require.NoError(t, err)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "gate.png")
	require.NoError(t, err)
	_, err = part.Write(png)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/scan/decode", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	scanRouter().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var snap scan.Snapshot
	decodeBody(t, rec, &snap)
	assert.Equal(t, scan.StateParsed, snap.State)
	assert.Equal(t, payload.String(), snap.Raw)
	require.NotNil(t, snap.Scan)
	assert.Equal(t, "tok-9", snap.Scan.Token)
}
