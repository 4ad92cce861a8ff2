package handlers

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/qrgate/portal/internal/logging"
	"github.com/qrgate/portal/internal/mail"
	"github.com/qrgate/portal/internal/qr"
	"github.com/qrgate/portal/internal/services"
)

func notificationRouter(repo *fakeNotifications) http.Handler {
	h := NewNotificationHandler(services.NewNotificationService(repo, mail.Disabled{}), logging.Nop())
	r := chi.NewRouter()
	r.Route("/api/notifications", func(r chi.Router) {
		NotificationRouter(r, h, newTestGuard())
	})
	return r
}

func TestMarkDone(t *testing.T) {
	repo := &fakeNotifications{done: map[int64]bool{1: false}}
	router := notificationRouter(repo)
	body := MarkDoneRequest{ID: 1}

	rec := doJSON(t, router, http.MethodPost, "/api/notifications/mark-done", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, repo.done[1])

	rec = doJSON(t, router, http.MethodPost, "/api/notifications/mark-done", bearerFor(t, memberID), body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, repo.done[1])

	rec = doJSON(t, router, http.MethodPost, "/api/notifications/mark-done", bearerFor(t, adminID), body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.True(t, repo.done[1])

	rec = doJSON(t, router, http.MethodPost, "/api/notifications/mark-done", bearerFor(t, adminID), body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, repo.done[1])
}

func TestMarkDoneRejectsBadIDs(t *testing.T) {
	router := notificationRouter(&fakeNotifications{done: map[int64]bool{}})
	auth := bearerFor(t, adminID)

	rec := doJSON(t, router, http.MethodPost, "/api/notifications/mark-done", auth, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/notifications/mark-done", auth, MarkDoneRequest{ID: 42})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendEmailWithoutProvider(t *testing.T) {
	router := notificationRouter(&fakeNotifications{done: map[int64]bool{}})
	png, err := qr.EncodePNG(`{"v":1}`)
	assert.NoError(t, err)

	rec := doJSON(t, router, http.MethodPost, "/api/notifications/send-email", bearerFor(t, adminID), services.SendEmailRequest{
		To:         "resident@example.com",
		PNGDataURL: qr.DataURL(png),
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var out ErrorResponse
	decodeBody(t, rec, &out)
	assert.Equal(t, services.ErrMailerDisabled.Error(), out.Error)
}

func TestSendEmailMalformedDataURL(t *testing.T) {
	router := notificationRouter(&fakeNotifications{done: map[int64]bool{}})

	rec := doJSON(t, router, http.MethodPost, "/api/notifications/send-email", bearerFor(t, adminID), services.SendEmailRequest{
		To:         "resident@example.com",
		PNGDataURL: "data:text/plain;base64,aGk=",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
