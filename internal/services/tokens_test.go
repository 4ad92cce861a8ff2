package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/qrgate/portal/internal/logging"
	"github.com/qrgate/portal/internal/mail"
	"github.com/qrgate/portal/internal/qr"
	"github.com/qrgate/portal/internal/store"
	"github.com/qrgate/portal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokenFixture struct {
	db     *memoryDB
	mailer *fakeMailer
	svc    *TokenService
}

func newTokenFixture() *tokenFixture {
	db := newMemoryDB()
	mailer := &fakeMailer{}
	residents := &fakeResidents{db: db}
	svc := NewTokenService(&fakeTokens{db: db}, residents, newIssuance(db, nil), mailer, logging.Nop())
	svc.now = fixedClock(issueNow)
	return &tokenFixture{db: db, mailer: mailer, svc: svc}
}

func TestTokenService_Verify(t *testing.T) {
	f := newTokenFixture()
	future := issueNow.Add(time.Hour)
	past := issueNow.Add(-time.Hour)
	f.db.residents["r1"] = types.Resident{ID: "r1", Phone: "010-1"}
	f.db.tokens = []types.Token{
		{ID: "a", ResidentID: "r1", Token: "good", ExpiresAt: &future},
		{ID: "b", ResidentID: "r2", Token: "old", ExpiresAt: &past},
		{ID: "c", ResidentID: "r3", Token: "gone", ExpiresAt: &future, Revoked: true},
		{ID: "d", ResidentID: "r4", Token: "edge", ExpiresAt: &issueNow},
	}
	ctx := context.Background()

	v, err := f.svc.Verify(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, Verification{Valid: true, Reason: ReasonOK, Phone: "010-1"}, v)

	for token, reason := range map[string]string{
		"old":     ReasonExpired,
		"edge":    ReasonExpired,
		"gone":    ReasonRevoked,
		"missing": ReasonUnknown,
	} {
		v, err := f.svc.Verify(ctx, token)
		require.NoError(t, err)
		assert.False(t, v.Valid, token)
		assert.Equal(t, reason, v.Reason, token)
	}

	_, err = f.svc.Verify(ctx, " ")
	require.ErrorIs(t, err, ErrValidation)
}

func TestTokenService_VerifyRejectsReplacedToken(t *testing.T) {
	f := newTokenFixture()
	future := issueNow.AddDate(1, 0, 0)
	f.db.residents["r1"] = types.Resident{ID: "r1", Phone: "010-1"}
	f.db.tokens = []types.Token{
		{ID: "t1", ResidentID: "r1", Token: "first", ExpiresAt: &future, CreatedAt: issueNow.Add(-time.Hour)},
		{ID: "t2", ResidentID: "r1", Token: "second", ExpiresAt: &future, CreatedAt: issueNow},
	}
	ctx := context.Background()

	v, err := f.svc.Verify(ctx, "first")
	require.NoError(t, err)
	assert.Equal(t, Verification{Reason: ReasonSuperseded}, v)

	v, err = f.svc.Verify(ctx, "second")
	require.NoError(t, err)
	assert.Equal(t, Verification{Valid: true, Reason: ReasonOK, Phone: "010-1"}, v)
}

func TestTokenService_IssueForResidentEmailsQR(t *testing.T) {
	f := newTokenFixture()
	f.db.residents["r1"] = types.Resident{ID: "r1", Name: "Kim", Phone: "010-1", Email: strPtr("kim@example.com"), Unit: "101 1"}

	out, err := f.svc.IssueForResident(context.Background(), "r1")
	require.NoError(t, err)
	assert.True(t, out.Emailed)
	require.NotNil(t, out.QRTokenRow.ExpiresAt)
	assert.True(t, issueNow.AddDate(1, 0, 0).Equal(*out.QRTokenRow.ExpiresAt))

	require.Len(t, f.mailer.sent, 1)
	sent := f.mailer.sent[0]
	assert.Equal(t, []string{"kim@example.com"}, sent.To)
	assert.Equal(t, mail.DefaultQRSubject, sent.Subject)
	require.Len(t, sent.Attachments, 1)
	text, err := qr.DecodeBytes(sent.Attachments[0].Content)
	require.NoError(t, err)
	assert.Equal(t, out.QRString, text)
	assert.Equal(t, "101 1", f.db.residents["r1"].Unit)
}

func TestTokenService_IssueForResidentWithoutEmail(t *testing.T) {
	f := newTokenFixture()
	f.db.residents["r1"] = types.Resident{ID: "r1", Name: "Kim", Phone: "010-1"}

	out, err := f.svc.IssueForResident(context.Background(), "r1")
	require.NoError(t, err)
	assert.False(t, out.Emailed)
	assert.Equal(t, ErrNoEmail.Error(), out.EmailError)
	assert.Len(t, f.db.tokens, 1)

	_, err = f.svc.IssueForResident(context.Background(), "nobody")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestTokenService_IssueForResidentRequiresNoActiveToken(t *testing.T) {
	f := newTokenFixture()
	ctx := context.Background()
	future := issueNow.AddDate(0, 1, 0)
	past := issueNow.AddDate(0, -1, 0)
	f.db.residents["r1"] = types.Resident{ID: "r1", Name: "Kim", Phone: "010-1"}
	f.db.residents["r2"] = types.Resident{ID: "r2", Name: "Lee", Phone: "010-2"}
	f.db.residents["r3"] = types.Resident{ID: "r3", Name: "Park", Phone: "010-3"}
	f.db.tokens = []types.Token{
		{ID: "t1", ResidentID: "r1", Token: "live", ExpiresAt: &future},
		{ID: "t2", ResidentID: "r2", Token: "lapsed", ExpiresAt: &past},
		{ID: "t3", ResidentID: "r3", Token: "pulled", ExpiresAt: &future, Revoked: true},
	}

	_, err := f.svc.IssueForResident(ctx, "r1")
	require.ErrorIs(t, err, ErrTokenActive)
	assert.Len(t, f.db.tokens, 3)

	for _, id := range []string{"r2", "r3"} {
		out, err := f.svc.IssueForResident(ctx, id)
		require.NoError(t, err, id)
		assert.Equal(t, id, out.QRTokenRow.ResidentID)
	}
	assert.Len(t, f.db.tokens, 5)
}

func TestTokenService_EmailCurrent(t *testing.T) {
	f := newTokenFixture()
	ctx := context.Background()
	f.db.residents["r1"] = types.Resident{ID: "r1", Phone: "010-1", Email: strPtr("kim@example.com")}
	f.db.residents["r2"] = types.Resident{ID: "r2", Phone: "010-2"}

	require.ErrorIs(t, f.svc.EmailCurrent(ctx, "r1"), ErrNoToken)

	f.db.tokens = []types.Token{
		{ID: "t1", ResidentID: "r1", Token: "first", CreatedAt: issueNow.Add(-time.Hour)},
		{ID: "t2", ResidentID: "r1", Token: "second", CreatedAt: issueNow},
		{ID: "t3", ResidentID: "r2", Token: "other", CreatedAt: issueNow},
	}
	require.NoError(t, f.svc.EmailCurrent(ctx, "r1"))
	require.Len(t, f.mailer.sent, 1)
	text, err := qr.DecodeBytes(f.mailer.sent[0].Attachments[0].Content)
	require.NoError(t, err)
	assert.Equal(t, qr.NewPayload("010-1", "second").String(), text)

	require.ErrorIs(t, f.svc.EmailCurrent(ctx, "r2"), ErrNoEmail)

	f.mailer.err = mail.ErrDisabled
	require.ErrorIs(t, f.svc.EmailCurrent(ctx, "r1"), ErrMailerDisabled)

	f.mailer.err = errors.New("provider down")
	require.EqualError(t, f.svc.EmailCurrent(ctx, "r1"), "provider down")
}

func TestTokenService_RevokeDeleteAndQRCode(t *testing.T) {
	f := newTokenFixture()
	ctx := context.Background()
	future := issueNow.Add(time.Hour)
	f.db.residents["r1"] = types.Resident{ID: "r1", Phone: "010-1"}
	f.db.tokens = []types.Token{{ID: "t1", ResidentID: "r1", Token: "tok", ExpiresAt: &future}}

	png, err := f.svc.QRCode(ctx, "t1")
	require.NoError(t, err)
	text, err := qr.DecodeBytes(png)
	require.NoError(t, err)
	assert.Equal(t, qr.NewPayload("010-1", "tok").String(), text)

	require.NoError(t, f.svc.Revoke(ctx, "t1"))
	v, err := f.svc.Verify(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, ReasonRevoked, v.Reason)

	list, err := f.svc.ListByResident(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, f.svc.Delete(ctx, "t1"))
	require.ErrorIs(t, f.svc.Delete(ctx, "t1"), store.ErrNotFound)
	assert.Contains(t, f.db.residents, "r1")
}
