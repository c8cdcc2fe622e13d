package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"cardlink/backend/internal/domain/cardholder"
	"cardlink/backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoginService(t *testing.T) (*Service, *cardholder.Service, *cardholder.Profile) {
	t.Helper()
	cards := cardholder.NewService(testutil.NewCardholders(), nil)
	p, err := cards.Create(context.Background(), "c1", "admin-1", cardholder.CreateInput{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@example.com",
		Password:  "correct horse",
	})
	require.NoError(t, err)

	issuer, err := NewIssuer(testSecret, "cardlink", time.Hour)
	require.NoError(t, err)
	return NewService(cards, issuer, nil), cards, p
}

func TestLogin(t *testing.T) {
	svc, cards, p := newLoginService(t)
	ctx := context.Background()

	res, err := svc.Login(ctx, LoginInput{Email: " Jane@Example.com ", Password: "correct horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, p.ID, res.Profile.ID)
	assert.True(t, res.ExpiresAt.After(time.Now()))

	claims, err := svc.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, p.ID, claims.Subject)
	assert.Equal(t, "c1", claims.CompanyID)

	self, err := cards.GetSelf(ctx, p.ID)
	require.NoError(t, err)
	assert.NotNil(t, self.LastLoginAt)
}

func TestLoginFailures(t *testing.T) {
	svc, cards, p := newLoginService(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, LoginInput{Email: "jane@example.com", Password: "wrong"})
	assert.True(t, IsErrUnauthorized(err))
	assert.EqualError(t, err, "unauthorized: invalid email or password")

	_, err = svc.Login(ctx, LoginInput{Email: "ghost@example.com", Password: "correct horse"})
	assert.True(t, IsErrUnauthorized(err))

	_, err = svc.Login(ctx, LoginInput{Email: "jane@example.com"})
	assert.True(t, IsErrBadRequest(err))

	_, err = svc.Login(ctx, LoginInput{Email: "not-an-email", Password: "x"})
	assert.True(t, IsErrBadRequest(err))

	_, err = cards.SetActive(ctx, "c1", p.ID, false)
	require.NoError(t, err)
	_, err = svc.Login(ctx, LoginInput{Email: "jane@example.com", Password: "correct horse"})
	assert.EqualError(t, err, "unauthorized: account is disabled")
}

type brokenAuth struct{}

func (brokenAuth) VerifyPassword(context.Context, string, string) (*cardholder.Profile, error) {
	return nil, errors.New("firestore unavailable")
}

func (brokenAuth) RecordLogin(context.Context, string) error { return nil }

func TestLoginPassesThroughStoreErrors(t *testing.T) {
	issuer, err := NewIssuer(testSecret, "cardlink", time.Hour)
	require.NoError(t, err)
	svc := NewService(brokenAuth{}, issuer, nil)

	_, err = svc.Login(context.Background(), LoginInput{Email: "jane@example.com", Password: "pw"})
	assert.EqualError(t, err, "firestore unavailable")
	assert.False(t, IsErrUnauthorized(err))
}
