package auth

import (
	"context"
	"testing"
	"time"

	"github.com/YelzhanWeb/restaurant/internal/config"
	"github.com/YelzhanWeb/restaurant/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	a := NewAuthenticator(config.AuthConfig{JWTSecret: "s3cret", Issuer: "restaurant"})

	token, err := a.Issue(domain.Principal{UserID: "u1", Role: domain.RoleDelivery}, time.Hour)
	require.NoError(t, err)

	p, err := a.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, domain.RoleDelivery, p.Role)
}

func TestVerifyRejects(t *testing.T) {
	a := NewAuthenticator(config.AuthConfig{JWTSecret: "s3cret", Issuer: "restaurant"})
	other := NewAuthenticator(config.AuthConfig{JWTSecret: "other", Issuer: "restaurant"})
	foreign := NewAuthenticator(config.AuthConfig{JWTSecret: "s3cret", Issuer: "someone-else"})

	wrongKey, err := other.Issue(domain.Principal{UserID: "u1"}, time.Hour)
	require.NoError(t, err)
	wrongIssuer, err := foreign.Issue(domain.Principal{UserID: "u1"}, time.Hour)
	require.NoError(t, err)

	a.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := a.Issue(domain.Principal{UserID: "u1"}, time.Hour)
	require.NoError(t, err)
	a.now = time.Now

	for name, token := range map[string]string{
		"garbage":      "not-a-token",
		"wrong key":    wrongKey,
		"wrong issuer": wrongIssuer,
		"expired":      expired,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := a.Verify(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestPrincipalContext(t *testing.T) {
	_, ok := PrincipalFrom(context.Background())
	assert.False(t, ok)

	ctx := WithPrincipal(context.Background(), domain.Principal{UserID: "u1"})
	p, ok := PrincipalFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", p.UserID)
}
