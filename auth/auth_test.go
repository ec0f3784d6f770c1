package auth

import (
	"errors"
	"testing"
	"time"

	"agora/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.NoError(t, CheckPassword(hash, "correct horse"))
	assert.ErrorIs(t, CheckPassword(hash, "battery staple"), ErrInvalidCredentials)
	assert.ErrorIs(t, CheckPassword("", "anything"), ErrInvalidCredentials)
}

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	user := models.User{Id: "u1", Handle: "ada", Username: "Ada"}

	signed, err := tokens.Issue(user)
	require.NoError(t, err)

	current, err := tokens.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, models.CurrentUser{ID: "u1", Handle: "ada", Username: "Ada"}, current)
}

func TestTokenRejected(t *testing.T) {
	user := models.User{Id: "u1", Handle: "ada", Username: "Ada"}
	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	issuer := NewTokens("secret", time.Hour)
	issuer.now = func() time.Time { return issued }
	signed, err := issuer.Issue(user)
	require.NoError(t, err)

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"handle": "ada",
		"exp":    issued.Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		secret string
		now    time.Time
		token  string
	}{
		{name: "wrong secret", secret: "other", now: issued, token: signed},
		{name: "expired", secret: "secret", now: issued.Add(2 * time.Hour), token: signed},
		{name: "garbage", secret: "secret", now: issued, token: "not-a-token"},
		{name: "missing user id", secret: "secret", now: issued, token: noUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := NewTokens(tt.secret, time.Hour)
			verifier.now = func() time.Time { return tt.now }

			_, err := verifier.Parse(tt.token)
			assert.True(t, errors.Is(err, ErrInvalidToken))
		})
	}
}

func TestDefaultTTL(t *testing.T) {
	assert.Equal(t, DefaultTokenTTL, NewTokens("s", 0).ttl)
}
