package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	require.NoError(t, Init(time.Hour))

	id := uuid.New()
	token, err := CreateSessionToken(id)
	require.NoError(t, err)

	got, err := ParseSessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestParseSessionTokenRejectsGarbage(t *testing.T) {
	require.NoError(t, Init(0))

	_, err := ParseSessionToken("not-a-token")
	assert.Error(t, err)
}

func TestParseSessionTokenRejectsOtherKey(t *testing.T) {
	require.NoError(t, Init(0))
	token, err := CreateSessionToken(uuid.New())
	require.NoError(t, err)

	require.NoError(t, Init(0))
	_, err = ParseSessionToken(token)
	assert.Error(t, err)
}

func TestExpiredSessionToken(t *testing.T) {
	require.NoError(t, Init(time.Hour))

	claims := jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(privateKey)
	require.NoError(t, err)

	_, err = ParseSessionToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}
