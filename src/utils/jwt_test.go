package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	j := NewJWT("secret")
	token, err := j.GenerateJWT("u1", "somchai", "student")
	require.NoError(t, err)

	claims, err := j.ParseJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "somchai", claims.Username)
	assert.Equal(t, "student", claims.Role)
}

func TestJWTRejects(t *testing.T) {
	j := NewJWT("secret")

	_, err := j.ParseJWT("")
	assert.Error(t, err)

	token, err := NewJWT("other").GenerateJWT("u1", "a", "admin")
	require.NoError(t, err)
	_, err = j.ParseJWT(token)
	assert.Error(t, err, "wrong secret")

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := expired.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = j.ParseJWT(signed)
	assert.Error(t, err, "expired")
}
