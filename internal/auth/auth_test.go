package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
)

var testKey = []byte("test-signing-key")

func TestVerify(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		token, err := NewToken(testKey, 42, time.Hour)
		assert.NoError(t, err, "expected token to be minted")

		v := NewJwtVerifier(testKey)
		userId, err := v.Verify(token)
		assert.NoError(t, err, "expected valid token to verify")
		assert.Equal(t, 42, userId, "expected user id from claims")
	})

	t.Run("missing token", func(t *testing.T) {
		v := NewJwtVerifier(testKey)
		_, err := v.Verify("")
		assert.ErrorIs(t, err, ErrNoToken, "expected ErrNoToken for empty credential")
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := NewToken(testKey, 42, -time.Minute)
		assert.NoError(t, err, "expected token to be minted")

		v := NewJwtVerifier(testKey)
		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrTokenExpired, "expected distinct expiry error")
	})

	t.Run("malformed token", func(t *testing.T) {
		v := NewJwtVerifier(testKey)
		_, err := v.Verify("not-a-jwt")
		assert.ErrorIs(t, err, ErrTokenInvalid, "expected ErrTokenInvalid for garbage")
	})

	t.Run("wrong signing key", func(t *testing.T) {
		token, err := NewToken([]byte("other-key"), 42, time.Hour)
		assert.NoError(t, err, "expected token to be minted")

		v := NewJwtVerifier(testKey)
		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrTokenInvalid, "expected ErrTokenInvalid for bad signature")
	})

	t.Run("missing user id claim", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			expClaim: time.Now().Add(time.Hour).Unix(),
		})
		signed, err := token.SignedString(testKey)
		assert.NoError(t, err, "expected token to be signed")

		v := NewJwtVerifier(testKey)
		_, err = v.Verify(signed)
		assert.ErrorIs(t, err, ErrTokenInvalid, "expected ErrTokenInvalid without user id claim")
	})
}
