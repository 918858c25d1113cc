package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/Daskott/guardian/server/auth/key"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKeyPair(t *testing.T) *key.KeyPair {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key.NewKeyPair(privateKey)
}

func TestEncodeAndDecodeJWT(t *testing.T) {
	keyPair := newTestKeyPair(t)

	token, err := EncodeJWT(NewTokenClaims("user-1", "sam@falcon.com", time.Hour), keyPair)
	require.NoError(t, err)

	claims, err := DecodeJWT(token, keyPair)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "sam@falcon.com", claims.Email)
	assert.Equal(t, "guardian", claims.Issuer)
}

func TestNewTokenClaimsDefaultsTTL(t *testing.T) {
	claims := NewTokenClaims("user-1", "sam@falcon.com", 0)
	assert.Equal(t, int64(DEFAULT_TOKEN_TTL/time.Second), claims.ExpiresAt-claims.IssuedAt)
}

func TestDecodeJWTRejectsInvalidTokens(t *testing.T) {
	keyPair := newTestKeyPair(t)

	expired := NewTokenClaims("user-1", "sam@falcon.com", time.Hour)
	expired.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	expiredToken, err := EncodeJWT(expired, keyPair)
	require.NoError(t, err)

	noSubjectToken, err := EncodeJWT(NewTokenClaims("", "sam@falcon.com", time.Hour), keyPair)
	require.NoError(t, err)

	otherKeyToken, err := EncodeJWT(NewTokenClaims("user-1", "sam@falcon.com", time.Hour), newTestKeyPair(t))
	require.NoError(t, err)

	hmacToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, NewTokenClaims("user-1", "sam@falcon.com", time.Hour)).
		SignedString([]byte("secret"))
	require.NoError(t, err)

	cases := map[string]string{
		"expired":         expiredToken,
		"missing subject": noSubjectToken,
		"foreign key":     otherKeyToken,
		"hmac signed":     hmacToken,
		"garbage":         "not.a.token",
	}

	for description, token := range cases {
		t.Run(description, func(t *testing.T) {
			_, err := DecodeJWT(token, keyPair)
			assert.Error(t, err)
		})
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("very-secure")
	require.NoError(t, err)

	assert.NotEqual(t, "very-secure", hash)
	assert.True(t, CheckPasswordHash("very-secure", hash))
	assert.False(t, CheckPasswordHash("very-secure!", hash))
}
