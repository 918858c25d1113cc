package auth

import (
	"fmt"
	"time"

	"github.com/Daskott/guardian/server/auth/key"
	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/bcrypt"
)

const DEFAULT_TOKEN_TTL = 7 * 24 * time.Hour

type GuardianTokenClaims struct {
	Email string `json:"email"`
	jwt.StandardClaims
}

// NewTokenClaims returns claims for userID that expire after ttl.
func NewTokenClaims(userID, email string, ttl time.Duration) GuardianTokenClaims {
	if ttl <= 0 {
		ttl = DEFAULT_TOKEN_TTL
	}

	now := time.Now()
	return GuardianTokenClaims{
		Email: email,
		StandardClaims: jwt.StandardClaims{
			Subject:   userID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
			Issuer:    "guardian",
		},
	}
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func EncodeJWT(claims GuardianTokenClaims, keyPair *key.KeyPair) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = keyPair.Kid

	tokenString, err := token.SignedString(keyPair.PrivateKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func DecodeJWT(tokenString string, keyPair *key.KeyPair) (*GuardianTokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &GuardianTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		return keyPair.PublicKey, nil
	})

	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid jwt: %v", err)
	}

	tokenClaims, ok := token.Claims.(*GuardianTokenClaims)
	if !ok {
		return nil, fmt.Errorf("unable to assert token.Claims to GuardianTokenClaims")
	}

	if tokenClaims.Subject == "" {
		return nil, fmt.Errorf("invalid jwt: missing subject")
	}

	return tokenClaims, nil
}
