// Package security issues session tokens and random secrets.
package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken reports a malformed, expired or foreign token.
var ErrInvalidToken = errors.New("invalid session token")

// SessionClaims carries the session identity inside a token.
type SessionClaims struct {
	jwt.RegisteredClaims
	UID     string `json:"uid"`
	IsAdmin bool   `json:"adm,omitempty"`
}

// IssueSessionToken signs an HS256 token for uid valid for expiry.
func IssueSessionToken(secret, uid string, isAdmin bool, expiry time.Duration, now time.Time) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", fmt.Errorf("security: missing jwt secret")
	}
	if uid == "" {
		return "", fmt.Errorf("security: missing uid")
	}
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  uid,
			IssuedAt: jwt.NewNumericDate(now),
		},
		UID:     uid,
		IsAdmin: isAdmin,
	}
	if expiry > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(expiry))
	}
	signed, errSign := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if errSign != nil {
		return "", fmt.Errorf("security: sign token: %w", errSign)
	}
	return signed, nil
}

// ParseSessionToken validates raw and returns its claims.
func ParseSessionToken(secret, raw string) (SessionClaims, error) {
	claims := SessionClaims{}
	token, errParse := jwt.ParseWithClaims(strings.TrimSpace(raw), &claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if errParse != nil || !token.Valid || claims.UID == "" {
		return SessionClaims{}, ErrInvalidToken
	}
	return claims, nil
}

// GenerateRandomString returns a hex string built from n random bytes.
func GenerateRandomString(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("security: invalid length %d", n)
	}
	buf := make([]byte, n)
	if _, errRead := rand.Read(buf); errRead != nil {
		return "", fmt.Errorf("security: read random: %w", errRead)
	}
	return hex.EncodeToString(buf), nil
}
