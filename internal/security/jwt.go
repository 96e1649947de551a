package security

import (
	"time"

	rancho_errors "rancho-chat/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
)

// JWTEncrypter turns an account id into a signed HS256 token and back.
type JWTEncrypter struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTEncrypter(secret string, ttl time.Duration) *JWTEncrypter {
	return &JWTEncrypter{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (e *JWTEncrypter) Encrypt(value string) (string, error) {
	now := e.now()
	claims := jwt.RegisteredClaims{
		Subject:  value,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if e.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(e.ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(e.secret)
}

func (e *JWTEncrypter) Decrypt(token string) (string, error) {
	if token == "" {
		return "", rancho_errors.ErrUnauthorized
	}
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, rancho_errors.ErrUnauthorized
		}
		return e.secret, nil
	}, jwt.WithTimeFunc(e.now))
	if err != nil {
		return "", rancho_errors.ErrUnauthorized
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return "", rancho_errors.ErrUnauthorized
	}
	return claims.Subject, nil
}
