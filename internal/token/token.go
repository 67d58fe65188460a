// Package token выпускает и проверяет подписанные bearer-токены сессий.
// Токен несёт только указатель на сессию; активность сессии всегда
// перепроверяется по БД — подпись сама по себе не даёт доступа.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/unionportal/internal/model"
)

const issuer = "unionportal-auth"

type Claims struct {
	SessionID string            `json:"session_id"`
	Kind      model.SessionKind `json:"kind"`
	Role      model.Role        `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// New подписывает токен сессии (HS256).
func New(secret string, ttl time.Duration, sessionID string, kind model.SessionKind, role model.Role) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		SessionID: sessionID,
		Kind:      kind,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// Parse проверяет подпись и срок действия, возвращает claims.
func Parse(secret, tokenString string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}
	claims, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
