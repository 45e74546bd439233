package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// JWTVerifier validates HS256-signed, expiring tokens carrying a "userId"
// claim.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret []byte) *JWTVerifier {
	return &JWTVerifier{secret: secret}
}

func (v *JWTVerifier) Verify(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	userID, ok := claims["userId"].(string)
	if !ok || userID == "" {
		return "", ErrInvalidToken
	}
	return userID, nil
}

// StaticVerifier maps fixed tokens to user ids. For tests and local
// development only.
type StaticVerifier map[string]string

func (v StaticVerifier) Verify(token string) (string, error) {
	userID, ok := v[token]
	if !ok {
		return "", ErrInvalidToken
	}
	return userID, nil
}
