package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"
)

var JWTKey = []byte("library-desk")

// SetKey overrides the signing key from config. Empty keeps the default.
func SetKey(key string) {
	if key != "" {
		JWTKey = []byte(key)
	}
}

const tokenTTL = 24 * time.Hour

type Claims struct {
	AdminID string `json:"adminId"`
	jwt.RegisteredClaims
}

func GenerateToken(adminID string) (string, error) {
	now := time.Now()
	claims := Claims{
		AdminID: adminID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(JWTKey)
}

type adminIDKey struct{}

func SetAuthContext(ctx context.Context, adminID string) context.Context {
	return context.WithValue(ctx, adminIDKey{}, adminID)
}

func AdminID(ctx context.Context) (string, error) {
	id, ok := ctx.Value(adminIDKey{}).(string)
	if !ok || id == "" {
		return "", errors.New("no admin in context")
	}
	return id, nil
}
