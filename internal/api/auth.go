package api

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vytor/lingoflash/internal/errors"
)

const roleAdmin = "admin"

// Claims carries the user id in the subject and an optional role.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// SignToken issues an HS256 token for userID, valid for ttl.
func SignToken(secret []byte, userID string, admin bool, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if admin {
		claims.Role = roleAdmin
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func parseBearer(header string, secret []byte) (Identity, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return Identity{}, errors.NewUnauthorizedError("missing bearer token")
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), &claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Identity{}, errors.NewUnauthorizedError("invalid token")
	}
	if claims.Subject == "" {
		return Identity{}, errors.NewUnauthorizedError("token has no subject")
	}
	return Identity{UserID: claims.Subject, Admin: claims.Role == roleAdmin}, nil
}
