package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"jewelflow/internal/model"
)

var ErrMalformedToken = errors.New("malformed token")

// Claims is the subset of access-token claims the client reads. The
// signature is not verified: the client holds no key, and the result is
// only a display cache. The server stays authoritative.
type Claims struct {
	User      model.User
	ExpiresAt time.Time
}

func DecodeClaims(token string) (*Claims, error) {
	mapClaims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mapClaims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	claims := &Claims{}
	claims.User.ID = stringClaim(mapClaims, "user_id")
	if claims.User.ID == "" {
		claims.User.ID = stringClaim(mapClaims, "sub")
	}
	claims.User.Email = stringClaim(mapClaims, "email")
	claims.User.FirstName = stringClaim(mapClaims, "first_name")
	claims.User.LastName = stringClaim(mapClaims, "last_name")
	claims.User.Role = stringClaim(mapClaims, "role")

	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}

	return claims, nil
}

// IsExpired reports whether token is unreadable, has no exp claim, or
// expired before now.
func IsExpired(token string, now time.Time) bool {
	claims, err := DecodeClaims(token)
	if err != nil || claims.ExpiresAt.IsZero() {
		return true
	}
	return claims.ExpiresAt.Before(now)
}

func stringClaim(claims jwt.MapClaims, key string) string {
	switch v := claims[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}
