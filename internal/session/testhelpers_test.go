package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func accessToken(t *testing.T, email string, exp time.Time) string {
	t.Helper()

	return signedToken(t, jwt.MapClaims{
		"user_id":    "42",
		"email":      email,
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"role":       "admin",
		"typ":        "access",
		"exp":        exp.Unix(),
	})
}
