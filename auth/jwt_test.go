package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	require.NoError(t, err)
	return signed
}

func TestVerifyJWT_ValidToken(t *testing.T) {
	secret := []byte("test-secret")
	signed := signToken(t, secret, jwt.MapClaims{
		"user_id": float64(42),
		"role":    "creator",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	token, err := VerifyJWT(signed, secret)
	require.NoError(t, err)

	userID, role, err := GetDataFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), userID)
	assert.Equal(t, "creator", role)
}

func TestVerifyJWT_WrongSecret(t *testing.T) {
	signed := signToken(t, []byte("right-secret"), jwt.MapClaims{
		"user_id": float64(42),
		"role":    "creator",
	})

	_, err := VerifyJWT(signed, []byte("wrong-secret"))
	assert.Error(t, err)
}

func TestVerifyJWT_Expired(t *testing.T) {
	secret := []byte("test-secret")
	signed := signToken(t, secret, jwt.MapClaims{
		"user_id": float64(42),
		"role":    "creator",
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})

	_, err := VerifyJWT(signed, secret)
	assert.Error(t, err)
}

func TestGetDataFromToken_MissingClaims(t *testing.T) {
	secret := []byte("test-secret")

	signed := signToken(t, secret, jwt.MapClaims{"role": "creator"})
	token, err := VerifyJWT(signed, secret)
	require.NoError(t, err)
	_, _, err = GetDataFromToken(token)
	assert.Error(t, err)

	signed = signToken(t, secret, jwt.MapClaims{"user_id": float64(1)})
	token, err = VerifyJWT(signed, secret)
	require.NoError(t, err)
	_, _, err = GetDataFromToken(token)
	assert.Error(t, err)
}
