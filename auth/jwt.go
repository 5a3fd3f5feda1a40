package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// This service never issues tokens. The marketplace API does; we only verify
// its signature and pull identity claims out.

func VerifyJWT(tokenString string, secret []byte) (*jwt.Token, error) {
	// parse token
	jwtToken, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})

	if err != nil {
		return nil, err
	}

	// isValid
	if !jwtToken.Valid {
		return nil, errors.New("token invalid")
	}

	return jwtToken, nil
}

// GetDataFromToken extracts the marketplace user id and role claims
func GetDataFromToken(token *jwt.Token) (uint64, string, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", errors.New("invalid token claims")
	}

	rawID, ok := claims["user_id"].(float64)
	if !ok || rawID < 0 {
		return 0, "", errors.New("user_id claim missing")
	}

	role, ok := claims["role"].(string)
	if !ok || role == "" {
		return 0, "", errors.New("role claim missing")
	}

	return uint64(rawID), role, nil
}
