package utils

import (
	"errors"
	"time"

	"github.com/asmaravianti/ecg-compression/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the team identity inside a session token. Tokens are
// stateless: there is no revocation list, a token is good until expiry.
type Claims struct {
	Email    string `json:"email"`
	TeamName string `json:"teamName"`
	jwt.RegisteredClaims
}

// GenerateToken signs a session token for a team. Expiry defaults to 24
// hours and is configurable via TOKEN_TTL_HOURS.
func GenerateToken(email, teamName string) (string, error) {
	ttl := time.Duration(config.AppConfig.TokenTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	now := time.Now()
	claims := &Claims{
		Email:    email,
		TeamName: teamName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "ecg-compression-backend",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.AppConfig.JWTSecret))
}

func ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(config.AppConfig.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
