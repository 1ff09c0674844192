package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"loresmith-backend/shared/config"
)

type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// GetJWTExpireDuration parses JWT_EXPIRES_IN; falls back to 24h
func GetJWTExpireDuration(cfg *config.Config) time.Duration {
	if cfg.JWTExpiresIn == "" {
		return 24 * time.Hour
	}
	d, err := time.ParseDuration(cfg.JWTExpiresIn)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// GenerateJWT issues a signed token for the given subject
func GenerateJWT(cfg *config.Config, userID, email string) (string, error) {
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(GetJWTExpireDuration(cfg))),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// ValidateJWT parses and validates a token string
func ValidateJWT(cfg *config.Config, tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}
