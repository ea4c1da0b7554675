// Package auth provides service-to-service authentication. The ledger
// has no human users: callers are owning modules (sales, receiving,
// transfers, production) that exchange an API key for a short-lived JWT.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"stockledger/internal/core/appctx"
)

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

// DefaultJWTConfig returns default JWT configuration.
func DefaultJWTConfig(secret string) JWTConfig {
	return JWTConfig{
		Secret:   secret,
		Issuer:   "stockledger",
		TokenTTL: time.Hour,
	}
}

// Claims are the service token claims. Subject is the module name.
type Claims struct {
	jwt.RegisteredClaims
	Module string   `json:"mod"`
	Scopes []string `json:"scopes,omitempty"`
}

// JWTService signs and validates service tokens.
type JWTService struct {
	config JWTConfig
}

// NewJWTService creates a new JWT service.
func NewJWTService(config JWTConfig) *JWTService {
	return &JWTService{config: config}
}

// GenerateToken issues a service token for a module.
func (s *JWTService) GenerateToken(module string, scopes []string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.config.TokenTTL)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   module,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Module: module,
		Scopes: scopes,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateToken validates a service token and returns the caller context.
// The company ID is not a token claim; it travels per request.
func (s *JWTService) ValidateToken(tokenString string) (*appctx.CallerContext, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	module := claims.Module
	if module == "" {
		module = claims.Subject
	}

	return &appctx.CallerContext{
		Module: module,
		Scopes: claims.Scopes,
	}, nil
}
