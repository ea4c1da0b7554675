package dto

import (
	"time"

	"stockledger/internal/domain/auth"
)

// TokenRequest exchanges a module API key for a service token.
type TokenRequest struct {
	Module string `json:"module" binding:"required"`
	APIKey string `json:"apiKey" binding:"required"`
}

// TokenResponse carries the issued service token.
type TokenResponse struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Scopes      []string  `json:"scopes"`
}

// FromTokenResult converts the auth result to a response.
func FromTokenResult(r *auth.TokenResult) TokenResponse {
	return TokenResponse{
		AccessToken: r.Token,
		TokenType:   "Bearer",
		ExpiresAt:   r.ExpiresAt,
		Scopes:      r.Scopes,
	}
}
