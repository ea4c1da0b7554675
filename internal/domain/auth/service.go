package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"stockledger/internal/core/apperror"
	"stockledger/pkg/logger"
)

// Service authenticates calling modules: API key in, service token out.
type Service struct {
	credentials CredentialRepository
	jwt         *JWTService
}

// NewService creates the auth service.
func NewService(credentials CredentialRepository, jwt *JWTService) *Service {
	return &Service{
		credentials: credentials,
		jwt:         jwt,
	}
}

// TokenResult is the issued token with its expiry.
type TokenResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Module    string    `json:"module"`
	Scopes    []string  `json:"scopes"`
}

// Authenticate exchanges a module API key for a service token.
func (s *Service) Authenticate(ctx context.Context, module, apiKey string) (*TokenResult, error) {
	if module == "" || apiKey == "" {
		return nil, apperror.NewUnauthorized("module and api key are required")
	}

	credential, err := s.credentials.GetByModule(ctx, module)
	if err != nil {
		if apperror.IsNotFound(err) {
			// Same response as a bad key; do not leak which modules exist.
			return nil, apperror.NewUnauthorized("invalid credentials")
		}
		return nil, fmt.Errorf("get credential: %w", err)
	}

	if !credential.Enabled() {
		return nil, apperror.NewUnauthorized("credential disabled")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(credential.KeyHash), []byte(apiKey)); err != nil {
		return nil, apperror.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.jwt.GenerateToken(module, credential.Scopes)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	logger.Info(ctx, "service token issued", "module", module, "scopes", credential.Scopes)

	return &TokenResult{
		Token:     token,
		ExpiresAt: expiresAt,
		Module:    module,
		Scopes:    credential.Scopes,
	}, nil
}

// IssueKey creates a credential for a module and returns the plaintext
// key once. Existing credentials for the module are replaced.
func (s *Service) IssueKey(ctx context.Context, module string, scopes []string) (string, error) {
	if module == "" {
		return "", apperror.NewValidation("module is required")
	}
	if len(scopes) == 0 {
		scopes = []string{ScopeLedgerRead}
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	plaintext := hex.EncodeToString(raw)

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash key: %w", err)
	}

	err = s.credentials.Upsert(ctx, ModuleCredential{
		Module:    module,
		KeyHash:   string(hash),
		Scopes:    scopes,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("store credential: %w", err)
	}

	logger.Info(ctx, "api key issued", "module", module, "scopes", scopes)
	return plaintext, nil
}
