package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
)

type memCredentialRepo struct {
	credentials map[string]ModuleCredential
}

func newMemCredentialRepo() *memCredentialRepo {
	return &memCredentialRepo{credentials: make(map[string]ModuleCredential)}
}

func (r *memCredentialRepo) GetByModule(ctx context.Context, module string) (ModuleCredential, error) {
	c, ok := r.credentials[module]
	if !ok {
		return ModuleCredential{}, apperror.NewNotFound("credential", module)
	}
	return c, nil
}

func (r *memCredentialRepo) Upsert(ctx context.Context, credential ModuleCredential) error {
	r.credentials[credential.Module] = credential
	return nil
}

func newTestService() (*Service, *memCredentialRepo) {
	repo := newMemCredentialRepo()
	jwtService := NewJWTService(DefaultJWTConfig("test-secret"))
	return NewService(repo, jwtService), repo
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	key, err := service.IssueKey(ctx, "sales", []string{ScopeLedgerWrite})
	require.NoError(t, err)
	require.NotEmpty(t, key)

	result, err := service.Authenticate(ctx, "sales", key)
	require.NoError(t, err)
	assert.Equal(t, "sales", result.Module)
	assert.Equal(t, []string{ScopeLedgerWrite}, result.Scopes)
	assert.NotEmpty(t, result.Token)
	assert.True(t, result.ExpiresAt.After(time.Now()))
}

func TestAuthenticate_WrongKey(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	_, err := service.IssueKey(ctx, "sales", []string{ScopeLedgerWrite})
	require.NoError(t, err)

	_, err = service.Authenticate(ctx, "sales", "not-the-key")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeUnauthorized))
}

func TestAuthenticate_UnknownModule(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	_, err := service.Authenticate(ctx, "ghost", "whatever")
	require.Error(t, err)

	// Same response as a bad key; module existence must not leak.
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "invalid credentials", appErr.Message)
}

func TestAuthenticate_DisabledCredential(t *testing.T) {
	ctx := context.Background()
	service, repo := newTestService()

	key, err := service.IssueKey(ctx, "sales", []string{ScopeLedgerWrite})
	require.NoError(t, err)

	disabled := time.Now().UTC()
	credential := repo.credentials["sales"]
	credential.DisabledAt = &disabled
	repo.credentials["sales"] = credential

	_, err = service.Authenticate(ctx, "sales", key)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeUnauthorized))
}

func TestIssueKey_DefaultScope(t *testing.T) {
	ctx := context.Background()
	service, repo := newTestService()

	_, err := service.IssueKey(ctx, "reporting", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{ScopeLedgerRead}, repo.credentials["reporting"].Scopes)
}

func TestValidateToken(t *testing.T) {
	jwtService := NewJWTService(DefaultJWTConfig("test-secret"))

	token, _, err := jwtService.GenerateToken("transfers", []string{ScopeLedgerWrite, ScopeLedgerRead})
	require.NoError(t, err)

	caller, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "transfers", caller.Module)
	assert.Equal(t, []string{ScopeLedgerWrite, ScopeLedgerRead}, caller.Scopes)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	issuer := NewJWTService(DefaultJWTConfig("secret-a"))
	verifier := NewJWTService(DefaultJWTConfig("secret-b"))

	token, _, err := issuer.GenerateToken("sales", []string{ScopeLedgerWrite})
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	cfg := DefaultJWTConfig("test-secret")
	cfg.TokenTTL = -time.Minute
	jwtService := NewJWTService(cfg)

	token, _, err := jwtService.GenerateToken("sales", nil)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	assert.Error(t, err)
}
