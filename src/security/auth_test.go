package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-that-is-long-enough-0123"

func newTestAuthService(t *testing.T, apiKey string) *AuthService {
	t.Helper()
	hash, err := HashAPIKey(apiKey)
	require.NoError(t, err)
	return NewAuthService(testSecret, hash, time.Hour)
}

func TestVerifyAPIKey(t *testing.T) {
	a := newTestAuthService(t, "correct-key")

	assert.NoError(t, a.VerifyAPIKey("correct-key"))
	assert.ErrorIs(t, a.VerifyAPIKey("wrong-key"), ErrInvalidAPIKey)
	assert.ErrorIs(t, a.VerifyAPIKey(""), ErrInvalidAPIKey)
}

func TestVerifyAPIKeyWithoutConfiguredHash(t *testing.T) {
	a := NewAuthService(testSecret, "", time.Hour)
	assert.ErrorIs(t, a.VerifyAPIKey("anything"), ErrInvalidAPIKey)
}

func TestGenerateAndValidateToken(t *testing.T) {
	a := newTestAuthService(t, "key")

	token, err := a.GenerateToken("ingest-client")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	subject, err := a.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ingest-client", subject)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	a := newTestAuthService(t, "key")
	token, err := a.GenerateToken("ingest-client")
	require.NoError(t, err)

	other := NewAuthService("another-secret-key-also-long-enough-0123", "", time.Hour)
	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	hash, err := HashAPIKey("key")
	require.NoError(t, err)
	a := NewAuthService(testSecret, hash, -time.Minute)

	token, err := a.GenerateToken("ingest-client")
	require.NoError(t, err)

	_, err = a.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	a := newTestAuthService(t, "key")
	_, err := a.ValidateToken("not.a.token")
	assert.Error(t, err)
}
