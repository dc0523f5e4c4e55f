package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-at-least-32-chars!!"

func TestGenerateAndValidateAccessToken(t *testing.T) {
	manager := NewManager(testSecret, 15*time.Minute)

	token, err := manager.GenerateAccessToken("doctor@example.com", "Doctor")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := manager.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "doctor@example.com", claims.Email)
	assert.Equal(t, "Doctor", claims.Role)
	assert.Equal(t, "telehealth-auth", claims.Issuer)
	assert.Equal(t, "doctor@example.com", claims.Subject)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	manager := NewManager(testSecret, 15*time.Minute)
	other := NewManager("another-secret-key-also-32-chars!!!", 15*time.Minute)

	token, err := manager.GenerateAccessToken("patient@example.com", "Patient")
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	manager := NewManager(testSecret, -1*time.Minute)

	token, err := manager.GenerateAccessToken("patient@example.com", "Patient")
	require.NoError(t, err)

	_, err = manager.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_Garbage(t *testing.T) {
	manager := NewManager(testSecret, 15*time.Minute)

	_, err := manager.ValidateToken("not-a-token")
	assert.Error(t, err)
}
