package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenManager_IssueAndValidate(t *testing.T) {
	tm := NewTokenManager("test-secret-32-characters-long!", 15*time.Minute, 7*24*time.Hour)

	access, refresh, err := tm.Issue("acct-1", "alice@example.com")
	assert.NoError(t, err)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, refresh)
	assert.NotEqual(t, access, refresh)

	claims, err := tm.Validate(access)
	assert.NoError(t, err)
	assert.Equal(t, "access", claims.Type)
	assert.Equal(t, "acct-1", claims.AccountID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.NotEmpty(t, claims.ID)

	refreshClaims, err := tm.Validate(refresh)
	assert.NoError(t, err)
	assert.Equal(t, "refresh", refreshClaims.Type)
}

func TestTokenManager_RejectsWrongSecret(t *testing.T) {
	tm := NewTokenManager("test-secret-32-characters-long!", 15*time.Minute, time.Hour)
	other := NewTokenManager("different-secret-32-chars-long!!", 15*time.Minute, time.Hour)

	access, _, err := tm.Issue("acct-1", "alice@example.com")
	assert.NoError(t, err)

	_, err = other.Validate(access)
	assert.Error(t, err)
}

func TestTokenManager_RejectsExpired(t *testing.T) {
	tm := NewTokenManager("test-secret-32-characters-long!", -1*time.Minute, time.Hour)

	access, _, err := tm.Issue("acct-1", "alice@example.com")
	assert.NoError(t, err)

	_, err = tm.Validate(access)
	assert.Error(t, err)
}
