package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBcryptVerifier_MatchesOwnHash(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	assert.NoError(t, err)

	v := NewBcryptVerifier()
	assert.True(t, v.Verify("correct horse battery staple", hash))
	assert.False(t, v.Verify("wrong password", hash))
}

func TestBcryptVerifier_RejectsMalformedHash(t *testing.T) {
	v := NewBcryptVerifier()
	assert.False(t, v.Verify("anything", "not-a-bcrypt-hash"))
}

func TestHashPassword_RejectsEmpty(t *testing.T) {
	_, err := HashPassword("")
	assert.Error(t, err)
}
