package cryptopackage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFromPassword(t *testing.T) {
	hash, err := GenerateFromPassword("mysecretpassword123")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=2,p=4$"))
	assert.Len(t, strings.Split(hash, "$"), 6)
}

// 相同密码盐值不同
func TestGenerateFromPassword_DifferentHashes(t *testing.T) {
	hash1, err := GenerateFromPassword("samepassword123")
	require.NoError(t, err)
	hash2, err := GenerateFromPassword("samepassword123")
	require.NoError(t, err)

	assert.NotEqual(t, hash1, hash2)
}

func TestComparePasswordAndHash(t *testing.T) {
	hash, err := GenerateFromPassword("correctpassword123")
	require.NoError(t, err)

	match, err := ComparePasswordAndHash("correctpassword123", hash)
	require.NoError(t, err)
	assert.True(t, match)

	match, err = ComparePasswordAndHash("wrongpassword123", hash)
	require.NoError(t, err)
	assert.False(t, match)
}

func TestComparePasswordAndHash_InvalidFormat(t *testing.T) {
	invalidHashes := []string{
		"",
		"invalid",
		"$argon2i$v=19$m=65536,t=2,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=65536,t=2,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=2,p=4$",
		"$argon2id$v=19$m=65536,t=2,p=4$c2FsdA$",
		"$argon2id$v=19$m=65536,t=2,p=4$c2FsdA",
	}

	for _, hash := range invalidHashes {
		match, err := ComparePasswordAndHash("password", hash)
		assert.ErrorIs(t, err, ErrInvalidHash, "hash: %s", hash)
		assert.False(t, match, "hash: %s", hash)
	}
}
