package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("secret", 42, "alice", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken("secret", 1, "alice", time.Hour)
	require.NoError(t, err)

	_, err = ParseToken("other-secret", token)
	assert.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	token, err := GenerateToken("secret", 1, "alice", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken("secret", token)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22!")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22!", hash)

	assert.True(t, CheckPassword(hash, "hunter22!"))
	assert.False(t, CheckPassword(hash, "hunter23!"))
	assert.False(t, CheckPassword("", "hunter22!"))
}

func TestSanitizeStripsScripts(t *testing.T) {
	out := Sanitize(`hi <script>alert(1)</script><b>there</b>`)
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "<b>there</b>")
}
