package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	token, err := GenerateJWT(42, "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret", PurposeSession)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
}

func TestParseJWTRejectsWrongPurpose(t *testing.T) {
	token, err := GenerateResetToken(7, "stamp", "secret", time.Hour)
	require.NoError(t, err)

	_, err = ParseJWT(token, "secret", PurposeSession)
	assert.ErrorIs(t, err, ErrWrongPurpose)

	claims, err := ParseJWT(token, "secret", PurposePasswordReset)
	require.NoError(t, err)
	assert.Equal(t, "stamp", claims.Stamp)
}

func TestParseJWTRejectsWrongSecretAndExpiry(t *testing.T) {
	token, err := GenerateJWT(1, "secret", time.Hour)
	require.NoError(t, err)
	_, err = ParseJWT(token, "other", PurposeSession)
	assert.Error(t, err)

	expired, err := GenerateJWT(1, "secret", -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWT(expired, "secret", PurposeSession)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong"))
	assert.False(t, CheckPassword("", "anything"))
	assert.NotEqual(t, NewSecurityStamp(), NewSecurityStamp())
}
