package pkg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestJWTManager(accessTTL time.Duration) *JWTManager {
	return NewJWTManager("test-secret", accessTTL, 24*time.Hour, "skybox-test")
}

func TestGenerateAndValidateTokenPair(t *testing.T) {
	jm := newTestJWTManager(15 * time.Minute)
	userID := primitive.NewObjectID()

	pair, err := jm.GenerateTokenPair(userID, "alice@example.com", "user", "session-1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)

	claims, err := jm.ValidateToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "session-1", claims.SessionID)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)

	claims, err = jm.ValidateToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, claims.TokenType)
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	jm := newTestJWTManager(15 * time.Minute)
	pair, err := jm.GenerateTokenPair(primitive.NewObjectID(), "a@b.com", "user", "s")
	require.NoError(t, err)

	_, err = jm.ValidateToken(pair.AccessToken + "x")
	assert.Error(t, err)

	other := NewJWTManager("different-secret", 15*time.Minute, 24*time.Hour, "skybox-test")
	_, err = other.ValidateToken(pair.AccessToken)
	assert.Error(t, err)
}

func TestValidateTokenExpiry(t *testing.T) {
	jm := newTestJWTManager(-time.Minute)
	pair, err := jm.GenerateTokenPair(primitive.NewObjectID(), "a@b.com", "user", "s")
	require.NoError(t, err)

	_, err = jm.ValidateToken(pair.AccessToken)
	assert.Error(t, err)
}

func TestRefreshTokenIssuesNewPair(t *testing.T) {
	jm := newTestJWTManager(15 * time.Minute)
	userID := primitive.NewObjectID()
	pair, err := jm.GenerateTokenPair(userID, "a@b.com", "user", "session-9")
	require.NoError(t, err)

	renewed, err := jm.RefreshToken(pair.RefreshToken)
	require.NoError(t, err)

	claims, err := jm.ValidateToken(renewed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "session-9", claims.SessionID)

	// Access tokens are not accepted for renewal.
	_, err = jm.RefreshToken(pair.AccessToken)
	assert.Error(t, err)
}

func TestExtractTokenFromHeader(t *testing.T) {
	assert.Equal(t, "abc.def.ghi", ExtractTokenFromHeader("Bearer abc.def.ghi"))
	assert.Empty(t, ExtractTokenFromHeader(""))
	assert.Empty(t, ExtractTokenFromHeader("Basic abc"))
	assert.Empty(t, ExtractTokenFromHeader("Bearer"))
}
