package jwttoken

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "feedlink/pkg/domain-errors"
)

var jwtService = NewJWTService("test-signing-key")

func Test_GenerateAndValidate(t *testing.T) {
	donorID := uuid.New()
	token, err := jwtService.GenerateAccessToken(donorID, time.Hour)
	require.NoError(t, err)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, donorID.String(), claims.UserID)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(uuid.New(), -time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, "token has expired", dErrors.MessageOf(err))
}

func Test_ValidateToken_WrongKey(t *testing.T) {
	token, err := NewJWTService("other-key").GenerateAccessToken(uuid.New(), time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ParseToken_FallsBackToSubject(t *testing.T) {
	donorID := uuid.New()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   donorID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("test-signing-key"))
	require.NoError(t, err)

	claims, err := jwtService.ParseToken(raw)
	require.NoError(t, err)
	assert.Equal(t, donorID.String(), claims.UserID)
}

func Test_ParseToken_RejectsNonUUIDSubject(t *testing.T) {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:           "not-a-uuid",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("test-signing-key"))
	require.NoError(t, err)

	_, err = jwtService.ParseToken(raw)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
