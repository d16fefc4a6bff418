package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "soulpass/pkg/domain"
	dErrors "soulpass/pkg/domain-errors"
)

var jwtService = NewJWTService(
	"test-signing-key",
	"test-issuer",
	"test-audience",
)
var expiresIn = time.Hour

func testCaller(t *testing.T) id.Address {
	t.Helper()
	caller, err := id.ParseAddress("0xabcdefabcdefabcdefabcdefabcdefabcdefabcd")
	require.NoError(t, err)
	return caller
}

func Test_GenerateAccessToken(t *testing.T) {
	caller := testCaller(t)

	token, err := jwtService.GenerateAccessToken(caller, expiresIn)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, caller.String(), claims.CallerAddress)
	assert.WithinDuration(t, time.Now().Add(expiresIn), claims.ExpiresAt.Time, time.Minute)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	require.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(testCaller(t), -time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.Equal(t, "token has expired", dErrors.MessageOf(err))
}

func Test_ValidateToken_WrongKey(t *testing.T) {
	other := NewJWTService("other-signing-key", "test-issuer", "test-audience")
	token, err := other.GenerateAccessToken(testCaller(t), expiresIn)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ExtractCallerFromToken(t *testing.T) {
	caller := testCaller(t)

	token, err := jwtService.GenerateAccessToken(caller, expiresIn)
	require.NoError(t, err)

	extracted, err := jwtService.ExtractCallerFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, caller, extracted)
}
