package jwttoken

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
)

var jwtService = NewJWTService("test-signing-key", "test-issuer")

func Test_GenerateToken_Donor(t *testing.T) {
	donorID := domain.DonorID(uuid.New())
	token, err := jwtService.GenerateToken(domain.DonorActor(donorID), time.Hour)
	require.NoError(t, err)

	actor, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.True(t, actor.IsDonor())
	assert.Equal(t, donorID, actor.DonorID)
}

func Test_GenerateToken_Organization(t *testing.T) {
	orgID := domain.OrganizationID(uuid.New())
	token, err := jwtService.GenerateToken(domain.OrganizationActor(orgID), time.Hour)
	require.NoError(t, err)

	actor, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.True(t, actor.IsOrganization())
	assert.Equal(t, orgID, actor.OrganizationID)
}

func Test_GenerateToken_RejectsSystemActor(t *testing.T) {
	_, err := jwtService.GenerateToken(domain.SystemActor(), time.Hour)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.Equal(t, "invalid token", dErrors.MessageOf(err))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	token, err := jwtService.GenerateToken(domain.DonorActor(domain.DonorID(uuid.New())), -time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	assert.Equal(t, "token has expired", dErrors.MessageOf(err))
}

func Test_ValidateToken_WrongKeyOrIssuer(t *testing.T) {
	actor := domain.DonorActor(domain.DonorID(uuid.New()))

	other := NewJWTService("another-key", "test-issuer")
	token, err := other.GenerateToken(actor, time.Hour)
	require.NoError(t, err)
	_, err = jwtService.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	foreign := NewJWTService("test-signing-key", "someone-else")
	token, err = foreign.GenerateToken(actor, time.Hour)
	require.NoError(t, err)
	_, err = jwtService.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
