package token

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "tradelane/pkg/domain"
	dErrors "tradelane/pkg/domain-errors"
)

func TestMintAndValidate(t *testing.T) {
	svc := NewService("test-signing-key", "tradelane-test")
	actor := id.Actor{Party: id.PartyBuyer, CompanyID: id.CompanyID(uuid.New())}

	tokenString, err := svc.Mint(actor, time.Hour)
	require.NoError(t, err)

	got, err := svc.Validate(tokenString)
	require.NoError(t, err)
	assert.Equal(t, actor, got)
}

func TestValidate_Rejections(t *testing.T) {
	svc := NewService("test-signing-key", "tradelane-test")
	actor := id.Actor{Party: id.PartySeller, CompanyID: id.CompanyID(uuid.New())}

	t.Run("wrong signing key", func(t *testing.T) {
		other := NewService("different-key", "tradelane-test")
		tokenString, err := other.Mint(actor, time.Hour)
		require.NoError(t, err)

		_, err = svc.Validate(tokenString)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("expired token", func(t *testing.T) {
		tokenString, err := svc.Mint(actor, -time.Minute)
		require.NoError(t, err)

		_, err = svc.Validate(tokenString)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.Validate("not.a.token")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
