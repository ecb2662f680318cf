package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "tradelane/pkg/domain-errors"
)

// TestParseTradeID_Invariants validates that ids must be valid, non-empty,
// non-nil UUIDs at trust boundaries.
func TestParseTradeID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseTradeID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseTradeID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseTradeID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		id, err := ParseTradeID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, valid.String(), id.String())
	})
}

func TestParseCompanyID_RoundTrip(t *testing.T) {
	valid := uuid.New()
	id, err := ParseCompanyID(valid.String())
	require.NoError(t, err)
	assert.Equal(t, valid.String(), id.String())
	assert.False(t, id.IsNil())
}

func TestNewTradeID_NotNil(t *testing.T) {
	assert.False(t, NewTradeID().IsNil())
}
