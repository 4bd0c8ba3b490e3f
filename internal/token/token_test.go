package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "printtrace/pkg/domain-errors"
)

func TestRoundTrip(t *testing.T) {
	svc := NewService("test-signing-key", "printtrace", "investigators")

	raw, err := svc.GenerateAccessToken("inv-042", "forensics-north", time.Minute)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(raw)
	require.NoError(t, err)
	assert.Equal(t, "inv-042", claims.InvestigatorID)
	assert.Equal(t, "forensics-north", claims.Unit)
}

func TestValidateToken_Rejections(t *testing.T) {
	svc := NewService("test-signing-key", "printtrace", "investigators")

	t.Run("expired token", func(t *testing.T) {
		raw, err := svc.GenerateAccessToken("inv-042", "", -time.Minute)
		require.NoError(t, err)

		_, err = svc.ValidateToken(raw)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("wrong signing key", func(t *testing.T) {
		other := NewService("different-key", "printtrace", "investigators")
		raw, err := other.GenerateAccessToken("inv-042", "", time.Minute)
		require.NoError(t, err)

		_, err = svc.ValidateToken(raw)
		require.Error(t, err)
	})

	t.Run("garbage input", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-jwt")
		require.Error(t, err)
	})
}
