package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "certverify/pkg/domain-errors"
)

// TestParseID_Invariants validates the parsing invariant:
// "IDs crossing a trust boundary must be valid, non-empty, non-nil UUIDs".
func TestParseID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseCertificateID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseOwnerID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseCertificateID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseCertificateID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, CertificateID(validUUID), id)
	})

	t.Run("round-trips through String", func(t *testing.T) {
		id := NewCertificateID()
		parsed, err := ParseCertificateID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	})
}

// TestTypeDistinction verifies the compiler enforces type safety.
// This is a compile-time check - if this compiles, the invariant holds.
func TestTypeDistinction(t *testing.T) {
	certID := CertificateID(uuid.New())
	ownerID := OwnerID(uuid.New())

	// These would fail to compile if types were interchangeable:
	// var _ CertificateID = ownerID   // compile error
	// var _ OwnerID = certID          // compile error

	assert.NotEqual(t, uuid.UUID(certID), uuid.UUID(ownerID))
}
