// Package domain holds typed identifiers shared across modules.
//
// IDs are distinct named types over uuid.UUID so the compiler rejects
// cross-type assignment (passing an OwnerID where a CertificateID is
// expected). Parse helpers enforce the invariant that IDs crossing a trust
// boundary are valid, non-nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "certverify/pkg/domain-errors"
)

// CertificateID identifies a certificate record. It doubles as the public
// share-link token: share URLs address certificates by this ID directly.
type CertificateID uuid.UUID

// OwnerID identifies the account that submitted a certificate.
type OwnerID uuid.UUID

// ParseCertificateID validates and converts a string into a CertificateID.
func ParseCertificateID(s string) (CertificateID, error) {
	u, err := parseUUID(s, "certificate id")
	if err != nil {
		return CertificateID{}, err
	}
	return CertificateID(u), nil
}

// ParseOwnerID validates and converts a string into an OwnerID.
func ParseOwnerID(s string) (OwnerID, error) {
	u, err := parseUUID(s, "owner id")
	if err != nil {
		return OwnerID{}, err
	}
	return OwnerID(u), nil
}

func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" must not be the nil UUID")
	}
	return u, nil
}

func (id CertificateID) String() string { return uuid.UUID(id).String() }

func (id CertificateID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id OwnerID) String() string { return uuid.UUID(id).String() }

func (id OwnerID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// NewCertificateID returns a freshly generated certificate ID.
func NewCertificateID() CertificateID { return CertificateID(uuid.New()) }

// Named types over uuid.UUID do not inherit its methods, so the text
// marshalers are restated here to keep JSON output as canonical UUID strings.

func (id CertificateID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *CertificateID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = CertificateID(u)
	return nil
}

func (id OwnerID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *OwnerID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = OwnerID(u)
	return nil
}
