// Package store persists certificate records. Records are write-once: the
// interface deliberately exposes no update or delete, which is what makes
// concurrent submissions race-free without cross-record locking.
package store

import (
	"context"

	"certverify/internal/certificate/models"
	id "certverify/pkg/domain"
)

// Store is interface-driven so the in-memory implementation can back unit
// tests while postgres backs deployments, without rewiring business code.
//
// List results are ordered by UploadedAt descending; records sharing a
// timestamp keep their insertion order (stable).
type Store interface {
	// Insert persists a new record atomically. Returns sentinel.ErrConflict
	// if the id already exists.
	Insert(ctx context.Context, cert *models.Certificate) error
	// GetByID returns the full record or sentinel.ErrNotFound.
	GetByID(ctx context.Context, certID id.CertificateID) (*models.Certificate, error)
	// ListByOwner returns every record submitted by the owner.
	ListByOwner(ctx context.Context, ownerID id.OwnerID) ([]*models.Certificate, error)
	// ListByStatus returns every record carrying the given status.
	ListByStatus(ctx context.Context, status models.VerificationStatus) ([]*models.Certificate, error)
}
