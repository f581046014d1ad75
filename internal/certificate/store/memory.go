package store

import (
	"context"
	"sort"
	"sync"

	"certverify/internal/certificate/models"
	id "certverify/pkg/domain"
	"certverify/pkg/platform/sentinel"
)

// InMemory keeps certificates in a map guarded by an RWMutex. It favors
// clarity over performance and backs unit tests and dev mode.
type InMemory struct {
	mu    sync.RWMutex
	byID  map[id.CertificateID]*models.Certificate
	order []id.CertificateID // insertion order, the stable tiebreaker for lists
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID: make(map[id.CertificateID]*models.Certificate),
	}
}

func (s *InMemory) Insert(_ context.Context, cert *models.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[cert.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *cert
	s.byID[cert.ID] = &cp
	s.order = append(s.order, cert.ID)
	return nil
}

func (s *InMemory) GetByID(_ context.Context, certID id.CertificateID) (*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cert, ok := s.byID[certID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *cert
	return &cp, nil
}

func (s *InMemory) ListByOwner(_ context.Context, ownerID id.OwnerID) ([]*models.Certificate, error) {
	return s.list(func(c *models.Certificate) bool { return c.OwnerID == ownerID }), nil
}

func (s *InMemory) ListByStatus(_ context.Context, status models.VerificationStatus) ([]*models.Certificate, error) {
	return s.list(func(c *models.Certificate) bool { return c.VerificationStatus == status }), nil
}

func (s *InMemory) list(keep func(*models.Certificate) bool) []*models.Certificate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Certificate, 0)
	for _, certID := range s.order {
		cert := s.byID[certID]
		if keep(cert) {
			cp := *cert
			out = append(out, &cp)
		}
	}
	// Stable sort over the insertion-ordered slice: equal timestamps keep
	// their insertion order.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UploadedAt.After(out[j].UploadedAt)
	})
	return out
}
