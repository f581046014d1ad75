package visibility

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"certverify/internal/audit"
	"certverify/internal/certificate/models"
	"certverify/internal/certificate/store"
	"certverify/internal/docstore"
	id "certverify/pkg/domain"
	dErrors "certverify/pkg/domain-errors"
)

type VisibilitySuite struct {
	suite.Suite
	ctx        context.Context
	certs      *store.InMemory
	docs       *docstore.InMemory
	auditStore *audit.InMemory
	service    *Service

	now time.Time
}

func TestVisibilitySuite(t *testing.T) {
	suite.Run(t, new(VisibilitySuite))
}

func (s *VisibilitySuite) SetupTest() {
	s.ctx = context.Background()
	s.certs = store.NewInMemory()
	s.docs = docstore.NewInMemory()
	s.auditStore = audit.NewInMemory()
	s.now = time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = New(s.certs, s.docs, 15*time.Minute,
		WithLogger(logger),
		WithAuditPublisher(audit.NewPublisher(s.auditStore)),
	)
}

func (s *VisibilitySuite) addCert(owner id.OwnerID, docType models.DocumentType, status models.VerificationStatus, institution, student string, uploadedAt time.Time) *models.Certificate {
	certID := id.NewCertificateID()
	ref := "certificates/" + certID.String()
	_, err := s.docs.Put(s.ctx, ref, bytes.NewReader([]byte("%PDF-1.4")), 8, "application/pdf")
	s.Require().NoError(err)

	score := 90.0
	if status == models.StatusPartiallyVerified {
		score = 60.0
	} else if status == models.StatusFailed {
		score = 10.0
	}
	cert, err := models.NewCertificate(
		certID, owner, docType, ref,
		models.ExtractedFields{InstitutionName: &institution, StudentName: &student},
		"OCR", nil, &score, status, uploadedAt,
	)
	s.Require().NoError(err)
	s.Require().NoError(s.certs.Insert(s.ctx, cert))
	return cert
}

func (s *VisibilitySuite) TestShareVerified() {
	owner := id.OwnerID(uuid.New())
	cert := s.addCert(owner, models.DocumentTypeDegree, models.StatusVerified, "IIT Madras", "Asha Rao", s.now)

	view, err := s.service.Share(s.ctx, cert.ID)
	s.Require().NoError(err)
	s.Equal(cert.ID, view.ID)
	s.Equal("memory://"+cert.StorageRef, view.RetrievalURL)
	s.Equal(models.StatusVerified, view.VerificationStatus)

	events, err := s.auditStore.ListByOwner(s.ctx, owner)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(audit.ActionShareViewed, events[0].Action)
}

func (s *VisibilitySuite) TestShareNonVerifiedLooksMissing() {
	owner := id.OwnerID(uuid.New())
	partial := s.addCert(owner, models.DocumentTypeDegree, models.StatusPartiallyVerified, "IIT Madras", "Asha Rao", s.now)
	failed := s.addCert(owner, models.DocumentTypeCourse, models.StatusFailed, "IIT Madras", "Asha Rao", s.now)

	for _, certID := range []id.CertificateID{partial.ID, failed.ID, id.NewCertificateID()} {
		_, err := s.service.Share(s.ctx, certID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	}
}

type countingCache struct {
	views      map[id.CertificateID]*PublicCertificate
	portfolios map[id.OwnerID]*Portfolio
	hits       int
	sets       int
}

func newCountingCache() *countingCache {
	return &countingCache{
		views:      make(map[id.CertificateID]*PublicCertificate),
		portfolios: make(map[id.OwnerID]*Portfolio),
	}
}

func (c *countingCache) GetShare(_ context.Context, certID id.CertificateID) (*PublicCertificate, bool) {
	view, ok := c.views[certID]
	if ok {
		c.hits++
	}
	return view, ok
}

func (c *countingCache) SetShare(_ context.Context, certID id.CertificateID, view *PublicCertificate) {
	c.views[certID] = view
	c.sets++
}

func (c *countingCache) GetPortfolio(_ context.Context, ownerID id.OwnerID) (*Portfolio, bool) {
	portfolio, ok := c.portfolios[ownerID]
	if ok {
		c.hits++
	}
	return portfolio, ok
}

func (c *countingCache) SetPortfolio(_ context.Context, ownerID id.OwnerID, portfolio *Portfolio) {
	c.portfolios[ownerID] = portfolio
	c.sets++
}

func (s *VisibilitySuite) TestShareUsesCache() {
	owner := id.OwnerID(uuid.New())
	cert := s.addCert(owner, models.DocumentTypeDegree, models.StatusVerified, "IIT Madras", "Asha Rao", s.now)

	cache := newCountingCache()
	cached := New(s.certs, s.docs, 15*time.Minute, WithCache(cache))

	first, err := cached.Share(s.ctx, cert.ID)
	s.Require().NoError(err)
	second, err := cached.Share(s.ctx, cert.ID)
	s.Require().NoError(err)

	s.Equal(first, second)
	s.Equal(1, cache.sets)
	s.Equal(1, cache.hits)
}

func (s *VisibilitySuite) TestPortfolioAggregates() {
	owner := id.OwnerID(uuid.New())
	s.addCert(owner, models.DocumentTypeDegree, models.StatusVerified, "IIT Madras", "Asha Rao", s.now)
	s.addCert(owner, models.DocumentTypeCourse, models.StatusVerified, "iit madras", "Asha Rao", s.now.Add(time.Hour))
	s.addCert(owner, models.DocumentTypeCourse, models.StatusVerified, "NPTEL", "Asha Rao", s.now.Add(2*time.Hour))
	s.addCert(owner, models.DocumentTypeMarksheet, models.StatusFailed, "Unknown", "Asha Rao", s.now.Add(3*time.Hour))

	portfolio, err := s.service.Portfolio(s.ctx, owner)
	s.Require().NoError(err)
	s.Equal(3, portfolio.TotalVerified)
	s.Len(portfolio.Certificates, 3)
	// Institution names compare case-insensitively.
	s.Equal(2, portfolio.DistinctInstitutions)
	s.Equal(2, portfolio.DistinctDocumentTypes)
	for _, view := range portfolio.Certificates {
		s.Equal(models.StatusVerified, view.VerificationStatus)
	}

	events, err := s.auditStore.ListByOwner(s.ctx, owner)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(audit.ActionPortfolioViewed, events[0].Action)
}

func (s *VisibilitySuite) TestPortfolioUnknownOwnerIsEmpty() {
	portfolio, err := s.service.Portfolio(s.ctx, id.OwnerID(uuid.New()))
	s.Require().NoError(err)
	s.Equal(0, portfolio.TotalVerified)
	s.Empty(portfolio.Certificates)
}

func (s *VisibilitySuite) TestPortfolioUsesCache() {
	owner := id.OwnerID(uuid.New())
	s.addCert(owner, models.DocumentTypeDegree, models.StatusVerified, "IIT Madras", "Asha Rao", s.now)

	cache := newCountingCache()
	cached := New(s.certs, s.docs, 15*time.Minute, WithCache(cache))

	first, err := cached.Portfolio(s.ctx, owner)
	s.Require().NoError(err)
	second, err := cached.Portfolio(s.ctx, owner)
	s.Require().NoError(err)

	s.Equal(first, second)
	s.Equal(1, cache.sets)
	s.Equal(1, cache.hits)
}

type failingAuditStore struct{}

func (failingAuditStore) Append(context.Context, audit.Event) error {
	return errors.New("sink down")
}

func (failingAuditStore) ListByOwner(context.Context, id.OwnerID) ([]audit.Event, error) {
	return nil, errors.New("sink down")
}

func (s *VisibilitySuite) TestReadsSucceedWhenAuditSinkFails() {
	owner := id.OwnerID(uuid.New())
	cert := s.addCert(owner, models.DocumentTypeDegree, models.StatusVerified, "IIT Madras", "Asha Rao", s.now)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(s.certs, s.docs, 15*time.Minute,
		WithLogger(logger),
		WithAuditPublisher(audit.NewPublisher(failingAuditStore{})),
	)

	view, err := svc.Share(s.ctx, cert.ID)
	s.Require().NoError(err)
	s.Equal(cert.ID, view.ID)

	portfolio, err := svc.Portfolio(s.ctx, owner)
	s.Require().NoError(err)
	s.Equal(1, portfolio.TotalVerified)
}

func (s *VisibilitySuite) TestSearch() {
	ownerA := id.OwnerID(uuid.New())
	ownerB := id.OwnerID(uuid.New())
	s.addCert(ownerA, models.DocumentTypeDegree, models.StatusVerified, "IIT Madras", "Asha Rao", s.now)
	s.addCert(ownerB, models.DocumentTypeDegree, models.StatusVerified, "Anna University", "Vikram Iyer", s.now)
	s.addCert(ownerB, models.DocumentTypeDegree, models.StatusFailed, "IIT Madras", "Vikram Iyer", s.now)

	views, err := s.service.Search(s.ctx, SearchFilter{Institution: "iit"})
	s.Require().NoError(err)
	s.Require().Len(views, 1)
	s.Equal(ownerA, views[0].OwnerID)

	views, err = s.service.Search(s.ctx, SearchFilter{StudentName: "vikram"})
	s.Require().NoError(err)
	s.Require().Len(views, 1)
	s.Equal(ownerB, views[0].OwnerID)

	views, err = s.service.Search(s.ctx, SearchFilter{})
	s.Require().NoError(err)
	s.Len(views, 2)

	views, err = s.service.Search(s.ctx, SearchFilter{Institution: "iit", StudentName: "vikram"})
	s.Require().NoError(err)
	s.Empty(views)
}
