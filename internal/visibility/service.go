// Package visibility implements the gated read surfaces: public share links,
// candidate portfolios, and recruiter search. Only VERIFIED certificates are
// visible here; everything else behaves as if it does not exist.
package visibility

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"certverify/internal/audit"
	"certverify/internal/certificate/models"
	id "certverify/pkg/domain"
	dErrors "certverify/pkg/domain-errors"
	"certverify/pkg/platform/sentinel"
	"certverify/pkg/requestcontext"
)

type CertificateStore interface {
	GetByID(ctx context.Context, certID id.CertificateID) (*models.Certificate, error)
	ListByOwner(ctx context.Context, ownerID id.OwnerID) ([]*models.Certificate, error)
	ListByStatus(ctx context.Context, status models.VerificationStatus) ([]*models.Certificate, error)
}

// Presigner resolves a raw storage key into a time-limited retrieval URL.
type Presigner interface {
	PresignGet(ctx context.Context, ref string, ttl time.Duration) (string, error)
}

// Cache holds rendered share and portfolio projections. Implementations must
// tolerate concurrent use; a nil Cache disables caching entirely.
type Cache interface {
	GetShare(ctx context.Context, certID id.CertificateID) (*PublicCertificate, bool)
	SetShare(ctx context.Context, certID id.CertificateID, view *PublicCertificate)
	GetPortfolio(ctx context.Context, ownerID id.OwnerID) (*Portfolio, bool)
	SetPortfolio(ctx context.Context, ownerID id.OwnerID, portfolio *Portfolio)
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// PublicCertificate is the projection safe to hand to anyone holding a share
// link. The raw storage key is replaced with a time-limited retrieval URL.
type PublicCertificate struct {
	ID                 id.CertificateID          `json:"id"`
	OwnerID            id.OwnerID                `json:"owner_id"`
	DocumentType       models.DocumentType       `json:"document_type"`
	Extracted          models.ExtractedFields    `json:"extracted"`
	VerificationSource string                    `json:"verification_source"`
	Verdict            *string                   `json:"verdict,omitempty"`
	ForgeryRiskScore   *float64                  `json:"forgery_risk_score"`
	VerificationStatus models.VerificationStatus `json:"verification_status"`
	UploadedAt         time.Time                 `json:"uploaded_at"`
	RetrievalURL       string                    `json:"retrieval_url"`
}

// Portfolio is the public view of one candidate's verified certificates with
// summary aggregates.
type Portfolio struct {
	OwnerID               id.OwnerID           `json:"owner_id"`
	Certificates          []*PublicCertificate `json:"certificates"`
	TotalVerified         int                  `json:"total_verified"`
	DistinctInstitutions  int                  `json:"distinct_institutions"`
	DistinctDocumentTypes int                  `json:"distinct_document_types"`
}

// SearchFilter narrows recruiter search. Empty fields match everything;
// non-empty fields match case-insensitively on substring.
type SearchFilter struct {
	Institution string
	StudentName string
	Degree      string
}

// Service resolves visibility-gated reads.
type Service struct {
	store          CertificateStore
	presigner      Presigner
	cache          Cache
	presignTTL     time.Duration
	logger         *slog.Logger
	auditPublisher AuditPublisher
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

// WithCache enables the share-view cache. The cache TTL must stay below the
// presign TTL or cached URLs would outlive their signatures.
func WithCache(cache Cache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

// New constructs a Service.
func New(store CertificateStore, presigner Presigner, presignTTL time.Duration, opts ...Option) *Service {
	s := &Service{store: store, presigner: presigner, presignTTL: presignTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Share resolves a share link. A certificate that is missing, or that exists
// with any status other than VERIFIED, yields NotFound; callers cannot
// distinguish the two cases.
func (s *Service) Share(ctx context.Context, certID id.CertificateID) (*PublicCertificate, error) {
	if s.cache != nil {
		if view, ok := s.cache.GetShare(ctx, certID); ok {
			s.logShareViewed(ctx, view.OwnerID, certID)
			return view, nil
		}
	}

	cert, err := s.store.GetByID(ctx, certID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "certificate not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load certificate")
	}
	if cert.VerificationStatus != models.StatusVerified {
		return nil, dErrors.New(dErrors.CodeNotFound, "certificate not found")
	}

	view, err := s.project(ctx, cert)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetShare(ctx, certID, view)
	}
	s.logShareViewed(ctx, cert.OwnerID, certID)
	return view, nil
}

// Portfolio returns a candidate's verified certificates with aggregates. An
// owner with no verified certificates gets an empty portfolio, not an error;
// whether the owner exists at all is not revealed.
func (s *Service) Portfolio(ctx context.Context, ownerID id.OwnerID) (*Portfolio, error) {
	if s.cache != nil {
		if portfolio, ok := s.cache.GetPortfolio(ctx, ownerID); ok {
			s.logPortfolioViewed(ctx, ownerID, portfolio.TotalVerified)
			return portfolio, nil
		}
	}

	certs, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list certificates")
	}

	views := make([]*PublicCertificate, 0)
	institutions := make(map[string]bool)
	docTypes := make(map[models.DocumentType]bool)
	for _, cert := range certs {
		if cert.VerificationStatus != models.StatusVerified {
			continue
		}
		view, err := s.project(ctx, cert)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
		if cert.Extracted.InstitutionName != nil {
			institutions[strings.ToLower(*cert.Extracted.InstitutionName)] = true
		}
		docTypes[cert.DocumentType] = true
	}

	portfolio := &Portfolio{
		OwnerID:               ownerID,
		Certificates:          views,
		TotalVerified:         len(views),
		DistinctInstitutions:  len(institutions),
		DistinctDocumentTypes: len(docTypes),
	}
	if s.cache != nil {
		s.cache.SetPortfolio(ctx, ownerID, portfolio)
	}
	s.logPortfolioViewed(ctx, ownerID, portfolio.TotalVerified)
	return portfolio, nil
}

// Search returns verified certificates matching the filter, across owners.
func (s *Service) Search(ctx context.Context, filter SearchFilter) ([]*PublicCertificate, error) {
	certs, err := s.store.ListByStatus(ctx, models.StatusVerified)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list certificates")
	}

	views := make([]*PublicCertificate, 0)
	for _, cert := range certs {
		if !matches(cert, filter) {
			continue
		}
		view, err := s.project(ctx, cert)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func matches(cert *models.Certificate, filter SearchFilter) bool {
	return matchField(cert.Extracted.InstitutionName, filter.Institution) &&
		matchField(cert.Extracted.StudentName, filter.StudentName) &&
		matchField(cert.Extracted.Degree, filter.Degree)
}

func matchField(value *string, query string) bool {
	if query == "" {
		return true
	}
	if value == nil {
		return false
	}
	return strings.Contains(strings.ToLower(*value), strings.ToLower(query))
}

func (s *Service) project(ctx context.Context, cert *models.Certificate) (*PublicCertificate, error) {
	url, err := s.presigner.PresignGet(ctx, cert.StorageRef, s.presignTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "document storage unavailable")
	}
	return &PublicCertificate{
		ID:                 cert.ID,
		OwnerID:            cert.OwnerID,
		DocumentType:       cert.DocumentType,
		Extracted:          cert.Extracted,
		VerificationSource: cert.VerificationSource,
		Verdict:            cert.Verdict,
		ForgeryRiskScore:   cert.ForgeryRiskScore,
		VerificationStatus: cert.VerificationStatus,
		UploadedAt:         cert.UploadedAt,
		RetrievalURL:       url,
	}, nil
}

func (s *Service) logShareViewed(ctx context.Context, ownerID id.OwnerID, certID id.CertificateID) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "share link viewed",
			"certificate_id", certID.String(),
			"owner_id", ownerID.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	s.emitAudit(ctx, audit.Event{
		OccurredAt: requestcontext.Now(ctx),
		OwnerID:    ownerID,
		Subject:    "certificate",
		Action:     audit.ActionShareViewed,
		Detail:     "certificate_id=" + certID.String(),
	})
}

func (s *Service) logPortfolioViewed(ctx context.Context, ownerID id.OwnerID, totalVerified int) {
	s.emitAudit(ctx, audit.Event{
		OccurredAt: requestcontext.Now(ctx),
		OwnerID:    ownerID,
		Subject:    "portfolio",
		Action:     audit.ActionPortfolioViewed,
		Detail:     fmt.Sprintf("total_verified=%d", totalVerified),
	})
}

// emitAudit publishes an event without failing the read. Sink failures are
// logged; the response has already been resolved from the store.
func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "audit event publish failed",
			"action", event.Action,
			"owner_id", event.OwnerID.String(),
			"error", err.Error(),
		)
	}
}
