// Package service implements the certificate ingestion pipeline: upload,
// extraction, risk classification, and the single write into the store.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"certverify/internal/audit"
	"certverify/internal/certificate/classifier"
	"certverify/internal/certificate/metrics"
	"certverify/internal/certificate/models"
	"certverify/internal/extraction"
	id "certverify/pkg/domain"
	dErrors "certverify/pkg/domain-errors"
	"certverify/pkg/platform/sentinel"
	"certverify/pkg/requestcontext"
)

// allowedExtensions mirrors the extraction service's own allow-list so
// obviously unsupported files are refused before the blob is stored.
var allowedExtensions = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// allowedContentTypes is checked only when the upload declares a specific
// type; browsers frequently send application/octet-stream, and the extension
// remains the authority.
var allowedContentTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
}

// issuedDateLayout is the wire format the extraction service uses for dates.
const issuedDateLayout = "2006-01-02"

type CertificateStore interface {
	Insert(ctx context.Context, cert *models.Certificate) error
	GetByID(ctx context.Context, certID id.CertificateID) (*models.Certificate, error)
	ListByOwner(ctx context.Context, ownerID id.OwnerID) ([]*models.Certificate, error)
	ListByStatus(ctx context.Context, status models.VerificationStatus) ([]*models.Certificate, error)
}

type DocumentStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	PresignGet(ctx context.Context, ref string, ttl time.Duration) (string, error)
}

type ExtractionGateway interface {
	Verify(ctx context.Context, filename, contentType string, blob []byte) (*extraction.Result, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// SubmitInput carries one upload through the pipeline.
type SubmitInput struct {
	DocumentType string
	Filename     string
	ContentType  string
	Blob         []byte
}

// OwnedCertificate is the owner's full view of a record: every persisted
// field plus a resolved retrieval URL for the stored document. The raw
// storage key itself still never leaves the service.
type OwnedCertificate struct {
	*models.Certificate
	RetrievalURL string `json:"retrieval_url"`
}

// Service orchestrates certificate ingestion and owner reads.
type Service struct {
	store          CertificateStore
	docs           DocumentStore
	extractor      ExtractionGateway
	presignTTL     time.Duration
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
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

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(store CertificateStore, docs DocumentStore, extractor ExtractionGateway, presignTTL time.Duration, opts ...Option) *Service {
	s := &Service{store: store, docs: docs, extractor: extractor, presignTTL: presignTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit runs the full ingestion pipeline and returns the persisted record.
// The record that comes back is final: no later call may change it.
func (s *Service) Submit(ctx context.Context, ownerID id.OwnerID, input SubmitInput) (*models.Certificate, error) {
	start := time.Now()
	defer s.observeSubmit(start)

	docType, err := models.ParseDocumentType(input.DocumentType)
	if err != nil {
		s.incrementRejected()
		return nil, err
	}
	if err := validateFile(input); err != nil {
		s.incrementRejected()
		return nil, err
	}

	now := requestcontext.Now(ctx)
	key := fmt.Sprintf("certificates/%s/%d-%s", ownerID, now.UnixNano(), filepath.Base(input.Filename))
	storageRef, err := s.docs.Put(ctx, key, bytes.NewReader(input.Blob), int64(len(input.Blob)), input.ContentType)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "document storage unavailable")
	}

	result, err := s.extractor.Verify(ctx, input.Filename, input.ContentType, input.Blob)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnavailable) {
			s.incrementExtractionFailure()
		} else {
			s.incrementRejected()
		}
		return nil, err
	}

	// A result without a score classifies at the floor rather than failing
	// the upload.
	score := 0.0
	if result.ForgeryRiskScore != nil {
		score = *result.ForgeryRiskScore
	}
	if score < 0 || score > 100 {
		s.incrementRejected()
		return nil, dErrors.New(dErrors.CodeBadRequest,
			fmt.Sprintf("extraction returned forgery risk score %v outside [0,100]", score))
	}
	status := classifier.Classify(score)

	extracted, err := mapExtracted(result)
	if err != nil {
		s.incrementRejected()
		return nil, err
	}

	source := result.VerificationSource
	if source == "" {
		source = "OCR"
	}

	cert, err := models.NewCertificate(
		id.NewCertificateID(),
		ownerID,
		docType,
		storageRef,
		extracted,
		source,
		result.Verdict,
		&score,
		status,
		now,
	)
	if err != nil {
		return nil, err
	}

	if err := s.store.Insert(ctx, cert); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "certificate id already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist certificate")
	}

	s.logAudit(ctx, ownerID, audit.ActionCertificateIngested,
		fmt.Sprintf("certificate_id=%s status=%s score=%.1f", cert.ID, cert.VerificationStatus, score))
	s.incrementIngested(string(cert.VerificationStatus))

	return cert, nil
}

// GetOwned returns a certificate if and only if the caller owns it, with a
// retrieval URL resolved for the stored document. Records owned by someone
// else look identical to records that do not exist.
func (s *Service) GetOwned(ctx context.Context, callerID id.OwnerID, certID id.CertificateID) (*OwnedCertificate, error) {
	cert, err := s.store.GetByID(ctx, certID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "certificate not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load certificate")
	}
	if cert.OwnerID != callerID {
		return nil, dErrors.New(dErrors.CodeNotFound, "certificate not found")
	}
	return s.toOwned(ctx, cert)
}

// ListOwned returns every certificate the caller owns, any status, newest
// first, each with a resolved retrieval URL.
func (s *Service) ListOwned(ctx context.Context, callerID id.OwnerID) ([]*OwnedCertificate, error) {
	certs, err := s.store.ListByOwner(ctx, callerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list certificates")
	}
	out := make([]*OwnedCertificate, 0, len(certs))
	for _, cert := range certs {
		owned, err := s.toOwned(ctx, cert)
		if err != nil {
			return nil, err
		}
		out = append(out, owned)
	}
	return out, nil
}

func (s *Service) toOwned(ctx context.Context, cert *models.Certificate) (*OwnedCertificate, error) {
	url, err := s.docs.PresignGet(ctx, cert.StorageRef, s.presignTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "document storage unavailable")
	}
	return &OwnedCertificate{Certificate: cert, RetrievalURL: url}, nil
}

// ListByStatus is the admin view across owners.
func (s *Service) ListByStatus(ctx context.Context, status models.VerificationStatus) ([]*models.Certificate, error) {
	certs, err := s.store.ListByStatus(ctx, status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list certificates")
	}
	return certs, nil
}

func validateFile(input SubmitInput) error {
	if len(input.Blob) == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "uploaded file is empty")
	}
	ext := strings.ToLower(filepath.Ext(input.Filename))
	if !allowedExtensions[ext] {
		return dErrors.New(dErrors.CodeBadRequest, "invalid file type, allowed: .pdf, .jpg, .jpeg, .png")
	}
	ct := strings.ToLower(strings.TrimSpace(strings.Split(input.ContentType, ";")[0]))
	if ct != "" && ct != "application/octet-stream" && !allowedContentTypes[ct] {
		return dErrors.New(dErrors.CodeBadRequest, "unsupported content type: "+ct)
	}
	return nil
}

func mapExtracted(result *extraction.Result) (models.ExtractedFields, error) {
	fields := models.ExtractedFields{
		StudentName:        result.StudentName,
		RollNumber:         result.RollNumber,
		RegistrationNumber: result.RegistrationNumber,
		Degree:             result.Degree,
		Branch:             result.Branch,
		InstitutionName:    result.InstitutionName,
		OrganizationType:   result.OrganizationType,
	}
	if result.IssuedDate != nil && *result.IssuedDate != "" {
		parsed, err := time.Parse(issuedDateLayout, *result.IssuedDate)
		if err != nil {
			return models.ExtractedFields{}, dErrors.New(dErrors.CodeBadRequest,
				"extraction returned malformed issued date: "+*result.IssuedDate)
		}
		fields.IssuedDate = &parsed
	}
	return fields, nil
}

func (s *Service) logAudit(ctx context.Context, ownerID id.OwnerID, action, detail string) {
	if s.logger != nil {
		args := []any{"action", action, "owner_id", ownerID.String(), "log_type", "audit"}
		if requestID := requestcontext.RequestID(ctx); requestID != "" {
			args = append(args, "request_id", requestID)
		}
		s.logger.InfoContext(ctx, action, args...)
	}
	if s.auditPublisher == nil {
		return
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		OccurredAt: requestcontext.Now(ctx),
		OwnerID:    ownerID,
		Subject:    "certificate",
		Action:     action,
		Detail:     detail,
	})
	if err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "audit event publish failed",
			"action", action,
			"owner_id", ownerID.String(),
			"error", err.Error(),
		)
	}
}

func (s *Service) incrementIngested(status string) {
	if s.metrics != nil {
		s.metrics.IncrementIngested(status)
	}
}

func (s *Service) incrementRejected() {
	if s.metrics != nil {
		s.metrics.IncrementRejected()
	}
}

func (s *Service) incrementExtractionFailure() {
	if s.metrics != nil {
		s.metrics.IncrementExtractionFailure()
	}
}

func (s *Service) observeSubmit(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveSubmit(start)
	}
}
