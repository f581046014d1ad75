package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certverify/internal/audit"
	"certverify/internal/certificate/models"
	"certverify/internal/certificate/service"
	"certverify/internal/platform/middleware"
	id "certverify/pkg/domain"
	dErrors "certverify/pkg/domain-errors"
)

const adminToken = "test-admin-token"

type stubService struct {
	submitFn       func(ctx context.Context, ownerID id.OwnerID, input service.SubmitInput) (*models.Certificate, error)
	getFn          func(ctx context.Context, callerID id.OwnerID, certID id.CertificateID) (*service.OwnedCertificate, error)
	listFn         func(ctx context.Context, callerID id.OwnerID) ([]*service.OwnedCertificate, error)
	listByStatusFn func(ctx context.Context, status models.VerificationStatus) ([]*models.Certificate, error)
}

func (s *stubService) Submit(ctx context.Context, ownerID id.OwnerID, input service.SubmitInput) (*models.Certificate, error) {
	return s.submitFn(ctx, ownerID, input)
}

func (s *stubService) GetOwned(ctx context.Context, callerID id.OwnerID, certID id.CertificateID) (*service.OwnedCertificate, error) {
	return s.getFn(ctx, callerID, certID)
}

func (s *stubService) ListOwned(ctx context.Context, callerID id.OwnerID) ([]*service.OwnedCertificate, error) {
	return s.listFn(ctx, callerID)
}

func (s *stubService) ListByStatus(ctx context.Context, status models.VerificationStatus) ([]*models.Certificate, error) {
	return s.listByStatusFn(ctx, status)
}

type stubValidator struct {
	subjectID string
}

func (v *stubValidator) ValidateToken(tokenString string) (*middleware.TokenClaims, error) {
	if tokenString != "good-token" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return &middleware.TokenClaims{SubjectID: v.subjectID, Role: "candidate"}, nil
}

func newTestRouter(t *testing.T, svc Service, trail AuditLister, owner id.OwnerID) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(svc, trail, logger, &stubValidator{subjectID: owner.String()}, adminToken)
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func multipartUpload(t *testing.T, docType, filename string, blob []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("document_type", docType))
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(blob)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func TestHandleSubmit(t *testing.T) {
	owner := id.OwnerID(uuid.New())
	score := 92.0
	cert := &models.Certificate{
		ID:                 id.NewCertificateID(),
		OwnerID:            owner,
		DocumentType:       models.DocumentTypeDegree,
		StorageRef:         "certificates/raw-key",
		VerificationSource: "OCR",
		ForgeryRiskScore:   &score,
		VerificationStatus: models.StatusVerified,
		UploadedAt:         time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC),
	}

	svc := &stubService{
		submitFn: func(_ context.Context, gotOwner id.OwnerID, input service.SubmitInput) (*models.Certificate, error) {
			assert.Equal(t, owner, gotOwner)
			assert.Equal(t, "DEGREE", input.DocumentType)
			assert.Equal(t, "degree.pdf", input.Filename)
			assert.Equal(t, []byte("%PDF-1.4"), input.Blob)
			return cert, nil
		},
	}
	router := newTestRouter(t, svc, audit.NewPublisher(audit.NewInMemory()), owner)

	body, contentType := multipartUpload(t, "DEGREE", "degree.pdf", []byte("%PDF-1.4"))
	req := httptest.NewRequest(http.MethodPost, "/certificates", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, cert.ID.String(), got["id"])
	assert.Equal(t, "VERIFIED", got["verification_status"])
	// The raw storage key never leaves the service.
	assert.NotContains(t, rec.Body.String(), "raw-key")
}

func TestHandleSubmitRequiresAuth(t *testing.T) {
	owner := id.OwnerID(uuid.New())
	router := newTestRouter(t, &stubService{}, audit.NewPublisher(audit.NewInMemory()), owner)

	body, contentType := multipartUpload(t, "DEGREE", "degree.pdf", []byte("%PDF-1.4"))
	req := httptest.NewRequest(http.MethodPost, "/certificates", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleSubmitMissingFile(t *testing.T) {
	owner := id.OwnerID(uuid.New())
	router := newTestRouter(t, &stubService{}, audit.NewPublisher(audit.NewInMemory()), owner)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("document_type", "DEGREE"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/certificates", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGet(t *testing.T) {
	owner := id.OwnerID(uuid.New())
	certID := id.NewCertificateID()
	cert := &models.Certificate{ID: certID, OwnerID: owner, StorageRef: "certificates/raw-key", VerificationStatus: models.StatusFailed}

	svc := &stubService{
		getFn: func(_ context.Context, callerID id.OwnerID, gotID id.CertificateID) (*service.OwnedCertificate, error) {
			assert.Equal(t, owner, callerID)
			assert.Equal(t, certID, gotID)
			return &service.OwnedCertificate{Certificate: cert, RetrievalURL: "https://docs.example/presigned"}, nil
		},
	}
	router := newTestRouter(t, svc, audit.NewPublisher(audit.NewInMemory()), owner)

	req := httptest.NewRequest(http.MethodGet, "/certificates/"+certID.String(), nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), certID.String())
	// The owner gets a resolved retrieval URL, never the raw storage key.
	assert.Contains(t, rec.Body.String(), "https://docs.example/presigned")
	assert.NotContains(t, rec.Body.String(), "raw-key")
}

func TestHandleGetBadID(t *testing.T) {
	owner := id.OwnerID(uuid.New())
	router := newTestRouter(t, &stubService{}, audit.NewPublisher(audit.NewInMemory()), owner)

	req := httptest.NewRequest(http.MethodGet, "/certificates/not-a-uuid", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetNotFound(t *testing.T) {
	owner := id.OwnerID(uuid.New())
	svc := &stubService{
		getFn: func(context.Context, id.OwnerID, id.CertificateID) (*service.OwnedCertificate, error) {
			return nil, dErrors.New(dErrors.CodeNotFound, "certificate not found")
		},
	}
	router := newTestRouter(t, svc, audit.NewPublisher(audit.NewInMemory()), owner)

	req := httptest.NewRequest(http.MethodGet, "/certificates/"+id.NewCertificateID().String(), nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleListOwned(t *testing.T) {
	owner := id.OwnerID(uuid.New())
	svc := &stubService{
		listFn: func(_ context.Context, callerID id.OwnerID) ([]*service.OwnedCertificate, error) {
			assert.Equal(t, owner, callerID)
			return []*service.OwnedCertificate{
				{
					Certificate:  &models.Certificate{ID: id.NewCertificateID(), OwnerID: owner, VerificationStatus: models.StatusVerified},
					RetrievalURL: "https://docs.example/a",
				},
				{
					Certificate:  &models.Certificate{ID: id.NewCertificateID(), OwnerID: owner, VerificationStatus: models.StatusFailed},
					RetrievalURL: "https://docs.example/b",
				},
			}, nil
		},
	}
	router := newTestRouter(t, svc, audit.NewPublisher(audit.NewInMemory()), owner)

	req := httptest.NewRequest(http.MethodGet, "/me/certificates", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Certificates []json.RawMessage `json:"certificates"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got.Certificates, 2)
	assert.Contains(t, rec.Body.String(), "https://docs.example/a")
}

func TestHandleAdminList(t *testing.T) {
	owner := id.OwnerID(uuid.New())
	svc := &stubService{
		listByStatusFn: func(_ context.Context, status models.VerificationStatus) ([]*models.Certificate, error) {
			assert.Equal(t, models.StatusVerified, status)
			return []*models.Certificate{{ID: id.NewCertificateID(), VerificationStatus: status}}, nil
		},
	}
	router := newTestRouter(t, svc, audit.NewPublisher(audit.NewInMemory()), owner)

	t.Run("requires admin token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/certificates?status=VERIFIED", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("lists by status", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/certificates?status=VERIFIED", nil)
		req.Header.Set("X-Admin-Token", adminToken)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/certificates?status=BOGUS", nil)
		req.Header.Set("X-Admin-Token", adminToken)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects missing status", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/certificates", nil)
		req.Header.Set("X-Admin-Token", adminToken)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleAdminAudit(t *testing.T) {
	owner := id.OwnerID(uuid.New())
	trail := audit.NewPublisher(audit.NewInMemory())
	require.NoError(t, trail.Emit(context.Background(), audit.Event{
		OccurredAt: time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC),
		OwnerID:    owner,
		Subject:    "certificate",
		Action:     audit.ActionCertificateIngested,
		Detail:     "status=VERIFIED",
	}))
	router := newTestRouter(t, &stubService{}, trail, owner)

	req := httptest.NewRequest(http.MethodGet, "/admin/audit/"+owner.String(), nil)
	req.Header.Set("X-Admin-Token", adminToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), audit.ActionCertificateIngested)
	assert.Contains(t, rec.Body.String(), owner.String())
}
