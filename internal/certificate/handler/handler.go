// Package handler exposes certificate ingestion and owner reads over HTTP.
package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"certverify/internal/audit"
	"certverify/internal/certificate/models"
	"certverify/internal/certificate/service"
	"certverify/internal/platform/middleware"
	id "certverify/pkg/domain"
	dErrors "certverify/pkg/domain-errors"
	"certverify/pkg/platform/httputil"
	"certverify/pkg/requestcontext"
)

// maxUploadBytes bounds a single multipart upload.
const maxUploadBytes = 10 << 20

// Service defines the certificate operations the handler needs.
type Service interface {
	Submit(ctx context.Context, ownerID id.OwnerID, input service.SubmitInput) (*models.Certificate, error)
	GetOwned(ctx context.Context, callerID id.OwnerID, certID id.CertificateID) (*service.OwnedCertificate, error)
	ListOwned(ctx context.Context, callerID id.OwnerID) ([]*service.OwnedCertificate, error)
	ListByStatus(ctx context.Context, status models.VerificationStatus) ([]*models.Certificate, error)
}

// AuditLister exposes the per-owner audit trail for the admin surface.
type AuditLister interface {
	List(ctx context.Context, ownerID id.OwnerID) ([]audit.Event, error)
}

// Handler handles certificate endpoints.
type Handler struct {
	logger     *slog.Logger
	service    Service
	auditTrail AuditLister
	validator  middleware.TokenValidator
	adminToken string
}

// New creates a new certificate Handler.
func New(
	svc Service,
	auditTrail AuditLister,
	logger *slog.Logger,
	validator middleware.TokenValidator,
	adminToken string) *Handler {
	return &Handler{
		logger:     logger,
		service:    svc,
		auditTrail: auditTrail,
		validator:  validator,
		adminToken: adminToken,
	}
}

// Register mounts the certificate routes.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Post("/certificates", h.handleSubmit)
		r.Get("/certificates/{id}", h.handleGet)
		r.Get("/me/certificates", h.handleListOwned)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdminToken(h.adminToken, h.logger))
		r.Get("/admin/certificates", h.handleAdminList)
		r.Get("/admin/audit/{ownerID}", h.handleAdminAudit)
	})
}

// handleSubmit ingests one uploaded document. The response is the final,
// immutable record; there is no polling step.
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := h.caller(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid multipart request"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "missing file field"))
		return
	}
	defer file.Close()

	blob, err := io.ReadAll(file)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unreadable file upload"))
		return
	}

	input := service.SubmitInput{
		DocumentType: r.FormValue("document_type"),
		Filename:     header.Filename,
		ContentType:  header.Header.Get("Content-Type"),
		Blob:         blob,
	}

	cert, err := h.service.Submit(ctx, ownerID, input)
	if err != nil {
		h.logger.WarnContext(ctx, "certificate submission failed",
			"request_id", requestcontext.RequestID(ctx),
			"owner_id", ownerID.String(),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, cert)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := h.caller(w, r)
	if !ok {
		return
	}

	certID, err := id.ParseCertificateID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	cert, err := h.service.GetOwned(ctx, ownerID, certID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, cert)
}

func (h *Handler) handleListOwned(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := h.caller(w, r)
	if !ok {
		return
	}

	certs, err := h.service.ListOwned(ctx, ownerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"certificates": certs})
}

// handleAdminList lists certificates across owners, optionally filtered by
// status.
func (h *Handler) handleAdminList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw := r.URL.Query().Get("status")
	if raw == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "status query parameter is required"))
		return
	}
	status, err := models.ParseVerificationStatus(raw)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	certs, err := h.service.ListByStatus(ctx, status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"certificates": certs})
}

func (h *Handler) handleAdminAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, err := id.ParseOwnerID(chi.URLParam(r, "ownerID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	events, err := h.auditTrail.List(ctx, ownerID)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit events"))
		return
	}

	type eventJSON struct {
		OccurredAt string `json:"occurred_at"`
		OwnerID    string `json:"owner_id"`
		Subject    string `json:"subject"`
		Action     string `json:"action"`
		Detail     string `json:"detail"`
	}
	out := make([]eventJSON, 0, len(events))
	for _, e := range events {
		out = append(out, eventJSON{
			OccurredAt: e.OccurredAt.UTC().Format(time.RFC3339),
			OwnerID:    e.OwnerID.String(),
			Subject:    e.Subject,
			Action:     e.Action,
			Detail:     e.Detail,
		})
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": out})
}

// caller resolves the authenticated subject into an owner id. RequireAuth has
// already run; a missing or malformed subject is a server-side wiring fault.
func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (id.OwnerID, bool) {
	ctx := r.Context()
	ownerID, err := id.ParseOwnerID(requestcontext.CallerID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "caller id missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return id.OwnerID{}, false
	}
	return ownerID, true
}
