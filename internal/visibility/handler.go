package visibility

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"certverify/internal/platform/middleware"
	id "certverify/pkg/domain"
	"certverify/pkg/platform/httputil"
	"certverify/pkg/requestcontext"
)

// Reader defines the visibility operations the handler needs.
type Reader interface {
	Share(ctx context.Context, certID id.CertificateID) (*PublicCertificate, error)
	Portfolio(ctx context.Context, ownerID id.OwnerID) (*Portfolio, error)
	Search(ctx context.Context, filter SearchFilter) ([]*PublicCertificate, error)
}

// Handler handles the public and recruiter read endpoints.
type Handler struct {
	logger    *slog.Logger
	reader    Reader
	validator middleware.TokenValidator
}

// NewHandler creates a new visibility Handler.
func NewHandler(reader Reader, logger *slog.Logger, validator middleware.TokenValidator) *Handler {
	return &Handler{logger: logger, reader: reader, validator: validator}
}

// Register mounts the visibility routes. Share and portfolio are deliberately
// unauthenticated: the status gate is the only access control they need.
func (h *Handler) Register(r chi.Router) {
	r.Get("/share/{id}", h.handleShare)
	r.Get("/portfolio/{ownerID}", h.handlePortfolio)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Use(middleware.RequireRole(requestcontext.RoleRecruiter, h.logger))
		r.Get("/recruiter/certificates", h.handleSearch)
	})
}

func (h *Handler) handleShare(w http.ResponseWriter, r *http.Request) {
	certID, err := id.ParseCertificateID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	view, err := h.reader.Share(r.Context(), certID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	ownerID, err := id.ParseOwnerID(chi.URLParam(r, "ownerID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	portfolio, err := h.reader.Portfolio(r.Context(), ownerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, portfolio)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := SearchFilter{
		Institution: query.Get("institution"),
		StudentName: query.Get("student_name"),
		Degree:      query.Get("degree"),
	}

	views, err := h.reader.Search(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"certificates": views})
}
