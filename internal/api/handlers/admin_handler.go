package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/synergyayush/lookindharamshala/internal/application/services"
	"github.com/synergyayush/lookindharamshala/internal/domain/entities"
	apperrors "github.com/synergyayush/lookindharamshala/pkg/errors"
)

// ServiceEditor defines the catalog writes used by the back office
type ServiceEditor interface {
	List(ctx context.Context, category, query string) ([]*entities.Service, error)
	Create(ctx context.Context, in services.ServiceInput) (*entities.Service, error)
	Update(ctx context.Context, id string, patch entities.ServicePatch) (*entities.Service, error)
	Delete(ctx context.Context, id string) error
	UploadImages(ctx context.Context, existing int, files []services.ImageFile) ([]string, []services.ImageRejection, error)
}

// Moderator defines the listing decisions used by the back office
type Moderator interface {
	Pending(ctx context.Context) ([]*entities.Listing, error)
	Approve(ctx context.Context, id string) (*services.ApprovalResult, error)
	Reject(ctx context.Context, id string) (*entities.Listing, error)
	Reconcile(ctx context.Context) (*services.ReconcileReport, error)
}

// ReviewModerator defines the review operations used by the back office
type ReviewModerator interface {
	List(ctx context.Context) ([]*entities.Review, error)
	Approve(ctx context.Context, id string) (*entities.Review, error)
	Delete(ctx context.Context, id string) error
}

// LeadLister lists captured leads
type LeadLister interface {
	ListLeads(ctx context.Context) ([]*entities.Lead, error)
}

// AdminHandler serves the back office. Every route sits behind the admin
// auth middleware.
type AdminHandler struct {
	catalog    ServiceEditor
	moderation Moderator
	reviews    ReviewModerator
	leads      LeadLister
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(catalog ServiceEditor, moderation Moderator, reviews ReviewModerator, leads LeadLister) *AdminHandler {
	return &AdminHandler{
		catalog:    catalog,
		moderation: moderation,
		reviews:    reviews,
		leads:      leads,
	}
}

// ListServices handles GET /api/admin/services
func (h *AdminHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	list, err := h.catalog.List(r.Context(), "", "")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"services": list,
		"count":    len(list),
	})
}

// CreateService handles POST /api/admin/services
func (h *AdminHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	var in services.ServiceInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	created, err := h.catalog.Create(r.Context(), in)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

// UpdateService handles PATCH /api/admin/services/{id}
func (h *AdminHandler) UpdateService(w http.ResponseWriter, r *http.Request) {
	var patch entities.ServicePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	updated, err := h.catalog.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

// DeleteService handles DELETE /api/admin/services/{id}
func (h *AdminHandler) DeleteService(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), r.PathValue("id")); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadServiceImages handles POST /api/admin/services/images. The form
// field "existing" is how many images the service already has.
func (h *AdminHandler) UploadServiceImages(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	existing := 0
	if v := r.FormValue("existing"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondWithAppError(w, r, apperrors.NewFieldValidationError(map[string]string{
				"existing": "must be a non-negative number",
			}))
			return
		}
		existing = n
	}

	files, err := readImageFiles(r.MultipartForm.File["images"])
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	urls, rejected, err := h.catalog.UploadImages(r.Context(), existing, files)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"urls":     urls,
		"rejected": rejected,
	})
}

// ListPendingListings handles GET /api/admin/listings
func (h *AdminHandler) ListPendingListings(w http.ResponseWriter, r *http.Request) {
	list, err := h.moderation.Pending(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"listings": list,
		"count":    len(list),
	})
}

// ApproveListing handles POST /api/admin/listings/{id}/approve
func (h *AdminHandler) ApproveListing(w http.ResponseWriter, r *http.Request) {
	result, err := h.moderation.Approve(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// RejectListing handles POST /api/admin/listings/{id}/reject
func (h *AdminHandler) RejectListing(w http.ResponseWriter, r *http.Request) {
	listing, err := h.moderation.Reject(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, listing)
}

// Reconcile handles POST /api/admin/reconcile
func (h *AdminHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.moderation.Reconcile(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}

// ListReviews handles GET /api/admin/reviews
func (h *AdminHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	list, err := h.reviews.List(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"reviews": list,
		"count":   len(list),
	})
}

// ApproveReview handles POST /api/admin/reviews/{id}/approve
func (h *AdminHandler) ApproveReview(w http.ResponseWriter, r *http.Request) {
	review, err := h.reviews.Approve(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, review)
}

// DeleteReview handles DELETE /api/admin/reviews/{id}
func (h *AdminHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	if err := h.reviews.Delete(r.Context(), r.PathValue("id")); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListLeads handles GET /api/admin/leads
func (h *AdminHandler) ListLeads(w http.ResponseWriter, r *http.Request) {
	list, err := h.leads.ListLeads(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"leads": list,
		"count": len(list),
	})
}
