package handlers

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/synergyayush/lookindharamshala/internal/application/services"
	"github.com/synergyayush/lookindharamshala/internal/domain/entities"
	apperrors "github.com/synergyayush/lookindharamshala/pkg/errors"
)

const (
	maxMultipartMemory = 8 << 20
	maxImageBytes      = 5 << 20
	maxUploadBytes     = entities.MaxImages*maxImageBytes + 1<<20
)

// SubmissionService defines the public form operations used by the handler
type SubmissionService interface {
	SubmitListing(ctx context.Context, form services.ListingSubmission, images *services.ImageSet) (*services.ListingReceipt, error)
	SubmitReview(ctx context.Context, form services.ReviewSubmission) (*entities.Review, error)
	SubmitLead(ctx context.Context, form services.LeadSubmission) (*entities.Lead, error)
}

// TestimonialSource lists public reviews
type TestimonialSource interface {
	Testimonials(ctx context.Context) ([]*entities.Review, error)
}

// FormValidator checks a decoded form before it counts against the guard
type FormValidator interface {
	Validate(form interface{}) error
}

// SubmissionHandler handles the public forms: business listings, reviews and
// the lead popup
type SubmissionHandler struct {
	service      SubmissionService
	testimonials TestimonialSource
	validator    FormValidator
	guard        *SubmissionGuard
}

// NewSubmissionHandler creates a new submission handler. validator and guard may be nil.
func NewSubmissionHandler(service SubmissionService, testimonials TestimonialSource, validator FormValidator, guard *SubmissionGuard) *SubmissionHandler {
	return &SubmissionHandler{service: service, testimonials: testimonials, validator: validator, guard: guard}
}

// SubmitListing handles POST /api/listings (multipart/form-data)
func (h *SubmissionHandler) SubmitListing(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	form := services.ListingSubmission{
		BusinessName: r.FormValue("business_name"),
		OwnerName:    r.FormValue("owner_name"),
		Phone:        r.FormValue("phone"),
		Email:        r.FormValue("email"),
		Category:     r.FormValue("category"),
		About:        r.FormValue("about"),
		Description:  r.FormValue("description"),
	}
	form.Normalize()
	if err := h.validate(form); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	if _, ok := h.guard.Admit(w, r, "listing"); !ok {
		return
	}

	set, err := readImageSet(r.MultipartForm.File["images"])
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	receipt, err := h.service.SubmitListing(r.Context(), form, set)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, receipt)
}

// SubmitReview handles POST /api/reviews
func (h *SubmissionHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	var form services.ReviewSubmission
	if err := decodeJSON(w, r, &form); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	form.Normalize()
	if err := h.validate(form); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	release, ok := h.guard.Admit(w, r, "review", form.Name, form.Review, strconv.Itoa(form.Rating))
	if !ok {
		return
	}

	review, err := h.service.SubmitReview(r.Context(), form)
	if err != nil {
		release()
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]string{
		"status": "pending_approval",
		"id":     review.ID,
	})
}

// SubmitLead handles POST /api/leads
func (h *SubmissionHandler) SubmitLead(w http.ResponseWriter, r *http.Request) {
	var form services.LeadSubmission
	if err := decodeJSON(w, r, &form); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	form.Normalize()
	if err := h.validate(form); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	release, ok := h.guard.Admit(w, r, "lead", form.Name, form.Phone)
	if !ok {
		return
	}

	lead, err := h.service.SubmitLead(r.Context(), form)
	if err != nil {
		release()
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]string{
		"status": "received",
		"id":     lead.ID,
	})
}

func (h *SubmissionHandler) validate(form interface{}) error {
	if h.validator == nil {
		return nil
	}
	return h.validator.Validate(form)
}

// ListTestimonials handles GET /api/testimonials
func (h *SubmissionHandler) ListTestimonials(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.testimonials.Testimonials(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"testimonials": reviews,
		"count":        len(reviews),
	})
}

// readImageSet loads uploaded files into an ImageSet. A fourth file is
// refused before anything is read further.
func readImageSet(headers []*multipart.FileHeader) (*services.ImageSet, error) {
	var set services.ImageSet
	for _, fh := range headers {
		file, err := readImageFile(fh)
		if err != nil {
			return nil, err
		}
		if err := set.Attach(file); err != nil {
			return nil, err
		}
	}
	return &set, nil
}

func readImageFiles(headers []*multipart.FileHeader) ([]services.ImageFile, error) {
	files := make([]services.ImageFile, 0, len(headers))
	for _, fh := range headers {
		file, err := readImageFile(fh)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, nil
}

func readImageFile(fh *multipart.FileHeader) (services.ImageFile, error) {
	if fh.Size > maxImageBytes {
		return services.ImageFile{}, apperrors.NewFieldValidationError(map[string]string{
			"images": fmt.Sprintf("%s is larger than %d MB", fh.Filename, maxImageBytes>>20),
		})
	}

	f, err := fh.Open()
	if err != nil {
		return services.ImageFile{}, apperrors.NewValidationError("unreadable upload " + fh.Filename)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes))
	if err != nil {
		return services.ImageFile{}, apperrors.NewValidationError("unreadable upload " + fh.Filename)
	}

	return services.ImageFile{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
