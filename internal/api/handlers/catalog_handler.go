package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/synergyayush/lookindharamshala/internal/application/services"
	"github.com/synergyayush/lookindharamshala/internal/domain/entities"
	"github.com/synergyayush/lookindharamshala/pkg/deeplink"
)

// CatalogService defines the catalog reads used by the public handler
type CatalogService interface {
	List(ctx context.Context, category, query string) ([]*entities.Service, error)
	Get(ctx context.Context, id string) (*services.ServiceDetail, error)
}

// ContactLinker builds contact-page links
type ContactLinker interface {
	Links(form services.ContactRequest) (*services.ContactLinks, error)
}

// CatalogHandler serves the public catalog and the link helpers
type CatalogHandler struct {
	catalog CatalogService
	contact ContactLinker
	region  string
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalog CatalogService, contact ContactLinker, region string) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, contact: contact, region: region}
}

// ListServices handles GET /api/services
func (h *CatalogHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	list, err := h.catalog.List(r.Context(), query.Get("category"), query.Get("q"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"services": list,
		"count":    len(list),
	})
}

// GetService handles GET /api/services/{id}
func (h *CatalogHandler) GetService(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "service ID is required")
		return
	}

	detail, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, detail)
}

// ListCategories handles GET /api/categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"categories": append([]string{entities.CategoryAll}, entities.Categories()...),
	})
}

// MapLink handles GET /api/links/map?q=
func (h *CatalogHandler) MapLink(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		q = h.region
	}
	respondWithJSON(w, http.StatusOK, map[string]string{
		"url": deeplink.MapSearch(q),
	})
}

// Contact handles POST /api/contact
func (h *CatalogHandler) Contact(w http.ResponseWriter, r *http.Request) {
	var form services.ContactRequest
	if err := decodeJSON(w, r, &form); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	links, err := h.contact.Links(form)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, links)
}
