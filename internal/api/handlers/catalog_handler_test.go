package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/synergyayush/lookindharamshala/internal/api/handlers"
	"github.com/synergyayush/lookindharamshala/internal/application/services"
	"github.com/synergyayush/lookindharamshala/internal/application/validation"
	"github.com/synergyayush/lookindharamshala/internal/domain/entities"
	"github.com/synergyayush/lookindharamshala/internal/livecollection"
	apperrors "github.com/synergyayush/lookindharamshala/pkg/errors"
)

type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) List(ctx context.Context, category, query string) ([]*entities.Service, error) {
	args := m.Called(ctx, category, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Service), args.Error(1)
}

func (m *MockCatalogService) Get(ctx context.Context, id string) (*services.ServiceDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ServiceDetail), args.Error(1)
}

func newCatalogHandler(catalog *MockCatalogService) *handlers.CatalogHandler {
	contact := services.NewContactService(validation.New(), "owner@example.com", "+919882770709")
	return handlers.NewCatalogHandler(catalog, contact, "Dharamshala")
}

func TestCatalogHandler_ListServices(t *testing.T) {
	catalog := &MockCatalogService{}
	catalog.On("List", mock.Anything, "Food", "cafe").
		Return([]*entities.Service{{ID: "s-1", Name: "Cafe X", Category: "Food"}}, nil)

	w := httptest.NewRecorder()
	newCatalogHandler(catalog).ListServices(w, httptest.NewRequest(http.MethodGet, "/api/services?category=Food&q=cafe", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var response struct {
		Services []*entities.Service `json:"services"`
		Count    int                 `json:"count"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, 1, response.Count)
	assert.Equal(t, "Cafe X", response.Services[0].Name)
}

func TestCatalogHandler_ListServices_InternalErrorHidesCause(t *testing.T) {
	catalog := &MockCatalogService{}
	catalog.On("List", mock.Anything, "", "").Return(nil, errors.New("pq: password authentication failed"))

	w := httptest.NewRecorder()
	newCatalogHandler(catalog).ListServices(w, httptest.NewRequest(http.MethodGet, "/api/services", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestCatalogHandler_GetService(t *testing.T) {
	catalog := &MockCatalogService{}
	catalog.On("Get", mock.Anything, "s-1").Return(&services.ServiceDetail{
		Service: &entities.Service{ID: "s-1", Name: "Cafe X"},
		Links:   services.ServiceLinks{Directions: "https://www.google.com/maps/search/?api=1&query=Cafe+X"},
	}, nil)
	catalog.On("Get", mock.Anything, "missing").Return(nil, apperrors.NewNotFoundError("service with id missing not found"))
	handler := newCatalogHandler(catalog)

	req := httptest.NewRequest(http.MethodGet, "/api/services/s-1", nil)
	req.SetPathValue("id", "s-1")
	w := httptest.NewRecorder()
	handler.GetService(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var detail map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&detail))
	assert.Equal(t, "Cafe X", detail["name"])
	assert.Contains(t, detail["links"], "directions")

	req = httptest.NewRequest(http.MethodGet, "/api/services/missing", nil)
	req.SetPathValue("id", "missing")
	w = httptest.NewRecorder()
	handler.GetService(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCatalogHandler_Categories(t *testing.T) {
	w := httptest.NewRecorder()
	newCatalogHandler(&MockCatalogService{}).ListCategories(w, httptest.NewRequest(http.MethodGet, "/api/categories", nil))

	var response struct {
		Categories []string `json:"categories"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, entities.CategoryAll, response.Categories[0])
	assert.Contains(t, response.Categories, "Stays")
	assert.Len(t, response.Categories, len(entities.Categories())+1)
}

func TestCatalogHandler_MapLink(t *testing.T) {
	handler := newCatalogHandler(&MockCatalogService{})

	w := httptest.NewRecorder()
	handler.MapLink(w, httptest.NewRequest(http.MethodGet, "/api/links/map?q=Bhagsu+Waterfall", nil))
	assert.Contains(t, w.Body.String(), "query=Bhagsu+Waterfall")

	w = httptest.NewRecorder()
	handler.MapLink(w, httptest.NewRequest(http.MethodGet, "/api/links/map", nil))
	assert.Contains(t, w.Body.String(), "query=Dharamshala")
}

func TestCatalogHandler_Contact(t *testing.T) {
	handler := newCatalogHandler(&MockCatalogService{})

	w := httptest.NewRecorder()
	handler.Contact(w, postJSON("/api/contact", `{"name":"Asha","email":"asha@cafex.in","subject":"Hi","message":"Hello there"}`, "10.0.1.1"))

	assert.Equal(t, http.StatusOK, w.Code)
	var links services.ContactLinks
	require.NoError(t, json.NewDecoder(w.Body).Decode(&links))
	assert.True(t, strings.HasPrefix(links.Mailto, "mailto:owner@example.com?subject=Contact%20Form%3A%20Hi"))
	assert.True(t, strings.HasPrefix(links.WhatsApp, "https://wa.me/919882770709?text="))

	w = httptest.NewRecorder()
	handler.Contact(w, postJSON("/api/contact", `{"name":"Asha"}`, "10.0.1.1"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type stubCollection struct {
	name string
	err  error
}

func (p stubCollection) Name() string                { return p.name }
func (p stubCollection) State() livecollection.State { return livecollection.StateReady }
func (p stubCollection) LastError() error            { return p.err }

type stubPinger struct{ err error }

func (p stubPinger) PingContext(context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	w := httptest.NewRecorder()
	handlers.NewHealthHandler(stubPinger{}, stubCollection{name: "services"}).Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = httptest.NewRecorder()
	handlers.NewHealthHandler(nil, stubCollection{name: "reviews", err: errors.New("refetch failed")}).
		Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"degraded"`)

	w = httptest.NewRecorder()
	handlers.NewHealthHandler(stubPinger{err: errors.New("down")}).Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
